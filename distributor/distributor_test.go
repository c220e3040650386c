package distributor_test

import (
	"context"
	"testing"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/distributor"
	"github.com/iov-one/splitter/errors"
	"github.com/iov-one/splitter/ledger"
	"github.com/iov-one/splitter/splittertest"
	"github.com/iov-one/splitter/splittertest/assert"
)

func TestNewDistributor(t *testing.T) {
	validShares := []ledger.Share{
		{Recipient: aliceAddr, Percentage: frac(1, 1)},
	}

	cases := map[string]struct {
		account  splitter.Address
		boundary distributor.Boundary
		shares   []ledger.Share
		wantErr  *errors.Error
	}{
		"valid": {
			account:  aliceAddr,
			boundary: &splittertest.Boundary{},
			shares:   validShares,
		},
		"invalid account address": {
			account:  splitter.Address("x"),
			boundary: &splittertest.Boundary{},
			shares:   validShares,
			wantErr:  errors.ErrInput,
		},
		"missing boundary": {
			account: aliceAddr,
			shares:  validShares,
			wantErr: errors.ErrInput,
		},
		"invalid shares": {
			account:  aliceAddr,
			boundary: &splittertest.Boundary{},
			shares: []ledger.Share{
				{Recipient: aliceAddr, Percentage: frac(1, 2)},
			},
			wantErr: errors.ErrShares,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := distributor.NewDistributor(tc.account, tc.boundary, tc.shares, false)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestUpdateAndLockShares(t *testing.T) {
	d := newTestDistributor(t, &splittertest.Boundary{})

	next := []ledger.Share{
		{Recipient: aliceAddr, Percentage: frac(1, 4)},
		{Recipient: bobbyAddr, Percentage: frac(3, 4)},
	}
	assert.Nil(t, d.UpdateShares(next))
	assert.Equal(t, next, d.Shares())

	share, err := d.Share(bobbyAddr)
	assert.Nil(t, err)
	assert.Equal(t, frac(3, 4), share.Percentage)
	if _, err := d.Share(carolAddr); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found error, got %+v", err)
	}

	d.LockShares()
	assert.Equal(t, false, d.Mutable())
	err = d.UpdateShares([]ledger.Share{
		{Recipient: carolAddr, Percentage: frac(1, 1)},
	})
	if !errors.ErrImmutable.Is(err) {
		t.Fatalf("want immutable ledger error, got %+v", err)
	}
	// The rejected update must not have changed anything.
	assert.Equal(t, next, d.Shares())
}

func TestCreditAndBalance(t *testing.T) {
	d := newTestDistributor(t, &splittertest.Boundary{})

	assert.Nil(t, d.Credit(coin.NewCoin(100, "IOV")))
	assert.Nil(t, d.Credit(coin.NewCoin(5, "BTC")))
	assert.Equal(t, coin.NewCoin(100, "IOV"), d.Balance("IOV"))
	assert.Equal(t, coin.NewCoin(0, "ETH"), d.Balance("ETH"))
	assert.Equal(t, []string{"BTC", "IOV"}, d.Tickers())
}

func TestWithdrawRewards(t *testing.T) {
	boundary := &splittertest.Boundary{
		Balances: map[string]coin.Coin{
			"IOV": coin.NewCoin(100, "IOV"),
		},
	}
	d := newTestDistributor(t, boundary)

	withdrawn, err := d.WithdrawRewards(context.Background(), "IOV")
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(100, "IOV"), withdrawn)
	assert.Equal(t, coin.NewCoin(100, "IOV"), d.Balance("IOV"))

	// Withdrawing again without any new accrual credits nothing.
	withdrawn, err = d.WithdrawRewards(context.Background(), "IOV")
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(0, "IOV"), withdrawn)
	assert.Equal(t, coin.NewCoin(100, "IOV"), d.Balance("IOV"))

	// New accrual on the external account is picked up as the delta.
	boundary.Balances["IOV"] = coin.NewCoin(150, "IOV")
	withdrawn, err = d.WithdrawRewards(context.Background(), "IOV")
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(50, "IOV"), withdrawn)
	assert.Equal(t, coin.NewCoin(150, "IOV"), d.Balance("IOV"))
}

func TestWithdrawRewardsBoundaryFailure(t *testing.T) {
	boundary := &splittertest.Boundary{
		QueryErr: errors.ErrNetwork.New("no quorum"),
	}
	d := newTestDistributor(t, boundary)

	if _, err := d.WithdrawRewards(context.Background(), "IOV"); !errors.ErrNetwork.Is(err) {
		t.Fatalf("want network error, got %+v", err)
	}
	assert.Equal(t, coin.NewCoin(0, "IOV"), d.Balance("IOV"))
}
