package coin

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/errors"
	"github.com/iov-one/splitter/splittertest/assert"
)

func TestCompareCoin(t *testing.T) {
	cases := map[string]struct {
		a       Coin
		b       Coin
		wantRes int
	}{
		"a greater than b": {
			a:       NewCoin(20, "ABC"),
			b:       NewCoin(19, "ABC"),
			wantRes: 1,
		},
		"a smaller than b": {
			a:       NewCoin(-2, "FOO"),
			b:       NewCoin(1, "FOO"),
			wantRes: -1,
		},
		"equal coins": {
			a:       NewCoin(123, "BAR"),
			b:       NewCoin(123, "BAR"),
			wantRes: 0,
		},
		"zero value coins": {
			a:       Coin{},
			b:       Coin{},
			wantRes: 0,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			res := tc.a.Compare(tc.b)
			assert.Equal(t, tc.wantRes, res)
		})
	}
}

func TestCoinAdd(t *testing.T) {
	cases := map[string]struct {
		a       Coin
		b       Coin
		wantErr *errors.Error
		wantRes Coin
	}{
		"same currency": {
			a:       NewCoin(3, "IOV"),
			b:       NewCoin(4, "IOV"),
			wantRes: NewCoin(7, "IOV"),
		},
		"zero value with no ticker": {
			a:       Coin{},
			b:       NewCoin(4, "IOV"),
			wantRes: NewCoin(4, "IOV"),
		},
		"different currencies": {
			a:       NewCoin(3, "IOV"),
			b:       NewCoin(4, "BTC"),
			wantErr: errors.ErrCurrency,
		},
		"overflow": {
			a:       NewCoin(math.MaxInt64, "IOV"),
			b:       NewCoin(1, "IOV"),
			wantErr: errors.ErrOverflow,
		},
		"negative overflow": {
			a:       NewCoin(math.MinInt64, "IOV"),
			b:       NewCoin(-1, "IOV"),
			wantErr: errors.ErrOverflow,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			res, err := tc.a.Add(tc.b)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr == nil && !res.Equals(tc.wantRes) {
				t.Fatalf("want %q, got %q", tc.wantRes, res)
			}
		})
	}
}

func TestCoinNegative(t *testing.T) {
	a := NewCoin(456, "ABC")

	n := a.Negative()

	assert.Equal(t, a.Ticker, n.Ticker)
	assert.Equal(t, -a.Amount, n.Amount)

	if nn := a.Negative().Negative(); !a.Equals(nn) {
		t.Fatal("double negation malformed the coin")
	}
}

func TestCoinSplit(t *testing.T) {
	cases := map[string]struct {
		coin    Coin
		share   splitter.Fraction
		wantErr *errors.Error
		wantRes Coin
	}{
		"exact quarter": {
			coin:    NewCoin(100, "IOV"),
			share:   splitter.Fraction{Numerator: 1, Denominator: 4},
			wantRes: NewCoin(25, "IOV"),
		},
		"rounded down": {
			coin:    NewCoin(101, "IOV"),
			share:   splitter.Fraction{Numerator: 35, Denominator: 100},
			wantRes: NewCoin(35, "IOV"),
		},
		"full share": {
			coin:    NewCoin(77, "IOV"),
			share:   splitter.Fraction{Numerator: 1, Denominator: 1},
			wantRes: NewCoin(77, "IOV"),
		},
		"zero share": {
			coin:    NewCoin(77, "IOV"),
			share:   splitter.Fraction{Numerator: 0, Denominator: 1},
			wantRes: NewCoin(0, "IOV"),
		},
		"tiny amount rounds to zero": {
			coin:    NewCoin(1, "IOV"),
			share:   splitter.Fraction{Numerator: 1, Denominator: 4},
			wantRes: NewCoin(0, "IOV"),
		},
		"huge amount does not overflow": {
			coin:    NewCoin(math.MaxInt64, "IOV"),
			share:   splitter.Fraction{Numerator: 999999, Denominator: 1000000},
			wantRes: NewCoin(9223362813482738952, "IOV"),
		},
		"negative amount": {
			coin:    NewCoin(-1, "IOV"),
			share:   splitter.Fraction{Numerator: 1, Denominator: 4},
			wantErr: errors.ErrAmount,
		},
		"zero division": {
			coin:    NewCoin(100, "IOV"),
			share:   splitter.Fraction{Numerator: 1, Denominator: 0},
			wantErr: errors.ErrState,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			res, err := tc.coin.Split(tc.share)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr == nil && !res.Equals(tc.wantRes) {
				t.Fatalf("want %q, got %q", tc.wantRes, res)
			}
		})
	}
}

func TestCoinValidate(t *testing.T) {
	cases := map[string]struct {
		coin    Coin
		wantErr *errors.Error
	}{
		"valid": {
			coin: NewCoin(1, "IOV"),
		},
		"long ticker is fine": {
			coin: NewCoin(1, "ACONST"),
		},
		"no ticker": {
			coin:    NewCoin(1, ""),
			wantErr: errors.ErrCurrency,
		},
		"lowercase ticker": {
			coin:    NewCoin(1, "iov"),
			wantErr: errors.ErrCurrency,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := tc.coin.Validate(); !tc.wantErr.Is(err) {
				t.Fatalf("want %v, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestParseHumanFormat(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantErr  *errors.Error
		wantCoin Coin
	}{
		"simple": {
			raw:      "4 IOV",
			wantCoin: NewCoin(4, "IOV"),
		},
		"no space": {
			raw:      "4IOV",
			wantCoin: NewCoin(4, "IOV"),
		},
		"negative": {
			raw:      "-4 IOV",
			wantCoin: NewCoin(-4, "IOV"),
		},
		"no ticker": {
			raw:     "4",
			wantErr: errors.ErrInput,
		},
		"fractional amount is not supported": {
			raw:     "4.5 IOV",
			wantErr: errors.ErrInput,
		},
		"garbage": {
			raw:     "the money",
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			coin, err := ParseHumanFormat(tc.raw)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr == nil && !coin.Equals(tc.wantCoin) {
				t.Fatalf("want %q, got %q", tc.wantCoin, coin)
			}
		})
	}
}

func TestCoinJSONRoundTrip(t *testing.T) {
	coin := NewCoin(123, "IOV")
	raw, err := json.Marshal(coin)
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}
	var back Coin
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("cannot unmarshal %q: %s", raw, err)
	}
	if !back.Equals(coin) {
		t.Fatalf("want %q, got %q", coin, back)
	}

	// The verbose object notation must be accepted as well.
	var objBack Coin
	if err := json.Unmarshal([]byte(`{"ticker": "IOV", "amount": 123}`), &objBack); err != nil {
		t.Fatalf("cannot unmarshal object notation: %s", err)
	}
	if !objBack.Equals(coin) {
		t.Fatalf("want %q, got %q", coin, objBack)
	}
}
