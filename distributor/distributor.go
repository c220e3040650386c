/*
Package distributor implements the reward distribution authority.

A distributor aggregates a share ledger, a registry of auxiliary modules
and a per denomination reward accumulator. All interaction with the
surrounding ledger system goes through the Boundary interface, so the
distribution logic never depends on a concrete chain client.

All state changing operations on a single distributor are serialized.
Module invocations and read only queries can run concurrently with each
other, but never overlap with a ledger update or a settlement.
*/
package distributor

import (
	"context"
	"sync"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/errors"
	"github.com/iov-one/splitter/ledger"
	"github.com/iov-one/splitter/store"
)

// Instruction is a single payout order: transfer given amount from the
// distributor account to the recipient.
type Instruction struct {
	Recipient splitter.Address `json:"recipient"`
	Amount    coin.Coin        `json:"amount"`
}

// Boundary is the single gateway to the surrounding ledger system. All
// calls are requests to a remote system. They can take unbounded time and
// a timeout must be treated the same as an explicit failure.
//
// Required functionality is implemented by the client package. Tests use
// the scripted implementation from the splittertest package.
type Boundary interface {
	// ActivateModule deploys an auxiliary module and returns the address
	// it can be invoked through.
	ActivateModule(ctx context.Context, codeID uint64, init []byte) (splitter.Address, error)

	// InvokeModule forwards an opaque action to an activated module.
	InvokeModule(ctx context.Context, module splitter.Address, action []byte) ([]byte, error)

	// SubmitInstructions executes all payout instructions as a single
	// atomic batch. Either all instructions are applied or none is.
	SubmitInstructions(ctx context.Context, instructions []Instruction) error

	// QueryBalance returns the balance of given account.
	QueryBalance(ctx context.Context, account splitter.Address, ticker string) (coin.Coin, error)
}

// Distributor owns a share ledger, a module registry and a reward
// accumulator. It is safe for concurrent use.
type Distributor struct {
	mu       sync.RWMutex
	account  splitter.Address
	boundary Boundary
	ledger   *ledger.Ledger
	acc      *Accumulator
	modules  []Module
	journal  *journal
}

// NewDistributor returns a distributor with given initial shares. The
// account is the distributor's own account on the external ledger, the
// source of all payouts. If mutable is false the share set can never be
// changed.
func NewDistributor(account splitter.Address, boundary Boundary, shares []ledger.Share, mutable bool) (*Distributor, error) {
	if err := account.Validate(); err != nil {
		return nil, errors.Wrap(err, "account")
	}
	if boundary == nil {
		return nil, errors.Wrap(errors.ErrInput, "nil boundary")
	}
	l, err := ledger.NewLedger(shares, mutable)
	if err != nil {
		return nil, err
	}
	return &Distributor{
		account:  account,
		boundary: boundary,
		ledger:   l,
		acc:      NewAccumulator(),
		journal:  newJournal(store.MemStore()),
	}, nil
}

// Account returns the distributor's own account address.
func (d *Distributor) Account() splitter.Address {
	return d.account.Clone()
}

// Shares returns the current shares in payout enumeration order.
func (d *Distributor) Shares() []ledger.Share {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Shares()
}

// Share returns the share of a single recipient.
func (d *Distributor) Share(recipient splitter.Address) (ledger.Share, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Find(recipient)
}

// Mutable returns false if the share ledger rejects all updates.
func (d *Distributor) Mutable() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Mutable()
}

// UpdateShares replaces the whole share set. It fails with ErrImmutable if
// the ledger is not mutable and with ErrShares if the new set is not a
// valid full split. A failed update leaves the previous shares in place.
func (d *Distributor) UpdateShares(shares []ledger.Share) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledger.Update(shares)
}

// LockShares makes the share ledger immutable for the rest of the
// distributor's lifetime.
func (d *Distributor) LockShares() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledger.Lock()
}

// Credit adds given value to the pending reward balance. Credits represent
// externally observed inflows, they are never computed internally.
func (d *Distributor) Credit(c coin.Coin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acc.Credit(c)
}

// Balance returns the pending reward balance of given denomination.
func (d *Distributor) Balance(ticker string) coin.Coin {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.acc.Balance(ticker)
}

// Tickers returns all denominations with a pending reward balance.
func (d *Distributor) Tickers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.acc.Tickers()
}

// WithdrawRewards queries the distributor account balance through the
// boundary and credits the accumulator with everything that was accrued
// since the last withdrawal. Calling it twice in a row credits nothing the
// second time.
func (d *Distributor) WithdrawRewards(ctx context.Context, ticker string) (coin.Coin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	accrued, err := d.boundary.QueryBalance(ctx, d.account, ticker)
	if err != nil {
		return coin.Coin{}, errors.Wrapf(err, "query %s balance", ticker)
	}
	pending := d.acc.Balance(ticker)
	delta, err := accrued.Subtract(pending)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "accrued balance")
	}
	if !delta.IsPositive() {
		return coin.NewCoin(0, ticker), nil
	}
	if err := d.acc.Credit(delta); err != nil {
		return coin.Coin{}, err
	}
	return delta, nil
}
