package distributor

import (
	"sort"

	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/errors"
)

// Accumulator tracks the pending, not yet distributed reward balance of a
// distributor. Balances are kept per denomination. A balance can only grow
// through Credit and only shrink through Debit, which is reserved for the
// settlement path.
//
// An accumulator is not safe for concurrent use. The owning distributor
// serializes all access.
type Accumulator struct {
	balances map[string]int64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		balances: make(map[string]int64),
	}
}

// Credit increases the balance of the coin denomination by the coin value.
// Crediting a negative amount fails with ErrAmount and does not modify the
// state.
func (a *Accumulator) Credit(c coin.Coin) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.IsNonNegative() {
		return errors.Wrapf(errors.ErrAmount, "cannot credit %s", c)
	}
	total, err := a.Balance(c.Ticker).Add(c)
	if err != nil {
		return errors.Wrap(err, "cannot credit")
	}
	a.balances[c.Ticker] = total.Amount
	return nil
}

// Debit decreases the balance of the coin denomination by the coin value.
// Debiting more than the current balance fails with ErrInsufficient and
// does not modify the state.
func (a *Accumulator) Debit(c coin.Coin) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.IsNonNegative() {
		return errors.Wrapf(errors.ErrAmount, "cannot debit %s", c)
	}
	balance := a.Balance(c.Ticker)
	if !balance.IsGTE(c) {
		return errors.Wrapf(errors.ErrInsufficient, "cannot debit %s from %s", c, balance)
	}
	a.balances[c.Ticker] = balance.Amount - c.Amount
	return nil
}

// Balance returns the current balance of given denomination. An unknown
// denomination has a zero balance.
func (a *Accumulator) Balance(ticker string) coin.Coin {
	return coin.NewCoin(a.balances[ticker], ticker)
}

// Tickers returns all denominations with a positive balance, ordered
// alphabetically.
func (a *Accumulator) Tickers() []string {
	var tickers []string
	for t, amount := range a.balances {
		if amount > 0 {
			tickers = append(tickers, t)
		}
	}
	sort.Strings(tickers)
	return tickers
}
