package distributor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/errors"
	"github.com/iov-one/splitter/ledger"
)

// Phase describes how far a settlement attempt has progressed. A
// settlement either completes as Confirmed, which is the only transition
// that debits the accumulator, or as Failed, which leaves all state
// untouched so the attempt can be safely repeated.
type Phase uint8

const (
	PhasePending Phase = iota
	PhaseSnapshotted
	PhaseSubmitted
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSnapshotted:
		return "snapshotted"
	case PhaseSubmitted:
		return "submitted"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("invalid (%d)", p)
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(raw []byte) error {
	var human string
	if err := json.Unmarshal(raw, &human); err != nil {
		return err
	}
	for _, phase := range []Phase{PhasePending, PhaseSnapshotted, PhaseSubmitted, PhaseConfirmed, PhaseFailed} {
		if phase.String() == human {
			*p = phase
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInput, "unknown phase %q", human)
}

// Settlement is the record of a single settlement attempt.
type Settlement struct {
	ID           uint64        `json:"id"`
	Ticker       string        `json:"ticker"`
	Balance      coin.Coin     `json:"balance"`
	Instructions []Instruction `json:"instructions,omitempty"`
	Phase        Phase         `json:"phase"`
	// Reason holds the failure description. Empty on success.
	Reason string `json:"reason,omitempty"`
}

// Settle converts the pending reward balance of given denomination into
// payout instructions and executes them through the boundary as a single
// atomic batch. The accumulator is debited only after the boundary
// confirmed the whole batch. A failed attempt leaves the balance untouched
// and can be repeated, producing the same instruction set.
//
// Settling a zero balance is a successful no-op.
func (d *Distributor) Settle(ctx context.Context, ticker string) (*Settlement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Ledger and accumulator are read within the same critical section,
	// so the payout is always computed against a consistent view.
	s := &Settlement{
		Ticker:  ticker,
		Balance: d.acc.Balance(ticker),
		Phase:   PhaseSnapshotted,
	}
	shares := d.ledger.Shares()

	if s.Balance.IsZero() {
		s.Phase = PhaseConfirmed
		if err := d.journal.append(s); err != nil {
			return nil, err
		}
		return s, nil
	}

	instructions, err := payouts(shares, s.Balance)
	if err != nil {
		return nil, errors.Wrap(err, "compute payouts")
	}
	s.Instructions = instructions

	s.Phase = PhaseSubmitted
	if err := d.boundary.SubmitInstructions(ctx, instructions); err != nil {
		s.Phase = PhaseFailed
		s.Reason = err.Error()
		if jerr := d.journal.append(s); jerr != nil {
			return nil, jerr
		}
		return nil, errors.Wrapf(errors.ErrSettlement, "settle %s: %s", s.Balance, err)
	}

	if err := d.acc.Debit(s.Balance); err != nil {
		// The balance was read under the same lock, so this cannot be
		// triggered by a concurrent modification.
		return nil, errors.Wrap(err, "debit settled balance")
	}
	s.Phase = PhaseConfirmed
	if err := d.journal.append(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Settlements returns the records of all settlement attempts, oldest
// first.
func (d *Distributor) Settlements() ([]Settlement, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.journal.list()
}

// payouts splits the balance between the shares. Every share except the
// last one receives its percentage of the balance rounded down, capped at
// what is still undistributed. The last share receives the remainder, so
// that the payouts always sum up to exactly the balance and the whole
// rounding leftover lands on the last recipient. Zero value payouts are
// dropped.
func payouts(shares []ledger.Share, balance coin.Coin) ([]Instruction, error) {
	instructions := make([]Instruction, 0, len(shares))
	left := balance

	for i, share := range shares {
		var amount coin.Coin
		if i == len(shares)-1 {
			amount = left
		} else {
			var err error
			amount, err = balance.Split(share.Percentage)
			if err != nil {
				return nil, err
			}
			// The sum tolerance admits share sets slightly above one,
			// where the floors together can exceed the balance. Capping
			// every payout at the undistributed rest keeps the total at
			// exactly the balance.
			if !left.IsGTE(amount) {
				amount = left
			}
			if left, err = left.Subtract(amount); err != nil {
				return nil, err
			}
		}
		if amount.IsZero() {
			continue
		}
		instructions = append(instructions, Instruction{
			Recipient: share.Recipient.Clone(),
			Amount:    amount,
		})
	}
	return instructions, nil
}
