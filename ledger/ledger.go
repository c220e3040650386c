/*
Package ledger implements the share ledger, the registry of who is
entitled to which part of the distributed rewards.

A ledger holds an ordered list of shares. The order is the insertion order
of the most recent successful creation or update and it determines the
payout enumeration order during settlement. A ledger can be created
mutable, in which case the whole share set can be replaced, or immutable.
Locking turns a mutable ledger immutable for the rest of its lifetime.
*/
package ledger

import (
	"math"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/errors"
)

const (
	// maxShares defines the maximum number of shares allowed within a
	// single ledger. This is a high number that should not be an issue in
	// real life scenarios. But having a sane limit allows us to avoid
	// attacks.
	maxShares = 200

	// sumTolerance is the maximum distance from 1 that the sum of all
	// share percentages is allowed to have. Fractions are exact rationals
	// so the tolerance only absorbs representation noise, not sloppy
	// configuration.
	sumTolerance = 1e-6
)

// Share is a single recipient entitlement. The percentage is a fraction in
// (0, 1] of every distributed reward.
type Share struct {
	Recipient  splitter.Address  `json:"recipient"`
	Percentage splitter.Fraction `json:"percentage"`
}

// Validate returns an error if this share alone is not valid. Whole share
// set requirements, like percentages summing up to one, are enforced by
// the ledger.
func (s Share) Validate() error {
	if err := s.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if err := s.Percentage.Validate(); err != nil {
		return errors.Wrap(err, "percentage")
	}
	switch p := s.Percentage.Float(); {
	case p <= 0:
		return errors.Wrap(errors.ErrShares, "percentage must be greater than zero")
	case p > 1:
		return errors.Wrap(errors.ErrShares, "percentage must not be greater than one")
	}
	return nil
}

// Ledger is the current set of shares of a single distributor.
//
// A ledger is not safe for concurrent use. The owning distributor
// serializes all access.
type Ledger struct {
	shares  []Share
	mutable bool
}

// NewLedger returns a ledger initialized with given shares. It fails if
// the shares do not describe a valid full split. A ledger created with
// mutable set to false can never be updated.
func NewLedger(shares []Share, mutable bool) (*Ledger, error) {
	if err := validateShares(shares); err != nil {
		return nil, err
	}
	return &Ledger{
		shares:  copyShares(shares),
		mutable: mutable,
	}, nil
}

// Update replaces the whole share set. The old set is discarded only after
// the new one passed validation, so a rejected update leaves the ledger
// unchanged.
func (l *Ledger) Update(shares []Share) error {
	if !l.mutable {
		return errors.Wrap(errors.ErrImmutable, "cannot update")
	}
	if err := validateShares(shares); err != nil {
		return err
	}
	l.shares = copyShares(shares)
	return nil
}

// Lock makes this ledger immutable for the rest of its lifetime. Locking
// an already immutable ledger is a no-op.
func (l *Ledger) Lock() {
	l.mutable = false
}

// Mutable returns false if this ledger rejects all updates.
func (l *Ledger) Mutable() bool {
	return l.mutable
}

// Shares returns the current shares in payout enumeration order. Returned
// slice is a copy and can be modified freely.
func (l *Ledger) Shares() []Share {
	return copyShares(l.shares)
}

// Find returns the share of given recipient. It fails with ErrNotFound if
// the recipient is not part of this ledger.
func (l *Ledger) Find(recipient splitter.Address) (Share, error) {
	for _, s := range l.shares {
		if s.Recipient.Equals(recipient) {
			return s, nil
		}
	}
	return Share{}, errors.Wrapf(errors.ErrNotFound, "recipient %s", recipient)
}

// validateShares returns an error if given list of shares is not valid as
// a whole. This functionality is used for both creation and update, having
// it abstracted saves repeating validation code.
func validateShares(shares []Share) error {
	switch n := len(shares); {
	case n == 0:
		return errors.Wrap(errors.ErrShares, "no shares")
	case n > maxShares:
		return errors.Wrap(errors.ErrShares, "too many shares")
	}

	// Recipient address must not repeat. Repeating addresses would not
	// cause an issue, but requiring them to be unique increase
	// configuration clarity.
	recipients := make(map[string]struct{})

	var sum float64
	for i, s := range shares {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "share %d", i)
		}
		addr := s.Recipient.String()
		if _, ok := recipients[addr]; ok {
			return errors.Wrapf(errors.ErrShares, "recipient %q is not unique", addr)
		}
		recipients[addr] = struct{}{}

		sum += s.Percentage.Float()
	}

	if math.Abs(sum-1) > sumTolerance {
		return errors.Wrapf(errors.ErrShares, "percentages sum up to %f, not 1", sum)
	}
	return nil
}

func copyShares(shares []Share) []Share {
	cpy := make([]Share, len(shares))
	for i, s := range shares {
		cpy[i] = Share{
			Recipient:  s.Recipient.Clone(),
			Percentage: s.Percentage,
		}
	}
	return cpy
}
