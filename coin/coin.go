package coin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/errors"
)

// IsCC is the RegExp to ensure valid currency codes.
var IsCC = regexp.MustCompile(`^[A-Z]{3,10}$`).MatchString

// Coin is an amount of a single currency. The amount is expressed in the
// smallest unit of the currency, so a coin value is always an integer.
type Coin struct {
	Ticker string
	Amount int64
}

// NewCoin creates a new coin object.
func NewCoin(amount int64, ticker string) Coin {
	return Coin{
		Ticker: ticker,
		Amount: amount,
	}
}

// ID returns a coin ticker name.
func (c Coin) ID() string {
	return c.Ticker
}

// Add combines two coins. Returns an error if they are of different
// currencies, or if the combination would cause an overflow.
func (c Coin) Add(o Coin) (Coin, error) {
	// If any of the coins represents no value and does not have a ticker
	// set then it has no influence on the addition result.
	if c.Ticker == "" && c.IsZero() {
		return o, nil
	}
	if o.Ticker == "" && o.IsZero() {
		return c, nil
	}

	if !c.SameType(o) {
		return Coin{}, errors.Wrapf(errors.ErrCurrency, "adding %s to %s", o.Ticker, c.Ticker)
	}

	n := c.Amount + o.Amount
	if (o.Amount > 0 && n < c.Amount) || (o.Amount < 0 && n > c.Amount) {
		return Coin{}, errors.ErrOverflow
	}
	c.Amount = n
	return c, nil
}

// Negative returns the opposite coins value.
//   c.Add(c.Negative()).IsZero() == true
func (c Coin) Negative() Coin {
	return Coin{
		Ticker: c.Ticker,
		Amount: -c.Amount,
	}
}

// Subtract given amount.
func (c Coin) Subtract(amount Coin) (Coin, error) {
	return c.Add(amount.Negative())
}

// Multiply returns the result of a coin value multiplication. This method
// can fail if the result would overflow the maximum coin value.
func (c Coin) Multiply(times int64) (Coin, error) {
	amount, err := mul64(c.Amount, times)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: c.Ticker, Amount: amount}, nil
}

// mul64 multiplies two int64 numbers. If the result overflows the int64
// size the ErrOverflow is returned.
func mul64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/a != b {
		return c, errors.ErrOverflow
	}
	return c, nil
}

// Split returns the part of this coin value that given fraction describes,
// rounded down to the nearest integer. The value cut off by the rounding is
// lost to the caller, so this method is only one half of an exact split.
// Splitting a negative value is an invalid use of this method.
func (c Coin) Split(share splitter.Fraction) (Coin, error) {
	if c.Amount < 0 {
		return Coin{}, errors.Wrap(errors.ErrAmount, "cannot split a negative value")
	}
	if share.Denominator == 0 {
		return Coin{}, errors.Wrap(errors.ErrState, "zero division")
	}

	den := int64(share.Denominator)
	num := int64(share.Numerator)

	whole, err := mul64(c.Amount/den, num)
	if err != nil {
		return Coin{}, err
	}
	// The remainder is less than the denominator, so this product fits in
	// an uint64 even for the biggest fraction values.
	rest := int64(uint64(c.Amount%den) * uint64(num) / uint64(den))

	amount := whole + rest
	if amount < whole {
		return Coin{}, errors.ErrOverflow
	}
	return Coin{Ticker: c.Ticker, Amount: amount}, nil
}

// Compare will check values of two coins, without inspecting the currency
// code. It is up to the caller to determine if they want to check this.
//
// Returns 1 if c is larger, -1 if o is larger, 0 if equal.
func (c Coin) Compare(o Coin) int {
	switch {
	case c.Amount > o.Amount:
		return 1
	case c.Amount < o.Amount:
		return -1
	default:
		return 0
	}
}

// Equals returns true if all fields are identical.
func (c Coin) Equals(o Coin) bool {
	return c.Ticker == o.Ticker && c.Amount == o.Amount
}

// IsZero returns true if the amount is 0.
func (c Coin) IsZero() bool {
	return c.Amount == 0
}

// IsPositive returns true if the value is greater than 0.
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// IsNonNegative returns true if the value is 0 or higher.
func (c Coin) IsNonNegative() bool {
	return c.Amount >= 0
}

// IsGTE returns true if c is same type and at least as large as o.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Amount >= o.Amount
}

// SameType returns true if they have the same currency.
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// Validate ensures that the coin has a valid currency code. It accepts
// negative values, so you may want to make other checks in your business
// logic.
func (c Coin) Validate() error {
	if !IsCC(c.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "invalid currency: %s", c.Ticker)
	}
	return nil
}

// String provides a human readable representation of the coin. For a valid
// coin the result is a valid human readable format that can be parsed back.
func (c Coin) String() string {
	if c.Ticker == "" {
		return strconv.FormatInt(c.Amount, 10)
	}
	return fmt.Sprintf("%d %s", c.Amount, c.Ticker)
}

func (c *Coin) UnmarshalJSON(raw []byte) error {
	// Prioritize human readable format that is a string in format
	// "<amount> <ticker>".
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		parsed, err := ParseHumanFormat(human)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	// Fallback into the default unmarshaling. Because UnmarshalJSON
	// method is provided, we can no longer use Coin type for this.
	var coin struct {
		Ticker string
		Amount int64
	}
	if err := json.Unmarshal(raw, &coin); err != nil {
		return err
	}
	c.Ticker = coin.Ticker
	c.Amount = coin.Amount
	return nil
}

func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// ParseHumanFormat parse a human readable coin representation. Accepted
// format is a string:
//   "<amount> <ticker>"
func ParseHumanFormat(h string) (Coin, error) {
	results := humanCoinFormatRx.FindStringSubmatch(strings.TrimSpace(h))
	if results == nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format: %q", h)
	}

	amount, err := strconv.ParseInt(results[1], 10, 64)
	if err != nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid amount value: %s", err)
	}
	return Coin{
		Ticker: results[2],
		Amount: amount,
	}, nil
}

var humanCoinFormatRx = regexp.MustCompile(`^(\-?\d+)\s*([A-Z]{3,10})$`)

// Set updates this coin value to what is provided. This method implements
// the flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseHumanFormat(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}
