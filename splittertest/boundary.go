/*
Package splittertest provides test doubles and helpers for packages that
build on the splitter distributor.
*/
package splittertest

import (
	"context"
	"sync"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/coin"
	"github.com/iov-one/splitter/distributor"
)

// Boundary is a scripted distributor.Boundary implementation. Configure
// the result attributes to control the responses. All calls are counted
// and submitted instruction batches are recorded, so a test can verify
// interactions.
//
// The zero value is usable and reports success for everything.
type Boundary struct {
	mu sync.Mutex

	// ActivateAddr is returned by ActivateModule. When nil, a unique
	// address is derived from the activation arguments.
	ActivateAddr splitter.Address
	ActivateErr  error

	// InvokeData is returned by every successful InvokeModule call.
	InvokeData []byte
	// InvokeErrs is consumed one element per InvokeModule call. A nil
	// element means success. When the slice is exhausted InvokeErr is
	// used instead.
	InvokeErrs []error
	InvokeErr  error

	SubmitErr error

	// Balances is returned by QueryBalance, keyed by ticker.
	Balances map[string]coin.Coin
	QueryErr error

	activateCall int
	invokeCall   int
	submitCall   int
	queryCall    int

	// Submitted records every instruction batch passed to
	// SubmitInstructions, including rejected ones.
	Submitted [][]distributor.Instruction
}

var _ distributor.Boundary = (*Boundary)(nil)

func (b *Boundary) ActivateModule(ctx context.Context, codeID uint64, init []byte) (splitter.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.activateCall++
	if b.ActivateErr != nil {
		return nil, b.ActivateErr
	}
	if b.ActivateAddr != nil {
		return b.ActivateAddr, nil
	}
	seed := append([]byte{byte(codeID)}, init...)
	return splitter.NewAddress(seed), nil
}

func (b *Boundary) InvokeModule(ctx context.Context, module splitter.Address, action []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	call := b.invokeCall
	b.invokeCall++
	if call < len(b.InvokeErrs) {
		if err := b.InvokeErrs[call]; err != nil {
			return nil, err
		}
		return b.InvokeData, nil
	}
	if b.InvokeErr != nil {
		return nil, b.InvokeErr
	}
	return b.InvokeData, nil
}

func (b *Boundary) SubmitInstructions(ctx context.Context, instructions []distributor.Instruction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.submitCall++
	b.Submitted = append(b.Submitted, instructions)
	return b.SubmitErr
}

func (b *Boundary) QueryBalance(ctx context.Context, account splitter.Address, ticker string) (coin.Coin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queryCall++
	if b.QueryErr != nil {
		return coin.Coin{}, b.QueryErr
	}
	if c, ok := b.Balances[ticker]; ok {
		return c, nil
	}
	return coin.NewCoin(0, ticker), nil
}

func (b *Boundary) ActivateCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activateCall
}

func (b *Boundary) InvokeCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invokeCall
}

func (b *Boundary) SubmitCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitCall
}

func (b *Boundary) QueryCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queryCall
}
