package distributor

import (
	"context"

	"github.com/iov-one/splitter"
	"github.com/iov-one/splitter/errors"
)

// Module is an auxiliary program registered with a distributor. What the
// module does internally is opaque, the distributor only keeps the handle
// needed to invoke it. Modules are never deleted.
type Module struct {
	// CodeID references the module code on the external ledger.
	CodeID uint64
	// Init is the payload the module was activated with.
	Init []byte
	// Address is the invocation handle, resolved during activation.
	Address splitter.Address
}

// InvocationResult is the outcome of a single module invocation. Each
// invocation is independent, a failed one does not affect any other.
type InvocationResult struct {
	Data []byte
	Err  error
}

// RegisterModule activates a module through the boundary and adds it to
// the registry. On activation failure the registry is left unchanged.
func (d *Distributor) RegisterModule(ctx context.Context, codeID uint64, init []byte) (Module, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr, err := d.boundary.ActivateModule(ctx, codeID, init)
	if err != nil {
		return Module{}, errors.Wrapf(err, "activate module %d", codeID)
	}
	if err := addr.Validate(); err != nil {
		return Module{}, errors.Wrap(errors.ErrActivation, "boundary returned an invalid module address")
	}
	mod := Module{
		CodeID:  codeID,
		Init:    append([]byte(nil), init...),
		Address: addr.Clone(),
	}
	d.modules = append(d.modules, mod)
	return mod, nil
}

// Modules returns all registered modules in registration order.
func (d *Distributor) Modules() []Module {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mods := make([]Module, len(d.modules))
	copy(mods, d.modules)
	return mods
}

// InvokeModule forwards an opaque action to a registered module. It fails
// with ErrUnknownModule if no module with given address was ever
// registered. The action and its result are not interpreted beyond
// success or failure.
//
// Invocations can run concurrently with each other and with read only
// queries, but never overlap with a share update or a settlement.
func (d *Distributor) InvokeModule(ctx context.Context, module splitter.Address, action []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.isRegistered(module) {
		return nil, errors.Wrapf(errors.ErrUnknownModule, "module %s", module)
	}
	data, err := d.boundary.InvokeModule(ctx, module, action)
	if err != nil {
		return nil, errors.Wrapf(err, "invoke module %s", module)
	}
	return data, nil
}

// InvokeRepeat invokes the same module n times in sequence and reports
// each result separately. A failed invocation does not stop the following
// ones. This is not a batch, every invocation is dispatched on its own.
func (d *Distributor) InvokeRepeat(ctx context.Context, module splitter.Address, action []byte, n int) []InvocationResult {
	results := make([]InvocationResult, 0, n)
	for i := 0; i < n; i++ {
		data, err := d.InvokeModule(ctx, module, action)
		results = append(results, InvocationResult{Data: data, Err: err})
	}
	return results
}

// isRegistered must be called with the lock held.
func (d *Distributor) isRegistered(module splitter.Address) bool {
	for _, m := range d.modules {
		if m.Address.Equals(module) {
			return true
		}
	}
	return false
}
