package activity

import (
	"sync"
)

// Dispatcher delivers labels to registered callbacks in registration order.
// It is safe for concurrent use; Dispatch works on a snapshot so callbacks
// registered or removed mid-dispatch take effect on the next label.
type Dispatcher struct {
	mu      sync.RWMutex
	entries []*Registration
	nextID  uint64
}

// Registration is the handle returned by Register.
type Registration struct {
	id   uint64
	fn   ErrorCallback
	d    *Dispatcher
	once sync.Once
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a callback to the active set.
func (d *Dispatcher) Register(cb Callback) (*Registration, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	return d.add(func(activity string) error {
		cb(activity)
		return nil
	}), nil
}

// RegisterWithError adds a callback whose returned error is reported
// like a panic would be.
func (d *Dispatcher) RegisterWithError(cb ErrorCallback) (*Registration, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	return d.add(cb), nil
}

func (d *Dispatcher) add(fn ErrorCallback) *Registration {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	reg := &Registration{id: d.nextID, fn: fn, d: d}
	d.entries = append(d.entries, reg)
	return reg
}

// Unregister removes the callback. Calling it more than once is a no-op.
func (r *Registration) Unregister() {
	if r == nil || r.d == nil {
		return
	}
	r.once.Do(func() {
		r.d.remove(r.id)
	})
}

func (d *Dispatcher) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := make([]*Registration, 0, len(d.entries))
	for _, e := range d.entries {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	d.entries = kept
}

// Len returns the number of registered callbacks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Dispatch invokes every registered callback with label, synchronously and
// in registration order. A failing callback never prevents the remaining
// ones from running; each failure is returned as a *CallbackError.
func (d *Dispatcher) Dispatch(label string) []error {
	d.mu.RLock()
	snapshot := make([]*Registration, len(d.entries))
	copy(snapshot, d.entries)
	d.mu.RUnlock()

	var errs []error
	for i, reg := range snapshot {
		if err := invoke(reg.fn, label); err != nil {
			errs = append(errs, &CallbackError{Index: i, Label: label, Err: err})
		}
	}
	return errs
}

func invoke(fn ErrorCallback, label string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(label)
}
