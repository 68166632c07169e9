package memory

import (
	"fmt"
	"sync"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
)

// CleanupFunc releases memory held by a feature module.
type CleanupFunc func() error

// CallbackFailure describes one cleanup callback that returned an error or panicked.
type CallbackFailure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
	// Message mirrors Err for JSON consumers.
	Message string `json:"error"`
}

// CleanupRegistry maps names to cleanup callbacks and runs them in
// registration order.
type CleanupRegistry struct {
	mu    sync.Mutex
	names []string
	funcs map[string]CleanupFunc
}

// NewCleanupRegistry creates an empty registry.
func NewCleanupRegistry() *CleanupRegistry {
	return &CleanupRegistry{funcs: make(map[string]CleanupFunc)}
}

// Register adds cb under name. Registering an existing name replaces the
// callback but keeps its position in the run order.
func (r *CleanupRegistry) Register(name string, cb CleanupFunc) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; !ok {
		r.names = append(r.names, name)
	}
	r.funcs[name] = cb
}

// Unregister removes name. Unknown names are ignored.
func (r *CleanupRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; !ok {
		return
	}
	delete(r.funcs, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Names returns registered names in run order.
func (r *CleanupRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered callbacks.
func (r *CleanupRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// Clear removes every callback.
func (r *CleanupRegistry) Clear() {
	r.mu.Lock()
	r.names = nil
	r.funcs = make(map[string]CleanupFunc)
	r.mu.Unlock()
}

// Run invokes every callback in order. A failing callback is logged and
// recorded; the remaining callbacks still run.
func (r *CleanupRegistry) Run() []CallbackFailure {
	// Snapshot so callbacks may register or unregister without deadlocking.
	r.mu.Lock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	funcs := make([]CleanupFunc, len(names))
	for i, n := range names {
		funcs[i] = r.funcs[n]
	}
	r.mu.Unlock()

	var failures []CallbackFailure
	for i, cb := range funcs {
		if err := invoke(cb); err != nil {
			logger.WithComponent("memory").Error("cleanup callback failed",
				"callback", names[i],
				"error", err)
			failures = append(failures, CallbackFailure{Name: names[i], Err: err, Message: err.Error()})
		}
	}
	return failures
}

func invoke(cb CleanupFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return cb()
}
