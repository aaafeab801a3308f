package task

import (
	"fmt"
	"sort"
	"time"
)

// Policy holds the static retry metadata bound to a task name.
type Policy struct {
	// MaxRetries is the number of requeues allowed after the first
	// attempt. A task that always fails executes MaxRetries+1 times.
	MaxRetries int

	// BaseBackoff is the base delay for the generic backoff schedule:
	// BaseBackoff * (retryCount + 1).
	BaseBackoff time.Duration
}

// Registration binds a task name to its handler and policy.
type Registration struct {
	Name    string
	Handler Handler
	Policy  Policy
}

// Registry maps task names to registrations. Registration happens once at
// process start; lookups are read-only thereafter, so no locking is needed.
type Registry struct {
	entries map[string]Registration
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Registration),
	}
}

// Register binds a unique name to a handler and policy. Registering the
// same name twice is a programming error and fails loudly.
func (r *Registry) Register(name string, handler Handler, policy Policy) error {
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for task %q cannot be nil", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("task %q is already registered", name)
	}

	r.entries[name] = Registration{
		Name:    name,
		Handler: handler,
		Policy:  policy,
	}
	return nil
}

// Lookup returns the registration for the named task, or ErrTaskNotFound
// wrapped with the name if it was never registered.
func (r *Registry) Lookup(name string) (Registration, error) {
	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return reg, nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
