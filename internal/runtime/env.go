package runtime

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnbound is returned by a strict Env for a name with no binding.
var ErrUnbound = errors.New("unbound extern")

// ErrNoEnv is returned when Resolve is called on a nil *Env.
var ErrNoEnv = errors.New("no environment")

// Env holds the host's extern bindings. It implements vm.Resolver and is
// safe for concurrent use, so one Env can serve many executions while the
// host updates values between (or during) runs.
type Env struct {
	mu     sync.RWMutex
	values map[string]float64
	policy Policy
	def    float64
}

// DefaultEnv returns an empty, strict Env.
func DefaultEnv() *Env {
	return NewEnv(PolicyStrict, 0)
}

// NewEnv creates an Env with the given unresolved-name policy. def is the
// value returned for unbound names under PolicyDefault.
func NewEnv(policy Policy, def float64) *Env {
	return &Env{
		values: make(map[string]float64),
		policy: policy,
		def:    def,
	}
}

func (e *Env) Policy() Policy {
	return e.policy
}

// Set binds name to v.
func (e *Env) Set(name string, v float64) {
	e.mu.Lock()
	e.values[name] = v
	e.mu.Unlock()
}

// SetAll binds every entry of m.
func (e *Env) SetAll(m map[string]float64) {
	e.mu.Lock()
	for k, v := range m {
		e.values[k] = v
	}
	e.mu.Unlock()
}

// Delete removes the binding for name, if any.
func (e *Env) Delete(name string) {
	e.mu.Lock()
	delete(e.values, name)
	e.mu.Unlock()
}

// Get returns the bound value of name.
func (e *Env) Get(name string) (float64, bool) {
	e.mu.RLock()
	v, ok := e.values[name]
	e.mu.RUnlock()
	return v, ok
}

// Names returns the bound names in sorted order.
func (e *Env) Names() []string {
	e.mu.RLock()
	names := make([]string, 0, len(e.values))
	for k := range e.values {
		names = append(names, k)
	}
	e.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Resolve implements vm.Resolver. The slot is ignored; bindings are by name.
func (e *Env) Resolve(name string, _ int) (float64, error) {
	if e == nil {
		return 0, ErrNoEnv
	}
	if v, ok := e.Get(name); ok {
		return v, nil
	}
	if e.policy == PolicyDefault {
		return e.def, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnbound, name)
}
