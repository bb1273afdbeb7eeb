package vm

// Result is the outcome of one run.
type Result struct {
	// Values holds one entry per expression statement, in statement order.
	Values []float64
	// Locals is the local slot array after the run, indexed by slot.
	Locals []float64

	names []string
}

// Value returns the value of the last expression statement.
func (r *Result) Value() (float64, bool) {
	if len(r.Values) == 0 {
		return 0, false
	}
	return r.Values[len(r.Values)-1], true
}

// Bindings returns the locals keyed by name.
func (r *Result) Bindings() map[string]float64 {
	out := make(map[string]float64, len(r.names))
	for slot, name := range r.names {
		if slot < len(r.Locals) {
			out[name] = r.Locals[slot]
		}
	}
	return out
}

// Names returns the local names in slot order.
func (r *Result) Names() []string {
	return r.names
}
