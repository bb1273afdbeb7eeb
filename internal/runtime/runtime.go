package runtime

import "fmt"

// Policy decides what an Env does with a name that has no binding.
type Policy int

const (
	// PolicyStrict fails the execution with ErrUnbound.
	PolicyStrict Policy = iota
	// PolicyDefault yields the Env's default value.
	PolicyDefault
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyDefault:
		return "default"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "default":
		return PolicyDefault, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown resolver policy %q", s)
	}
}
