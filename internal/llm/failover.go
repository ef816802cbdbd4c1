package llm

import "fmt"

// Strategy selects how the primary and secondary backends are ordered for
// answer generation.
type Strategy int

const (
	// StrategyHybrid tries the primary backend and falls back to the
	// secondary on failure.
	StrategyHybrid Strategy = iota
	// StrategyPrimaryOnly uses only the primary backend.
	StrategyPrimaryOnly
	// StrategySecondaryOnly uses only the secondary backend.
	StrategySecondaryOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyHybrid:
		return "hybrid"
	case StrategyPrimaryOnly:
		return "primary"
	case StrategySecondaryOnly:
		return "secondary"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration value to a Strategy. Unknown values
// are an error so misconfiguration fails at startup, not mid-interview.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "hybrid", "":
		return StrategyHybrid, nil
	case "primary":
		return StrategyPrimaryOnly, nil
	case "secondary":
		return StrategySecondaryOnly, nil
	default:
		return StrategyHybrid, fmt.Errorf("unknown llm strategy %q", s)
	}
}

// Order returns the clients to attempt, in order. Nil clients are skipped
// so a deployment with a single configured backend still works under any
// strategy.
func (s Strategy) Order(primary, secondary Client) []Client {
	var order []Client
	switch s {
	case StrategyPrimaryOnly:
		order = []Client{primary}
	case StrategySecondaryOnly:
		order = []Client{secondary}
	default:
		order = []Client{primary, secondary}
	}

	out := order[:0]
	for _, c := range order {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
