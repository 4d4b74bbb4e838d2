package risk

import "fmt"

// Policy scales volatility into stop and target distances.
type Policy struct {
	Name string `json:"name" yaml:"name"`
	// Multiplier converts volatility pips to stop-loss pips.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	// RewardRatio converts stop-loss pips to take-profit pips.
	RewardRatio float64 `json:"reward_ratio" yaml:"reward_ratio"`
}

var (
	// CurrentPolicy is the live default: SL = 1.0x volatility, TP = 1.2x SL.
	CurrentPolicy = Policy{Name: "current", Multiplier: 1.0, RewardRatio: 1.2}
	// LegacyPolicy is the original wider setting: SL = 1.5x volatility, TP = 2x SL.
	LegacyPolicy = Policy{Name: "legacy", Multiplier: 1.5, RewardRatio: 2.0}
)

// PolicyByName resolves "current" (or "") and "legacy".
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "current":
		return CurrentPolicy, nil
	case "legacy":
		return LegacyPolicy, nil
	}
	return Policy{}, fmt.Errorf("unknown risk policy %q (want current|legacy)", name)
}

func (p Policy) Validate() error {
	if p.Multiplier <= 0 {
		return fmt.Errorf("risk multiplier must be positive, got %v", p.Multiplier)
	}
	if p.RewardRatio <= 0 {
		return fmt.Errorf("risk reward ratio must be positive, got %v", p.RewardRatio)
	}
	return nil
}
