package game

import (
	"fmt"

	"grid-arena/internal/config"
)

// RulesFromConfig converts the configured tunables into Rules.
// Wave kinds are pattern names; an unknown name is an error.
func RulesFromConfig(c config.RulesConfig) (Rules, error) {
	r := Rules{
		MaxHealth:             c.MaxHealth,
		DashDistance:          c.DashDistance,
		DashCooldown:          c.DashCooldown,
		InvincibilityDuration: c.InvincibilityDuration,
		ScoreInterval:         c.ScoreInterval,
		CollisionInterval:     c.CollisionInterval,
		Spawn: SpawnConfig{
			InitialRate:        c.SpawnInitialRate,
			MinRate:            c.SpawnMinRate,
			DifficultyInterval: c.SpawnDifficultyInterval,
			Multiplier:         c.SpawnMultiplier,
		},
		Waves: make([]Wave, 0, len(c.Waves)),
	}

	for i, wc := range c.Waves {
		w := Wave{Score: wc.Score, Duration: wc.Duration}
		for _, name := range wc.Kinds {
			kind, err := ParsePatternKind(name)
			if err != nil {
				return Rules{}, fmt.Errorf("wave %d: %w", i, err)
			}
			w.Kinds = append(w.Kinds, kind)
		}
		r.Waves = append(r.Waves, w)
	}
	return r, nil
}

// LimitsFromConfig converts the configured snapshot limits, falling back to
// DefaultLimits for unset values
func LimitsFromConfig(c config.EngineConfig) ResourceLimits {
	l := DefaultLimits
	if c.MaxCells > 0 {
		l.MaxCells = c.MaxCells
	}
	if c.MaxPatterns > 0 {
		l.MaxPatterns = c.MaxPatterns
	}
	return l
}
