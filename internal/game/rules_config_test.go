package game

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"grid-arena/internal/config"
)

func TestRulesFromConfigMatchesDefaults(t *testing.T) {
	got, err := RulesFromConfig(config.DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	if want := DefaultRules(); !reflect.DeepEqual(got, want) {
		t.Errorf("config defaults drifted from game defaults:\n got %+v\nwant %+v", got, want)
	}
}

func TestRulesFromConfigUnknownKind(t *testing.T) {
	c := config.DefaultRules()
	c.Waves = []config.WaveConfig{{Score: 5, Kinds: []string{"Laser", "dragon"}}}

	if _, err := RulesFromConfig(c); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("Expected ErrUnknownPattern, got %v", err)
	}
}

func TestLimitsFromConfig(t *testing.T) {
	if l := LimitsFromConfig(config.EngineConfig{}); l != DefaultLimits {
		t.Errorf("Expected defaults, got %+v", l)
	}
	if l := LimitsFromConfig(config.EngineConfig{MaxPatterns: 8}); l.MaxPatterns != 8 || l.MaxCells != DefaultLimits.MaxCells {
		t.Errorf("unexpected limits %+v", l)
	}
}

func TestConfiguredGridSizeClamped(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"default", config.DefaultGrid().DefaultSize, 7},
		{"too large", 40, MaxGridSize},
		{"too small", 2, MinGridSize},
		{"even", 12, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(EngineConfig{GridSize: tt.size, Clock: NewManualClock(time.Unix(0, 0))})
			if got := e.GridSize(); got != tt.want {
				t.Errorf("GridSize() = %d, want %d", got, tt.want)
			}
		})
	}
}
