package game

import (
	"encoding/json"
	"testing"
)

func TestHazardOverlappingPatternsKeepTheirTags(t *testing.T) {
	h := NewHazardTable(25)
	a := Tag{Pattern: 1, Zone: ZoneStrike}
	b := Tag{Pattern: 2, Zone: ZoneStrike}

	h.Add(7, a)
	h.Add(7, b)
	h.Remove(7, a)

	if !h.Lethal(7) {
		t.Fatal("pattern 1 clearing erased pattern 2's strike")
	}
	h.Remove(7, b)
	if h.Lethal(7) || !h.Empty() {
		t.Error("cell should be clear after both patterns removed their tags")
	}
}

func TestHazardCountsNetOut(t *testing.T) {
	h := NewHazardTable(9)
	tag := Tag{Pattern: 3, Zone: ZoneTrail}

	h.Add(4, tag)
	h.Add(4, tag)
	h.Remove(4, tag)
	if got := h.Count(4, tag); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	h.Remove(4, tag)
	h.Remove(4, tag) // absent: no-op
	if got := h.Count(4, tag); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestHazardLethality(t *testing.T) {
	tests := []struct {
		name  string
		zones []Zone
		want  bool
	}{
		{"empty", nil, false},
		{"telegraph", []Zone{ZoneTelegraph}, false},
		{"enemy", []Zone{ZoneEnemy}, false},
		{"strike", []Zone{ZoneStrike}, true},
		{"shockwave", []Zone{ZoneShockwave}, true},
		{"trail", []Zone{ZoneTrail}, true},
		{"strike under safe", []Zone{ZoneStrike, ZoneSafe}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHazardTable(1)
			for i, z := range tt.zones {
				h.Add(0, Tag{Pattern: uint64(i + 1), Zone: z})
			}
			if got := h.Lethal(0); got != tt.want {
				t.Errorf("Lethal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHazardStripRemovesOnlyLethal(t *testing.T) {
	h := NewHazardTable(4)
	h.Add(2, Tag{Pattern: 1, Zone: ZoneStrike})
	h.Add(2, Tag{Pattern: 2, Zone: ZoneTrail})
	h.Add(2, Tag{Pattern: 2, Zone: ZoneEnemy})
	h.Add(2, Tag{Pattern: 3, Zone: ZoneTelegraph})

	if n := h.Strip(2); n != 2 {
		t.Errorf("Strip removed %d, want 2", n)
	}
	zones := h.Zones(2)
	if len(zones) != 2 || zones[0] != ZoneTelegraph || zones[1] != ZoneEnemy {
		t.Errorf("zones after strip = %v", zones)
	}
}

func TestHazardInvalidCells(t *testing.T) {
	h := NewHazardTable(4)
	if h.Add(-1, Tag{}) || h.Add(4, Tag{}) {
		t.Error("Add accepted out-of-range cell")
	}
	if h.Lethal(99) || h.Tags(99) != nil {
		t.Error("out-of-range reads should be empty")
	}
}

func TestZoneMaskJSON(t *testing.T) {
	m := MaskOf(ZoneTelegraph) | MaskOf(ZoneEnemy)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["telegraph","enemy"]` {
		t.Errorf("unexpected encoding %s", data)
	}

	var back ZoneMask
	if err := json.Unmarshal([]byte(`["enemy","telegraph","lava"]`), &back); err != nil {
		t.Fatal(err)
	}
	if back != m {
		t.Errorf("Expected %v, got %v (unknown names are skipped)", m.Zones(), back.Zones())
	}
}
