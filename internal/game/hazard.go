package game

import "sort"

// Zone is the kind of mark a pattern places on a cell.
type Zone uint8

const (
	ZoneTelegraph Zone = iota // warning, not lethal
	ZoneStrike
	ZoneShockwave
	ZoneTrail
	ZoneSafe  // guardian protection, cancels lethality
	ZoneEnemy // enemy marker, presentation only
)

// String returns the zone name used in snapshots and logs
func (z Zone) String() string {
	switch z {
	case ZoneTelegraph:
		return "telegraph"
	case ZoneStrike:
		return "strike"
	case ZoneShockwave:
		return "shockwave"
	case ZoneTrail:
		return "trail"
	case ZoneSafe:
		return "safe"
	case ZoneEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// ParseZone maps a zone name back to its Zone
func ParseZone(name string) (Zone, bool) {
	for z := ZoneTelegraph; z <= ZoneEnemy; z++ {
		if z.String() == name {
			return z, true
		}
	}
	return 0, false
}

// Lethal reports whether the zone damages a player standing in it
func (z Zone) Lethal() bool {
	return z == ZoneStrike || z == ZoneShockwave || z == ZoneTrail
}

// Tag identifies one pattern's mark on a cell.
type Tag struct {
	Pattern uint64
	Zone    Zone
}

// HazardTable holds, for every cell, a multiset of tags.
// Patterns only ever add and remove their own tags, so overlapping
// patterns on a shared cell never erase each other.
type HazardTable struct {
	cells []map[Tag]int
}

// NewHazardTable creates an empty table for cellCount cells
func NewHazardTable(cellCount int) *HazardTable {
	return &HazardTable{cells: make([]map[Tag]int, cellCount)}
}

// Len returns the number of cells
func (h *HazardTable) Len() int {
	return len(h.cells)
}

func (h *HazardTable) valid(cell int) bool {
	return cell >= 0 && cell < len(h.cells)
}

// Add places one instance of tag on cell. Returns false for invalid cells.
func (h *HazardTable) Add(cell int, tag Tag) bool {
	if !h.valid(cell) {
		return false
	}
	if h.cells[cell] == nil {
		h.cells[cell] = make(map[Tag]int, 2)
	}
	h.cells[cell][tag]++
	return true
}

// Remove takes one instance of tag off cell. Removing an absent tag is a no-op.
func (h *HazardTable) Remove(cell int, tag Tag) bool {
	if !h.valid(cell) {
		return false
	}
	m := h.cells[cell]
	n, ok := m[tag]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(m, tag)
	} else {
		m[tag] = n - 1
	}
	return true
}

// Strip removes every lethal tag on cell regardless of owner.
// Returns the number of tag instances removed.
func (h *HazardTable) Strip(cell int) int {
	if !h.valid(cell) {
		return 0
	}
	removed := 0
	for tag, n := range h.cells[cell] {
		if tag.Zone.Lethal() {
			removed += n
			delete(h.cells[cell], tag)
		}
	}
	return removed
}

// Has reports whether any pattern marks cell with zone
func (h *HazardTable) Has(cell int, zone Zone) bool {
	if !h.valid(cell) {
		return false
	}
	for tag := range h.cells[cell] {
		if tag.Zone == zone {
			return true
		}
	}
	return false
}

// Lethal reports whether cell carries a strike, shockwave or trail tag
// and no safe tag.
func (h *HazardTable) Lethal(cell int) bool {
	if !h.valid(cell) {
		return false
	}
	lethal := false
	for tag := range h.cells[cell] {
		if tag.Zone == ZoneSafe {
			return false
		}
		if tag.Zone.Lethal() {
			lethal = true
		}
	}
	return lethal
}

// Tags returns the tags on cell ordered by pattern then zone.
// Multiplicity is not reported.
func (h *HazardTable) Tags(cell int) []Tag {
	if !h.valid(cell) || len(h.cells[cell]) == 0 {
		return nil
	}
	tags := make([]Tag, 0, len(h.cells[cell]))
	for tag := range h.cells[cell] {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Pattern != tags[j].Pattern {
			return tags[i].Pattern < tags[j].Pattern
		}
		return tags[i].Zone < tags[j].Zone
	})
	return tags
}

// Zones returns the distinct zones present on cell in ascending order
func (h *HazardTable) Zones(cell int) []Zone {
	if !h.valid(cell) || len(h.cells[cell]) == 0 {
		return nil
	}
	var seen [ZoneEnemy + 1]bool
	for tag := range h.cells[cell] {
		seen[tag.Zone] = true
	}
	zones := make([]Zone, 0, len(seen))
	for z, ok := range seen {
		if ok {
			zones = append(zones, Zone(z))
		}
	}
	return zones
}

// Count returns how many instances of tag sit on cell
func (h *HazardTable) Count(cell int, tag Tag) int {
	if !h.valid(cell) {
		return 0
	}
	return h.cells[cell][tag]
}

// Empty reports whether no cell carries any tag
func (h *HazardTable) Empty() bool {
	for _, m := range h.cells {
		if len(m) > 0 {
			return false
		}
	}
	return true
}

// Clear drops every tag
func (h *HazardTable) Clear() {
	for i := range h.cells {
		h.cells[i] = nil
	}
}
