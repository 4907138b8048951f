package stratagem

// UnitType enumerates every unit kind, including civilization uniques.
// The set is closed; unknown strings never enter the engine because
// validation parses them before orders are accepted.
type UnitType string

const (
	Militia  UnitType = "militia"
	Infantry UnitType = "infantry"
	Archers  UnitType = "archers"
	Cavalry  UnitType = "cavalry"
	Siege    UnitType = "siege"
	Knights  UnitType = "knights"
	Scout    UnitType = "scout"

	// Civilization unique units.
	Huscarl   UnitType = "huscarl"
	Herbalist UnitType = "herbalist"
	Corsair   UnitType = "corsair"
	Sage      UnitType = "sage"
)

// unitOrder fixes the index of each base type in compact count-per-type
// arrays. Wire views depend on this ordering; never reorder.
var unitOrder = []UnitType{Militia, Infantry, Archers, Cavalry, Siege, Knights, Scout}

// UnitOrder returns the fixed base-type ordering used by compact encodings.
func UnitOrder() []UnitType {
	return unitOrder
}

// UnitStats describes the static properties of a unit type.
type UnitStats struct {
	Cost     Resources
	Strength int
	Speed    int
	MinAge   int
	Upkeep   int // food per turn
}

var unitStats = map[UnitType]UnitStats{
	Militia:   {Cost: Resources{1, 0, 0}, Strength: 1, Speed: 1, MinAge: 1, Upkeep: 0},
	Infantry:  {Cost: Resources{1, 1, 0}, Strength: 3, Speed: 1, MinAge: 1, Upkeep: 1},
	Archers:   {Cost: Resources{1, 0, 1}, Strength: 2, Speed: 1, MinAge: 2, Upkeep: 1},
	Cavalry:   {Cost: Resources{2, 1, 0}, Strength: 3, Speed: 2, MinAge: 2, Upkeep: 1},
	Siege:     {Cost: Resources{0, 2, 2}, Strength: 1, Speed: 1, MinAge: 3, Upkeep: 1},
	Knights:   {Cost: Resources{2, 2, 1}, Strength: 5, Speed: 2, MinAge: 3, Upkeep: 1},
	Scout:     {Cost: Resources{0, 0, 1}, Strength: 0, Speed: 3, MinAge: 1, Upkeep: 0},
	Huscarl:   {Cost: Resources{1, 2, 0}, Strength: 6, Speed: 1, MinAge: 2, Upkeep: 1},
	Herbalist: {Cost: Resources{2, 0, 1}, Strength: 1, Speed: 1, MinAge: 2, Upkeep: 1},
	Corsair:   {Cost: Resources{1, 1, 1}, Strength: 3, Speed: 2, MinAge: 2, Upkeep: 1},
	Sage:      {Cost: Resources{1, 0, 2}, Strength: 1, Speed: 1, MinAge: 2, Upkeep: 1},
}

// Stats returns the static stat block for the unit type.
func (t UnitType) Stats() UnitStats {
	return unitStats[t]
}

// Known reports whether the string names a real unit type.
func (t UnitType) Known() bool {
	_, ok := unitStats[t]
	return ok
}

// strongAgainst is the type-advantage cycle over the base types. Each base
// type is strong against exactly one type (+2 in combat) and weak against
// exactly one. Unique units sit outside the cycle.
var strongAgainst = map[UnitType]UnitType{
	Infantry: Cavalry,
	Cavalry:  Archers,
	Archers:  Siege,
	Siege:    Knights,
	Knights:  Militia,
	Militia:  Scout,
	Scout:    Infantry,
}

// TriangleBonus is the strength bonus attacker type gains per unit when the
// opposing side fields at least one unit of the countered type.
const TriangleBonus = 2

// CountersType returns the type this unit type is strong against, and
// whether it participates in the advantage cycle.
func (t UnitType) CountersType() (UnitType, bool) {
	c, ok := strongAgainst[t]
	return c, ok
}

// terrainAffinity gives certain types a +1 strength bonus on home terrain.
var terrainAffinity = map[UnitType]Terrain{
	Cavalry: Plains,
	Archers: Forest,
}

// TerrainBonus returns the flat strength bonus this unit type gets when
// fighting on the given terrain.
func (t UnitType) TerrainBonus(terrain Terrain) int {
	if terrainAffinity[t] == terrain && terrain != "" {
		return 1
	}
	return 0
}

// Unit is one military unit. Units live in the GameState arena and are
// addressed by ID; provinces never hold unit references.
type Unit struct {
	ID        string   `json:"id"`
	Type      UnitType `json:"type"`
	Owner     string   `json:"owner"`
	Province  string   `json:"province"`
	Veterancy int      `json:"veterancy"`
	Seq       int      `json:"seq"` // creation order, breaks casualty ties
}

// VeterancyCap is the maximum cumulative veterancy bonus a unit can accrue.
const VeterancyCap = 2

// Strength is the unit's effective base strength including veterancy.
func (u *Unit) Strength() int {
	return u.Type.Stats().Strength + u.Veterancy
}
