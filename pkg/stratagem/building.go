package stratagem

// BuildingType enumerates constructible improvements. Buildings complete in
// the turn they are ordered, at most one per province per turn.
type BuildingType string

const (
	Farm       BuildingType = "farm"
	Mine       BuildingType = "mine"
	Market     BuildingType = "market"
	Barracks   BuildingType = "barracks"
	Fortress   BuildingType = "fortress"
	TradePost  BuildingType = "trade_post"
	Watchtower BuildingType = "watchtower"
)

// Short returns the one-letter wire code for the building.
func (b BuildingType) Short() string {
	switch b {
	case Farm:
		return "F"
	case Mine:
		return "M"
	case Market:
		return "K"
	case Barracks:
		return "B"
	case Fortress:
		return "X"
	case TradePost:
		return "T"
	case Watchtower:
		return "W"
	default:
		return "?"
	}
}

// BuildingStats describes the static properties of a building type.
type BuildingStats struct {
	Cost   Resources
	Yield  Resources // added to the owner's income each turn
	MinAge int
}

var buildingStats = map[BuildingType]BuildingStats{
	Farm:       {Cost: Resources{2, 0, 0}, Yield: Resources{2, 0, 0}, MinAge: 1},
	Mine:       {Cost: Resources{0, 2, 0}, Yield: Resources{0, 2, 0}, MinAge: 1},
	Market:     {Cost: Resources{0, 0, 3}, Yield: Resources{0, 0, 2}, MinAge: 1},
	Barracks:   {Cost: Resources{0, 2, 0}, MinAge: 1},
	Fortress:   {Cost: Resources{0, 3, 2}, MinAge: 2},
	TradePost:  {Cost: Resources{0, 0, 2}, MinAge: 2},
	Watchtower: {Cost: Resources{0, 1, 1}, MinAge: 2},
}

// Stats returns the static stat block for the building type.
func (b BuildingType) Stats() BuildingStats {
	return buildingStats[b]
}

// Known reports whether the string names a real building type.
func (b BuildingType) Known() bool {
	_, ok := buildingStats[b]
	return ok
}

// FortressDefense is the flat strength a fortress adds to the defending side.
const FortressDefense = 3

// BarracksFoodDiscount reduces unit food cost by one in provinces with a barracks.
const BarracksFoodDiscount = 1
