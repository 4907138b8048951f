package stratagem

// TechID names a researchable technology. Techs are grouped by age; a player
// selects at most one tech per age, permanently.
type TechID string

const (
	// Bronze age (1)
	Agriculture TechID = "agr"
	Mining      TechID = "min"
	Masonry     TechID = "mas"
	// Iron age (2)
	Tactics       TechID = "tac"
	Commerce      TechID = "com"
	Fortification TechID = "for"
	// Steel age (3)
	Blitz         TechID = "bli"
	SiegeCraft    TechID = "sie"
	DiplomacyTech TechID = "dip"
)

// MaxAge is the highest reachable age (1=Bronze, 2=Iron, 3=Steel).
const MaxAge = 3

var techAge = map[TechID]int{
	Agriculture: 1, Mining: 1, Masonry: 1,
	Tactics: 2, Commerce: 2, Fortification: 2,
	Blitz: 3, SiegeCraft: 3, DiplomacyTech: 3,
}

var techCost = map[TechID]Resources{
	Agriculture: {3, 0, 2}, Mining: {0, 3, 2}, Masonry: {2, 2, 1},
	Tactics: {3, 3, 2}, Commerce: {2, 0, 5}, Fortification: {2, 4, 2},
	Blitz: {5, 5, 3}, SiegeCraft: {3, 6, 3}, DiplomacyTech: {3, 3, 6},
}

// ageCost is the stockpile consumed to advance to age 2 and 3.
var ageCost = map[int]Resources{
	2: {10, 8, 5},
	3: {15, 12, 10},
}

// Known reports whether the string names a real tech.
func (t TechID) Known() bool {
	_, ok := techAge[t]
	return ok
}

// Age returns the age tier the tech belongs to.
func (t TechID) Age() int {
	return techAge[t]
}

// Cost returns the undiscounted research cost.
func (t TechID) Cost() Resources {
	return techCost[t]
}

// AgeAdvanceCost returns the cost of advancing to the given age, and whether
// that age exists.
func AgeAdvanceCost(age int) (Resources, bool) {
	c, ok := ageCost[age]
	return c, ok
}

// CanResearch checks the tech selection rules: the tech's age must be
// reached, and no tech of that age group may already be selected. Selecting
// one tech for an age forecloses the others for that age forever.
func CanResearch(playerAge int, selected []TechID, tech TechID) bool {
	if !tech.Known() || tech.Age() > playerAge {
		return false
	}
	for _, have := range selected {
		if have == tech {
			return false
		}
		if have.Age() == tech.Age() {
			return false
		}
	}
	return true
}

// TreatyIncomeGold is the per-active-treaty gold bonus granted by the
// diplomacy tech.
const TreatyIncomeGold = 2
