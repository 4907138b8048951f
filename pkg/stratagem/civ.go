package stratagem

// Civ identifies a civilization. Assignment is fixed at match creation and
// immutable for the life of the match.
type Civ string

const (
	Ironborn    Civ = "ironborn"
	Verdanti    Civ = "verdanti"
	Tidecallers Civ = "tidecallers"
	Ashwalkers  Civ = "ashwalkers"
)

// AllCivs returns the civilizations in slot-assignment order.
func AllCivs() []Civ {
	return []Civ{Ironborn, Verdanti, Tidecallers, Ashwalkers}
}

// Known reports whether the string names a real civilization.
func (c Civ) Known() bool {
	switch c {
	case Ironborn, Verdanti, Tidecallers, Ashwalkers:
		return true
	}
	return false
}

// UniqueUnit returns the civilization's unique unit type.
func (c Civ) UniqueUnit() UnitType {
	switch c {
	case Ironborn:
		return Huscarl
	case Verdanti:
		return Herbalist
	case Tidecallers:
		return Corsair
	case Ashwalkers:
		return Sage
	default:
		return ""
	}
}

// UnitDiscount applies the civilization's unit-cost modifier.
// Ironborn military units cost one less iron.
func (c Civ) UnitDiscount(cost Resources) Resources {
	if c == Ironborn && cost[ResIron] > 0 {
		cost[ResIron]--
	}
	return cost
}

// TechDiscount applies the civilization's research-cost modifier.
// Ashwalkers pay 75% (rounded down) for techs and age advances.
func (c Civ) TechDiscount(cost Resources) Resources {
	if c == Ashwalkers {
		for i := range cost {
			cost[i] = cost[i] * 3 / 4
		}
	}
	return cost
}

// TradeMultiplier scales trade-route income. Tidecallers collect +50%.
func (c Civ) TradeMultiplier(income int) int {
	if c == Tidecallers {
		return income * 3 / 2
	}
	return income
}

// FoodBonus is the flat extra food each owned province yields per turn.
func (c Civ) FoodBonus() int {
	if c == Verdanti {
		return 1
	}
	return 0
}

// CorsairCaptureGold is the gold a winning side with corsairs loots per
// enemy unit destroyed.
const CorsairCaptureGold = 2
