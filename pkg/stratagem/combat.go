package stratagem

import "sort"

// CombatResult is the immutable record of one battle.
type CombatResult struct {
	Province string         `json:"province"`
	Sides    map[string]int `json:"sides"` // player -> effective strength
	Winner   string         `json:"winner"`
	Losses   map[string]int `json:"losses"` // player -> units lost
	Loot     int            `json:"loot,omitempty"`
}

// resolveCombat fights out one contested province and mutates the garrison,
// veterancy and ownership accordingly. Resolution is a pure function of the
// garrison compositions and modifiers: identical inputs always produce the
// identical winner, casualties and veterancy changes.
func resolveCombat(gs *GameState, w *WorldMap, provID string, res *TurnResult) *CombatResult {
	sides := make(map[string][]*Unit)
	for _, u := range gs.UnitsAt(provID) {
		sides[u.Owner] = append(sides[u.Owner], u)
	}
	if len(sides) < 2 {
		return nil
	}
	ps := gs.Provinces[provID]
	prov := w.Province(provID)

	strengths := make(map[string]int, len(sides))
	for pid, units := range sides {
		strengths[pid] = sideStrength(gs, prov, ps, pid, units, sides)
	}

	winner := pickWinner(strengths, ps.Owner)

	losses := make(map[string]int)
	doomed := make(map[string]bool)
	loserStrength := 0
	for pid, units := range sides {
		if pid == winner {
			continue
		}
		loserStrength += strengths[pid]
		losses[pid] = len(units)
		for _, u := range units {
			doomed[u.ID] = true
		}
	}
	enemyDead := len(doomed)

	// Winner casualties: weakest first, never the last unit standing.
	survivors := append([]*Unit(nil), sides[winner]...)
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Strength() != survivors[j].Strength() {
			return survivors[i].Strength() < survivors[j].Strength()
		}
		return survivors[i].Seq < survivors[j].Seq
	})
	casualties := loserStrength / 4
	if max := len(survivors) - 1; casualties > max {
		casualties = max
	}
	for i := 0; i < casualties; i++ {
		doomed[survivors[i].ID] = true
		losses[winner]++
	}
	survivors = survivors[casualties:]

	loot := 0
	hasCorsair := false
	for _, u := range survivors {
		if u.Veterancy < VeterancyCap {
			u.Veterancy++
		}
		if u.Type == Corsair {
			hasCorsair = true
		}
	}
	if hasCorsair {
		loot = enemyDead * CorsairCaptureGold
		gs.Players[winner].Resources[ResGold] += loot
	}

	gs.removeUnits(doomed)
	ps.Owner = winner

	combat := &CombatResult{
		Province: provID,
		Sides:    strengths,
		Winner:   winner,
		Losses:   losses,
		Loot:     loot,
	}
	res.event("battle at %s: %s wins with strength %d", provID, winner, strengths[winner])
	return combat
}

// sideStrength totals one side's effective strength in a province.
func sideStrength(gs *GameState, prov *MapProvince, ps *ProvinceState, pid string, units []*Unit, sides map[string][]*Unit) int {
	player := gs.Players[pid]
	defending := ps.Owner == pid

	enemyTypes := make(map[UnitType]bool)
	for opid, ounits := range sides {
		if opid == pid {
			continue
		}
		for _, ou := range ounits {
			enemyTypes[ou.Type] = true
		}
	}

	total := 0
	for _, u := range units {
		s := u.Strength()
		if player.HasTech(Tactics) {
			s++
		}
		if counter, ok := u.Type.CountersType(); ok && enemyTypes[counter] {
			s += TriangleBonus
		}
		s += u.Type.TerrainBonus(prov.Terrain)
		if u.Type == Siege && !defending && ps.HasBuilding(Fortress) && player.HasTech(SiegeCraft) {
			s += 3
		}
		total += s
	}

	if defending {
		total += prov.Terrain.DefenseBonus()
		if ps.HasBuilding(Fortress) {
			total += FortressDefense
		}
		if player.HasTech(Fortification) {
			total++
		}
	} else if prov.Terrain == River {
		// Crossing a river costs attackers one strength per unit.
		total -= len(units)
		if total < 0 {
			total = 0
		}
	}
	return total
}

// pickWinner selects the highest strength; ties favor the defender, then
// the lexically first player ID for reproducibility.
func pickWinner(strengths map[string]int, defender string) string {
	ids := make([]string, 0, len(strengths))
	for pid := range strengths {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if strengths[a] != strengths[b] {
			return strengths[a] > strengths[b]
		}
		if (a == defender) != (b == defender) {
			return a == defender
		}
		return a < b
	})
	return ids[0]
}
