package stratagem

// Victory thresholds for the tournament ruleset.
const (
	DominationProvinces = 15  // provinces held to start a domination streak
	DominationTurns     = 2   // consecutive turns the hold must last
	EconomicGold        = 100 // gold stockpile for an economic victory
)

// Score weights for the max-turns tiebreak.
const (
	scorePerProvince = 3
	scorePerUnit     = 1
	scoreGoldDivisor = 5
	scorePerTech     = 5
	scorePerAge      = 10
)

// VictoryKind names the condition that ended a match.
type VictoryKind string

const (
	VictoryDomination  VictoryKind = "domination"
	VictoryElimination VictoryKind = "elimination"
	VictoryEconomic    VictoryKind = "economic"
	VictoryScore       VictoryKind = "score"
)

// VictoryCheck is the outcome of one evaluation.
type VictoryCheck struct {
	Winner string      `json:"winner,omitempty"`
	Kind   VictoryKind `json:"kind,omitempty"`
}

// checkEliminations flips the alive flag for players who lost every
// province and every unit, and returns the newly eliminated IDs in sorted
// order.
func checkEliminations(gs *GameState) []string {
	var out []string
	for _, pid := range gs.PlayerIDs() {
		p := gs.Players[pid]
		if !p.Alive {
			continue
		}
		if len(gs.ProvincesOf(pid)) == 0 && len(gs.UnitsOf(pid)) == 0 {
			p.Alive = false
			out = append(out, pid)
		}
	}
	return out
}

// evaluateVictory runs the win conditions in fixed priority order:
// domination, elimination, economic, then score once the turn limit is
// reached. The first satisfied condition wins; otherwise the match
// continues. Domination streak counters advance here, so the evaluation
// must run exactly once per turn.
func evaluateVictory(gs *GameState) VictoryCheck {
	var alive []string
	for _, pid := range gs.PlayerIDs() {
		if gs.Players[pid].Alive {
			alive = append(alive, pid)
		}
	}

	for _, pid := range alive {
		p := gs.Players[pid]
		if len(gs.ProvincesOf(pid)) >= DominationProvinces {
			p.DominationStreak++
		} else {
			p.DominationStreak = 0
		}
	}
	for _, pid := range alive {
		if gs.Players[pid].DominationStreak >= DominationTurns {
			return VictoryCheck{Winner: pid, Kind: VictoryDomination}
		}
	}

	if len(alive) == 1 {
		return VictoryCheck{Winner: alive[0], Kind: VictoryElimination}
	}

	for _, pid := range alive {
		p := gs.Players[pid]
		if p.Resources[ResGold] >= EconomicGold && gs.Provinces[p.Capital] != nil && gs.Provinces[p.Capital].Owner == pid {
			return VictoryCheck{Winner: pid, Kind: VictoryEconomic}
		}
	}

	if gs.Turn >= gs.MaxTurns {
		best := ""
		for _, pid := range alive {
			p := gs.Players[pid]
			p.Score = scoreOf(gs, pid)
			if best == "" || p.Score > gs.Players[best].Score {
				best = pid
			}
		}
		if best != "" {
			return VictoryCheck{Winner: best, Kind: VictoryScore}
		}
	}
	return VictoryCheck{}
}

// scoreOf is the documented weighted score: provinces x3, units x1,
// gold/5, techs x5, age x10.
func scoreOf(gs *GameState, pid string) int {
	p := gs.Players[pid]
	return len(gs.ProvincesOf(pid))*scorePerProvince +
		len(gs.UnitsOf(pid))*scorePerUnit +
		p.Resources[ResGold]/scoreGoldDivisor +
		len(p.Techs)*scorePerTech +
		p.Age*scorePerAge
}
