package stratagem

import "fmt"

// TradeRoute links two trade-post provinces. Routes persist across turns;
// income and the raided flag are recomputed each turn at resolution.
type TradeRoute struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Owner   string `json:"owner"`
	Partner string `json:"partner,omitempty"` // allied destination owner for shared routes
	Income  int    `json:"income"`            // gold delivered last turn
	Raided  bool   `json:"raided"`            // true if raided last turn
}

// TradeRate is the gold earned per province of route distance.
const TradeRate = 1

func (gs *GameState) routeExists(from, to string) bool {
	for i := range gs.TradeRoutes {
		if gs.TradeRoutes[i].From == from && gs.TradeRoutes[i].To == to {
			return true
		}
	}
	return false
}

// buildingCost applies the masonry tech discount.
func buildingCost(player *Player, b BuildingType) Resources {
	cost := b.Stats().Cost
	if player.HasTech(Masonry) {
		for i := range cost {
			cost[i] = cost[i] * 3 / 4
		}
	}
	return cost
}

// resolveEconomy runs the economy step for one turn: research and age
// advances first so new unlocks apply to this turn's builds, then
// construction, then trade-route establishment, then income collection with
// upkeep and the shortage policy. Orders that were affordable at validation
// but no longer are after earlier spending are skipped with a recorded
// error, never partially applied.
func resolveEconomy(gs *GameState, w *WorldMap, batches map[string]*OrderBatch, res *TurnResult) {
	for _, pid := range gs.PlayerIDs() {
		batch := batches[pid]
		if batch == nil || !gs.Players[pid].Alive {
			continue
		}
		processResearch(gs, batch, res)
		processBuilds(gs, batch, res)
	}
	for _, pid := range gs.PlayerIDs() {
		if batch := batches[pid]; batch != nil && gs.Players[pid].Alive {
			establishRoutes(gs, batch, res)
		}
	}
	pruneRoutes(gs, res)
	collectIncome(gs, w, res)
}

func processResearch(gs *GameState, batch *OrderBatch, res *TurnResult) {
	if batch.Research == nil {
		return
	}
	player := gs.Players[batch.Player]
	if batch.Research.Tech == AgeUp {
		cost, ok := AgeAdvanceCost(player.Age + 1)
		if !ok {
			return
		}
		cost = player.Civ.TechDiscount(cost)
		if !player.Resources.CanAfford(cost) {
			res.reject(batch.Player, KindResearch, ErrInsufficientResources, "cannot afford age advance after earlier spending")
			return
		}
		player.Resources = player.Resources.Sub(cost)
		player.Age++
		res.event("%s advanced to age %d", batch.Player, player.Age)
		return
	}
	tech := batch.Research.Tech
	if !CanResearch(player.Age, player.Techs, tech) {
		return
	}
	cost := player.Civ.TechDiscount(tech.Cost())
	if !player.Resources.CanAfford(cost) {
		res.reject(batch.Player, KindResearch, ErrInsufficientResources, "cannot afford tech after earlier spending")
		return
	}
	player.Resources = player.Resources.Sub(cost)
	player.Techs = append(player.Techs, tech)
	res.event("%s researched %s", batch.Player, tech)
}

func processBuilds(gs *GameState, batch *OrderBatch, res *TurnResult) {
	player := gs.Players[batch.Player]

	for _, bb := range batch.BuildBuildings {
		ps, ok := gs.Provinces[bb.Province]
		if !ok || ps.Owner != batch.Player {
			res.reject(batch.Player, KindBuild, ErrInvalidOrder, "no longer own "+bb.Province)
			continue
		}
		if ps.HasBuilding(bb.Type) {
			continue
		}
		cost := buildingCost(player, bb.Type)
		if !player.Resources.CanAfford(cost) {
			res.reject(batch.Player, KindBuild, ErrInsufficientResources, fmt.Sprintf("cannot afford %s after earlier spending", bb.Type))
			continue
		}
		player.Resources = player.Resources.Sub(cost)
		ps.Buildings = append(ps.Buildings, bb.Type)
		res.event("%s built %s at %s", batch.Player, bb.Type, bb.Province)
	}

	for _, bu := range batch.BuildUnits {
		ps, ok := gs.Provinces[bu.Province]
		if !ok || ps.Owner != batch.Player {
			res.reject(batch.Player, KindBuildUnit, ErrInvalidOrder, "no longer own "+bu.Province)
			continue
		}
		if player.Age < bu.Type.Stats().MinAge {
			continue
		}
		cost := unitBuildCost(player, ps, bu.Type)
		if !player.Resources.CanAfford(cost) {
			res.reject(batch.Player, KindBuildUnit, ErrInsufficientResources, fmt.Sprintf("cannot afford %s after earlier spending", bu.Type))
			continue
		}
		player.Resources = player.Resources.Sub(cost)
		gs.spawnUnit(batch.Player, bu.Type, bu.Province)
		res.event("%s trained %s at %s", batch.Player, bu.Type, bu.Province)
	}
}

func establishRoutes(gs *GameState, batch *OrderBatch, res *TurnResult) {
	for _, tr := range batch.TradeRoutes {
		from, okFrom := gs.Provinces[tr.From]
		to, okTo := gs.Provinces[tr.To]
		if !okFrom || !okTo || from.Owner != batch.Player ||
			!from.HasBuilding(TradePost) || !to.HasBuilding(TradePost) {
			res.reject(batch.Player, KindTradeRoute, ErrInvalidOrder, fmt.Sprintf("route %s-%s no longer valid", tr.From, tr.To))
			continue
		}
		if gs.routeExists(tr.From, tr.To) {
			continue
		}
		partner := ""
		if to.Owner != batch.Player {
			if !gs.Allied(batch.Player, to.Owner) {
				res.reject(batch.Player, KindTradeRoute, ErrInvalidOrder, fmt.Sprintf("route %s-%s destination no longer allied", tr.From, tr.To))
				continue
			}
			partner = to.Owner
		}
		gs.TradeRoutes = append(gs.TradeRoutes, TradeRoute{
			ID:      gs.nextEventID("route"),
			From:    tr.From,
			To:      tr.To,
			Owner:   batch.Player,
			Partner: partner,
		})
		res.event("%s established trade route %s to %s", batch.Player, tr.From, tr.To)
	}
}

// pruneRoutes drops routes whose owner lost the origin province or whose
// shared destination changed hands, in ledger order.
func pruneRoutes(gs *GameState, res *TurnResult) {
	kept := gs.TradeRoutes[:0]
	for _, tr := range gs.TradeRoutes {
		from, okFrom := gs.Provinces[tr.From]
		to, okTo := gs.Provinces[tr.To]
		valid := okFrom && okTo && from.Owner == tr.Owner
		if valid && tr.Partner != "" && to.Owner != tr.Partner {
			valid = false
		}
		if valid && tr.Partner == "" && to.Owner != tr.Owner {
			valid = false
		}
		if !valid {
			res.event("trade route %s to %s collapsed", tr.From, tr.To)
			continue
		}
		kept = append(kept, tr)
	}
	gs.TradeRoutes = kept
}

// collectIncome adds province production, trade income and treaty income to
// each player, subtracts upkeep, and applies the shortage policy. Stockpiles
// never go negative: a food shortfall force-disbands upkeep-paying units,
// weakest first, until the books balance.
func collectIncome(gs *GameState, w *WorldMap, res *TurnResult) {
	raiderCuts := computeTradeIncome(gs, w, res)

	for _, pid := range gs.PlayerIDs() {
		player := gs.Players[pid]
		if !player.Alive {
			continue
		}
		inc := Resources{}
		for _, provID := range gs.ProvincesOf(pid) {
			inc = inc.Add(provinceProduction(gs, w, provID))
		}
		for _, u := range gs.UnitsOf(pid) {
			inc[ResFood] -= u.Type.Stats().Upkeep
		}
		inc[ResGold] += tradeIncomeOf(gs, pid) + raiderCuts[pid]
		if player.HasTech(DiplomacyTech) {
			inc[ResGold] += gs.ActiveTreatyCount(pid) * TreatyIncomeGold
		}

		// Shortage policy: each forced disband refunds that unit's upkeep.
		for player.Resources[ResFood]+inc[ResFood] < 0 {
			victim := cheapestUpkeepUnit(gs, pid)
			if victim == nil {
				if player.Resources[ResFood]+inc[ResFood] < 0 {
					inc[ResFood] = -player.Resources[ResFood]
				}
				break
			}
			inc[ResFood] += victim.Type.Stats().Upkeep
			res.event("%s disbanded %s at %s (food shortage)", pid, victim.Type, victim.Province)
			gs.removeUnits(map[string]bool{victim.ID: true})
		}

		player.Resources = player.Resources.Add(inc)
		res.Income[pid] = inc
	}
}

// provinceProduction is the per-turn yield of one owned province including
// building, tech, civ and unique-unit bonuses.
func provinceProduction(gs *GameState, w *WorldMap, provID string) Resources {
	ps := gs.Provinces[provID]
	player := gs.Players[ps.Owner]
	out := w.Province(provID).Terrain.BaseYield()
	for _, b := range ps.Buildings {
		out = out.Add(b.Stats().Yield)
		switch {
		case b == Farm && player.HasTech(Agriculture):
			out[ResFood]++
		case b == Mine && player.HasTech(Mining):
			out[ResIron]++
		case b == Market && player.HasTech(Commerce):
			out[ResGold] += 2
		}
	}
	out[ResFood] += player.Civ.FoodBonus()
	for _, u := range gs.UnitsAt(provID) {
		if u.Owner != ps.Owner {
			continue
		}
		switch u.Type {
		case Sage:
			out = out.Add(Resources{1, 1, 1})
		case Herbalist:
			out[ResFood] += 2
		}
	}
	return out
}

// computeTradeIncome recomputes every route's income and raided flag for
// the turn. The delivered share is credited via tradeIncomeOf; the return
// value maps raiding players to the gold they intercepted.
func computeTradeIncome(gs *GameState, w *WorldMap, res *TurnResult) map[string]int {
	raiderCuts := make(map[string]int)
	for i := range gs.TradeRoutes {
		tr := &gs.TradeRoutes[i]
		dist := w.Distance(tr.From, tr.To)
		if dist <= 0 {
			tr.Income, tr.Raided = 0, false
			continue
		}
		income := dist * TradeRate
		if tr.Partner != "" {
			// Shared routes earn double and split evenly.
			income *= 2
		}
		raider := routeRaider(gs, w, tr)
		tr.Raided = raider != ""
		if tr.Raided {
			delivered := income / 2
			if cut := income - delivered; cut > 0 {
				raiderCuts[raider] += cut
			}
			income = delivered
			res.event("trade route %s to %s raided by %s", tr.From, tr.To, raider)
		}
		tr.Income = income
	}
	return raiderCuts
}

// tradeIncomeOf is the gold delivered to one player across all routes,
// after raiding, with the civ multiplier applied per share.
func tradeIncomeOf(gs *GameState, pid string) int {
	total := 0
	for i := range gs.TradeRoutes {
		tr := &gs.TradeRoutes[i]
		share := 0
		switch {
		case tr.Partner != "" && (tr.Owner == pid || tr.Partner == pid):
			share = tr.Income / 2
		case tr.Partner == "" && tr.Owner == pid:
			share = tr.Income
		default:
			continue
		}
		total += gs.Players[pid].Civ.TradeMultiplier(share)
	}
	return total
}

// routeRaider returns the player whose units sit on the route's shortest
// path, or empty. Endpoints are excluded; the first hostile occupier along
// the path, in garrison creation order, takes the raid.
func routeRaider(gs *GameState, w *WorldMap, tr *TradeRoute) string {
	path := w.ShortestPath(tr.From, tr.To)
	if len(path) < 3 {
		return ""
	}
	for _, provID := range path[1 : len(path)-1] {
		for _, u := range gs.UnitsAt(provID) {
			if u.Owner != tr.Owner && u.Owner != tr.Partner {
				return u.Owner
			}
		}
	}
	return ""
}

// cheapestUpkeepUnit picks the forced-disband victim: lowest effective
// strength, creation order breaking ties.
func cheapestUpkeepUnit(gs *GameState, pid string) *Unit {
	var victim *Unit
	for _, u := range gs.UnitsOf(pid) {
		if u.Type.Stats().Upkeep == 0 {
			continue
		}
		if victim == nil || u.Strength() < victim.Strength() {
			victim = u
		}
	}
	return victim
}

// processDisbands removes voluntarily disbanded units before income so
// their upkeep is not charged.
func processDisbands(gs *GameState, batches map[string]*OrderBatch, res *TurnResult) {
	doomed := make(map[string]bool)
	for _, pid := range gs.PlayerIDs() {
		batch := batches[pid]
		if batch == nil {
			continue
		}
		for _, d := range batch.Disbands {
			if u := gs.UnitByID(d.UnitID); u != nil && u.Owner == pid {
				doomed[u.ID] = true
				res.event("%s disbanded %s at %s", pid, u.Type, u.Province)
			}
		}
	}
	gs.removeUnits(doomed)
}
