package stratagem

import "fmt"

// ValidateBatch checks every order in a batch against the current state and
// returns the accepted subset plus one error record per dropped order.
// Each order is checked independently against the pre-batch snapshot: no
// order's acceptance changes what a later order in the same batch sees.
// Resource sufficiency is checked per order here and re-checked cumulatively
// at execution, so a batch whose orders are individually affordable but
// jointly overdrawn loses only the orders that no longer fit, never a
// partial application.
func ValidateBatch(gs *GameState, w *WorldMap, batch OrderBatch) (OrderBatch, []OrderError) {
	player, ok := gs.Players[batch.Player]
	if !ok {
		return OrderBatch{Player: batch.Player}, []OrderError{{
			Player: batch.Player, Kind: KindMove, Code: ErrInvalidOrder,
			Reason: "unknown player",
		}}
	}
	if !player.Alive {
		return OrderBatch{Player: batch.Player}, []OrderError{{
			Player: batch.Player, Kind: KindMove, Code: ErrInvalidOrder,
			Reason: "player is eliminated",
		}}
	}

	accepted := OrderBatch{Player: batch.Player}
	var errs []OrderError
	reject := func(kind OrderKind, code OrderErrorCode, format string, args ...any) {
		errs = append(errs, OrderError{
			Player: batch.Player, Kind: kind, Code: code,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	for _, mv := range batch.Moves {
		unit := gs.UnitByID(mv.UnitID)
		if unit == nil {
			reject(KindMove, ErrInvalidOrder, "unit %s does not exist", mv.UnitID)
			continue
		}
		if unit.Owner != batch.Player {
			reject(KindMove, ErrInvalidOrder, "unit %s is not yours", mv.UnitID)
			continue
		}
		if w.Province(mv.Target) == nil {
			reject(KindMove, ErrInvalidOrder, "no such province %s", mv.Target)
			continue
		}
		if !w.Adjacent(unit.Province, mv.Target) {
			reject(KindMove, ErrInvalidOrder, "%s is not adjacent to %s", mv.Target, unit.Province)
			continue
		}
		accepted.Moves = append(accepted.Moves, mv)
	}

	for _, bu := range batch.BuildUnits {
		ut := bu.Type
		if ut == UniqueUnit {
			ut = player.Civ.UniqueUnit()
		}
		if !ut.Known() {
			reject(KindBuildUnit, ErrInvalidOrder, "unknown unit type %q", bu.Type)
			continue
		}
		ps, ok := gs.Provinces[bu.Province]
		if !ok || ps.Owner != batch.Player {
			reject(KindBuildUnit, ErrInvalidOrder, "province %s is not yours", bu.Province)
			continue
		}
		stats := ut.Stats()
		if player.Age < stats.MinAge {
			reject(KindBuildUnit, ErrInvalidOrder, "%s requires age %d", ut, stats.MinAge)
			continue
		}
		if !player.Resources.CanAfford(unitBuildCost(player, ps, ut)) {
			reject(KindBuildUnit, ErrInsufficientResources, "cannot afford %s", ut)
			continue
		}
		accepted.BuildUnits = append(accepted.BuildUnits, BuildUnitOrder{Type: ut, Province: bu.Province})
	}

	builtThisBatch := make(map[string]bool)
	for _, bb := range batch.BuildBuildings {
		if !bb.Type.Known() {
			reject(KindBuild, ErrInvalidOrder, "unknown building type %q", bb.Type)
			continue
		}
		ps, ok := gs.Provinces[bb.Province]
		if !ok || ps.Owner != batch.Player {
			reject(KindBuild, ErrInvalidOrder, "province %s is not yours", bb.Province)
			continue
		}
		stats := bb.Type.Stats()
		if player.Age < stats.MinAge {
			reject(KindBuild, ErrInvalidOrder, "%s requires age %d", bb.Type, stats.MinAge)
			continue
		}
		if ps.HasBuilding(bb.Type) {
			reject(KindBuild, ErrInvalidOrder, "%s already has a %s", bb.Province, bb.Type)
			continue
		}
		if builtThisBatch[bb.Province] {
			reject(KindBuild, ErrInvalidOrder, "only one building per province per turn")
			continue
		}
		if !player.Resources.CanAfford(stats.Cost) {
			reject(KindBuild, ErrInsufficientResources, "cannot afford %s", bb.Type)
			continue
		}
		builtThisBatch[bb.Province] = true
		accepted.BuildBuildings = append(accepted.BuildBuildings, bb)
	}

	if batch.Research != nil {
		r := *batch.Research
		switch {
		case r.Tech == AgeUp:
			cost, ok := AgeAdvanceCost(player.Age + 1)
			if !ok {
				reject(KindResearch, ErrInvalidOrder, "already at the final age")
			} else if !player.Resources.CanAfford(player.Civ.TechDiscount(cost)) {
				reject(KindResearch, ErrInsufficientResources, "cannot afford age advance")
			} else {
				accepted.Research = &r
			}
		case !r.Tech.Known():
			reject(KindResearch, ErrInvalidOrder, "unknown tech %q", r.Tech)
		case !CanResearch(player.Age, player.Techs, r.Tech):
			reject(KindResearch, ErrInvalidOrder, "tech %s unavailable: age gate or age slot already used", r.Tech)
		case !player.Resources.CanAfford(player.Civ.TechDiscount(r.Tech.Cost())):
			reject(KindResearch, ErrInsufficientResources, "cannot afford tech %s", r.Tech)
		default:
			accepted.Research = &r
		}
	}

	for _, tr := range batch.TradeRoutes {
		from, okFrom := gs.Provinces[tr.From]
		to, okTo := gs.Provinces[tr.To]
		if !okFrom || !okTo {
			reject(KindTradeRoute, ErrInvalidOrder, "unknown province in route %s-%s", tr.From, tr.To)
			continue
		}
		if from.Owner != batch.Player {
			reject(KindTradeRoute, ErrInvalidOrder, "route origin %s is not yours", tr.From)
			continue
		}
		if !from.HasBuilding(TradePost) || !to.HasBuilding(TradePost) {
			reject(KindTradeRoute, ErrInvalidOrder, "both endpoints need a trade post")
			continue
		}
		if to.Owner != batch.Player && !gs.Allied(batch.Player, to.Owner) {
			reject(KindTradeRoute, ErrInvalidOrder, "route destination must be yours or an ally's")
			continue
		}
		if gs.routeExists(tr.From, tr.To) {
			reject(KindTradeRoute, ErrInvalidOrder, "route %s-%s already exists", tr.From, tr.To)
			continue
		}
		accepted.TradeRoutes = append(accepted.TradeRoutes, tr)
	}

	for _, d := range batch.Disbands {
		unit := gs.UnitByID(d.UnitID)
		if unit == nil || unit.Owner != batch.Player {
			reject(KindDisband, ErrInvalidOrder, "unit %s is not yours", d.UnitID)
			continue
		}
		accepted.Disbands = append(accepted.Disbands, d)
	}

	if batch.Diplomacy != nil {
		dip := &DiplomacyAction{
			Accept: batch.Diplomacy.Accept,
			Reject: batch.Diplomacy.Reject,
			Break:  batch.Diplomacy.Break,
		}
		for _, msg := range batch.Diplomacy.Messages {
			if msg.To != PublicRecipient {
				if _, ok := gs.Players[msg.To]; !ok {
					reject(KindDiplomacy, ErrInvalidOrder, "unknown message recipient %q", msg.To)
					continue
				}
			}
			dip.Messages = append(dip.Messages, msg)
		}
		for _, prop := range batch.Diplomacy.Propose {
			if !prop.Type.Known() {
				reject(KindDiplomacy, ErrIllegalTreatyAction, "unknown treaty type %q", prop.Type)
				continue
			}
			if _, ok := gs.Players[prop.Target]; !ok || prop.Target == batch.Player {
				reject(KindDiplomacy, ErrIllegalTreatyAction, "invalid treaty target %q", prop.Target)
				continue
			}
			dip.Propose = append(dip.Propose, prop)
		}
		accepted.Diplomacy = dip
	}

	return accepted, errs
}

// unitBuildCost applies civ and barracks discounts to a unit's cost.
func unitBuildCost(player *Player, ps *ProvinceState, ut UnitType) Resources {
	cost := player.Civ.UnitDiscount(ut.Stats().Cost)
	if ps.HasBuilding(Barracks) && cost[ResFood] > 0 {
		cost[ResFood] -= BarracksFoodDiscount
	}
	return cost
}
