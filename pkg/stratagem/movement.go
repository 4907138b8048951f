package stratagem

import "sort"

// resolveMovement applies every accepted move simultaneously and returns the
// sorted IDs of contested provinces. Adjacency is judged against each unit's
// pre-movement position, so no player's moves see another player's moves
// land first. When a batch carries several moves for one unit the last one
// wins, matching resubmission semantics.
func resolveMovement(gs *GameState, w *WorldMap, batches map[string]*OrderBatch, res *TurnResult) []string {
	origin := make(map[string]string, len(gs.Units))
	for i := range gs.Units {
		origin[gs.Units[i].ID] = gs.Units[i].Province
	}

	for _, pid := range gs.PlayerIDs() {
		batch := batches[pid]
		if batch == nil {
			continue
		}
		dest := make(map[string]string)
		for _, mv := range batch.Moves {
			dest[mv.UnitID] = mv.Target
		}
		for _, mv := range batch.Moves {
			target, ok := dest[mv.UnitID]
			if !ok || target != mv.Target {
				continue // superseded by a later move for the same unit
			}
			delete(dest, mv.UnitID)
			u := gs.UnitByID(mv.UnitID)
			if u == nil || u.Owner != pid {
				continue
			}
			if !w.Adjacent(origin[u.ID], target) {
				continue
			}
			u.Province = target
			res.event("%s moved %s from %s to %s", pid, u.Type, origin[u.ID], target)
		}
	}

	return contestedProvinces(gs)
}

// contestedProvinces lists every province holding units of more than one
// player, sorted for deterministic combat order.
func contestedProvinces(gs *GameState) []string {
	owners := make(map[string]map[string]bool)
	for i := range gs.Units {
		u := &gs.Units[i]
		if owners[u.Province] == nil {
			owners[u.Province] = make(map[string]bool)
		}
		owners[u.Province][u.Owner] = true
	}
	var out []string
	for prov, side := range owners {
		if len(side) > 1 {
			out = append(out, prov)
		}
	}
	sort.Strings(out)
	return out
}

// claimProvinces transfers ownership of provinces held solely by a foreign
// player's units. Runs after combat so battle outcomes settle ownership of
// contested provinces first.
func claimProvinces(gs *GameState, res *TurnResult) {
	holders := make(map[string]string)
	for i := range gs.Units {
		u := &gs.Units[i]
		if prev, ok := holders[u.Province]; ok && prev != u.Owner {
			holders[u.Province] = NoOwner
			continue
		}
		holders[u.Province] = u.Owner
	}
	var ids []string
	for prov := range holders {
		ids = append(ids, prov)
	}
	sort.Strings(ids)
	for _, prov := range ids {
		holder := holders[prov]
		ps := gs.Provinces[prov]
		if holder == NoOwner || ps == nil || ps.Owner == holder {
			continue
		}
		prevOwner := ps.Owner
		ps.Owner = holder
		if prevOwner == NoOwner {
			res.event("%s claimed %s", holder, prov)
		} else {
			res.event("%s captured %s from %s", holder, prov, prevOwner)
		}
	}
}
