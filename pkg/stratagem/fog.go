package stratagem

import "sort"

// Visibility tiers for a projected province.
type Visibility int

const (
	VisFog Visibility = iota
	VisPartial
	VisFull
)

// IntelExpiryTurns bounds how long a stale observation is kept before it is
// dropped from a viewer's intel.
const IntelExpiryTurns = 8

// visibility computes the per-province visibility tier for one viewer.
// Full: owned by the viewer or garrisoned by any viewer unit. Partial:
// adjacent to a viewer-owned province, extended one further hop around
// provinces with a watchtower. Everything else is fogged.
func visibility(gs *GameState, w *WorldMap, viewer string) map[string]Visibility {
	vis := make(map[string]Visibility, len(w.Provinces))

	owned := gs.ProvincesOf(viewer)
	for _, id := range owned {
		vis[id] = VisFull
	}
	for _, u := range gs.UnitsOf(viewer) {
		vis[u.Province] = VisFull
	}

	markPartial := func(id string) {
		if vis[id] < VisPartial {
			vis[id] = VisPartial
		}
	}
	for _, id := range owned {
		for _, adj := range w.Neighbors(id) {
			markPartial(adj)
		}
		if gs.Provinces[id].HasBuilding(Watchtower) {
			for _, adj := range w.Neighbors(id) {
				for _, far := range w.Neighbors(adj) {
					markPartial(far)
				}
			}
		}
	}
	return vis
}

// recordIntel refreshes every player's stamped observations during turn
// resolution: fully visible foreign provinces are snapshotted, and
// observations that aged out are dropped. Projection itself never writes.
func recordIntel(gs *GameState, w *WorldMap) {
	if gs.Intel == nil {
		gs.Intel = make(map[string][]Observation)
	}
	for _, pid := range gs.PlayerIDs() {
		if !gs.Players[pid].Alive {
			continue
		}
		vis := visibility(gs, w, pid)

		byProvince := make(map[string]Observation)
		for _, ob := range gs.Intel[pid] {
			if gs.Turn-ob.AsOfTurn < IntelExpiryTurns {
				byProvince[ob.Province] = ob
			}
		}
		for _, provID := range w.ProvinceIDs() {
			if vis[provID] != VisFull {
				continue
			}
			ps := gs.Provinces[provID]
			if ps.Owner == pid {
				delete(byProvince, provID) // own provinces need no memory
				continue
			}
			byProvince[provID] = Observation{
				Province:  provID,
				AsOfTurn:  gs.Turn,
				Owner:     ps.Owner,
				UnitCount: len(gs.UnitsAt(provID)),
			}
		}

		obs := make([]Observation, 0, len(byProvince))
		for _, ob := range byProvince {
			obs = append(obs, ob)
		}
		sort.Slice(obs, func(i, j int) bool { return obs[i].Province < obs[j].Province })
		gs.Intel[pid] = obs
	}
}

// IntelFor returns the viewer's stale observations for provinces that are
// not currently fully visible, stamped with the turn they were made.
func IntelFor(gs *GameState, w *WorldMap, viewer string) []Observation {
	vis := visibility(gs, w, viewer)
	var out []Observation
	for _, ob := range gs.Intel[viewer] {
		if vis[ob.Province] != VisFull {
			out = append(out, ob)
		}
	}
	return out
}
