package stratagem

import "sort"

// The projected views are the external contract for remote agents and
// spectators. Field names are deliberately short and stable: resource
// vectors are ordered [food, iron, gold] tuples, garrisons are
// counts-per-type arrays in UnitOrder, terrain and buildings use one-letter
// codes. Consumers parse these keys verbatim; never rename them.

// ProvinceView is one province as a specific viewer sees it. Units,
// buildings and production appear only at full visibility; partial
// visibility carries terrain and owner alone.
type ProvinceView struct {
	Terrain   string     `json:"tr"`
	Owner     string     `json:"o"`
	Adjacent  []string   `json:"adj"`
	Units     []int      `json:"u,omitempty"`  // counts per UnitOrder
	Buildings []string   `json:"b,omitempty"`  // short codes
	Prod      *Resources `json:"pr,omitempty"` // owned provinces only
}

// UnitView is one of the viewer's own units.
type UnitView struct {
	ID       string   `json:"id"`
	Type     UnitType `json:"ty"`
	Province string   `json:"pv"`
	Vet      int      `json:"v,omitempty"`
}

// RouteView is one trade route involving the viewer.
type RouteView struct {
	From   string `json:"f"`
	To     string `json:"t"`
	Income int    `json:"g"`
	Raided bool   `json:"rd,omitempty"`
}

// DiploView is the viewer's slice of the diplomacy ledger.
type DiploView struct {
	Messages []Message      `json:"msgs,omitempty"`
	Treaties []Treaty       `json:"treaties,omitempty"`
	Trust    map[string]int `json:"trust,omitempty"`
}

// PlayerView is the fog-filtered per-player state projection.
type PlayerView struct {
	Turn      int                     `json:"t"`
	Phase     PhaseType               `json:"ph"`
	Player    string                  `json:"p"`
	Civ       Civ                     `json:"c"`
	Age       int                     `json:"a"`
	Resources Resources               `json:"r"`
	Techs     []TechID                `json:"tc"`
	Provinces map[string]ProvinceView `json:"pv"`
	Fog       []string                `json:"fog"`
	Intel     []Observation           `json:"intel,omitempty"`
	Routes    []RouteView             `json:"tr,omitempty"`
	Units     []UnitView              `json:"units"`
	Diplo     DiploView               `json:"diplo"`
	Winner    string                  `json:"winner,omitempty"`
}

// ProjectView builds the fog-filtered view for one player. It is a pure
/// read: it never mutates state and may run concurrently with other reads.
func ProjectView(gs *GameState, w *WorldMap, viewer string) *PlayerView {
	player := gs.Players[viewer]
	if player == nil {
		return nil
	}
	vis := visibility(gs, w, viewer)

	pv := make(map[string]ProvinceView)
	var fog []string
	for _, provID := range w.ProvinceIDs() {
		tier := vis[provID]
		if tier == VisFog {
			fog = append(fog, provID)
			continue
		}
		prov := w.Province(provID)
		ps := gs.Provinces[provID]
		entry := ProvinceView{
			Terrain:  prov.Terrain.Short(),
			Owner:    ownerOrDash(ps.Owner),
			Adjacent: w.Neighbors(provID),
		}
		if tier == VisFull {
			entry.Units = unitCounts(gs.UnitsAt(provID))
			entry.Buildings = buildingCodes(ps.Buildings)
			if ps.Owner == viewer {
				prod := provinceProduction(gs, w, provID)
				entry.Prod = &prod
			}
		}
		pv[provID] = entry
	}

	var units []UnitView
	for _, u := range gs.UnitsOf(viewer) {
		units = append(units, UnitView{ID: u.ID, Type: u.Type, Province: u.Province, Vet: u.Veterancy})
	}

	var routes []RouteView
	for i := range gs.TradeRoutes {
		tr := &gs.TradeRoutes[i]
		if tr.Owner == viewer || tr.Partner == viewer {
			routes = append(routes, RouteView{From: tr.From, To: tr.To, Income: tr.Income, Raided: tr.Raided})
		}
	}

	return &PlayerView{
		Turn:      gs.Turn,
		Phase:     gs.Phase,
		Player:    viewer,
		Civ:       player.Civ,
		Age:       player.Age,
		Resources: player.Resources,
		Techs:     append([]TechID(nil), player.Techs...),
		Provinces: pv,
		Fog:       fog,
		Intel:     IntelFor(gs, w, viewer),
		Routes:    routes,
		Units:     units,
		Diplo:     diploFor(gs, viewer),
		Winner:    gs.Winner,
	}
}

func diploFor(gs *GameState, viewer string) DiploView {
	var msgs []Message
	for _, m := range gs.Messages {
		if m.VisibleTo(viewer) {
			msgs = append(msgs, m)
		}
	}
	var treaties []Treaty
	for i := range gs.Treaties {
		if gs.Treaties[i].Party(viewer) {
			t := gs.Treaties[i]
			t.Parties = append([]string(nil), t.Parties...)
			treaties = append(treaties, t)
		}
	}
	return DiploView{Messages: msgs, Treaties: treaties, Trust: copyTrust(gs.Trust)}
}

// SpectatorProvince is the unfiltered per-province record.
type SpectatorProvince struct {
	Name      string           `json:"name"`
	Terrain   string           `json:"terrain"`
	Owner     string           `json:"owner,omitempty"`
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Units     map[string][]int `json:"units,omitempty"` // owner -> counts per UnitOrder
	UnitCount int              `json:"unit_count"`
	Strength  int              `json:"strength"`
	Buildings []string         `json:"buildings,omitempty"`
	Adjacent  []string         `json:"adjacent"`
	Defense   int              `json:"defense"`
	Income    *Resources       `json:"income,omitempty"`
}

// SpectatorPlayer is the unfiltered per-player record.
type SpectatorPlayer struct {
	Name      string    `json:"name"`
	Civ       Civ       `json:"civ"`
	Age       int       `json:"age"`
	Resources Resources `json:"resources"`
	Techs     []TechID  `json:"techs"`
	Alive     bool      `json:"alive"`
	Provinces int       `json:"provinces"`
	Units     int       `json:"units"`
	Score     int       `json:"score"`
	Trust     int       `json:"trust"` // broken treaty count
}

// SpectatorView is the unfiltered whole-match state for spectators and
// replay consumers. Nothing is hidden.
type SpectatorView struct {
	Turn      int                          `json:"turn"`
	Phase     PhaseType                    `json:"phase"`
	MaxTurns  int                          `json:"max_turns"`
	Players   map[string]SpectatorPlayer   `json:"players"`
	Provinces map[string]SpectatorProvince `json:"provinces"`
	Routes    []TradeRoute                 `json:"trade_routes,omitempty"`
	Treaties  []Treaty                     `json:"treaties,omitempty"`
	Messages  []Message                    `json:"messages,omitempty"`
	Winner    string                       `json:"winner,omitempty"`
}

// ProjectSpectator builds the unfiltered spectator view. Pure read.
func ProjectSpectator(gs *GameState, w *WorldMap) *SpectatorView {
	provinces := make(map[string]SpectatorProvince, len(gs.Provinces))
	for _, provID := range w.ProvinceIDs() {
		prov := w.Province(provID)
		ps := gs.Provinces[provID]
		garrison := gs.UnitsAt(provID)

		byOwner := make(map[string][]int)
		strength := 0
		for _, u := range garrison {
			if byOwner[u.Owner] == nil {
				byOwner[u.Owner] = make([]int, len(unitOrder))
			}
			if idx := unitIndex(u.Type); idx >= 0 {
				byOwner[u.Owner][idx]++
			}
			strength += u.Strength()
		}
		if len(byOwner) == 0 {
			byOwner = nil
		}

		defense := prov.Terrain.DefenseBonus()
		if ps.HasBuilding(Fortress) {
			defense += FortressDefense
		}
		entry := SpectatorProvince{
			Name:      prov.Name,
			Terrain:   prov.Terrain.Short(),
			Owner:     ps.Owner,
			X:         prov.X,
			Y:         prov.Y,
			Units:     byOwner,
			UnitCount: len(garrison),
			Strength:  strength,
			Buildings: buildingCodes(ps.Buildings),
			Adjacent:  w.Neighbors(provID),
			Defense:   defense,
		}
		if ps.Owner != NoOwner {
			prod := provinceProduction(gs, w, provID)
			entry.Income = &prod
		}
		provinces[provID] = entry
	}

	players := make(map[string]SpectatorPlayer, len(gs.Players))
	for _, pid := range gs.PlayerIDs() {
		p := gs.Players[pid]
		players[pid] = SpectatorPlayer{
			Name:      p.Name,
			Civ:       p.Civ,
			Age:       p.Age,
			Resources: p.Resources,
			Techs:     append([]TechID(nil), p.Techs...),
			Alive:     p.Alive,
			Provinces: len(gs.ProvincesOf(pid)),
			Units:     len(gs.UnitsOf(pid)),
			Score:     p.Score,
			Trust:     gs.Trust[pid],
		}
	}

	return &SpectatorView{
		Turn:      gs.Turn,
		Phase:     gs.Phase,
		MaxTurns:  gs.MaxTurns,
		Players:   players,
		Provinces: provinces,
		Routes:    append([]TradeRoute(nil), gs.TradeRoutes...),
		Treaties:  append([]Treaty(nil), gs.Treaties...),
		Messages:  append([]Message(nil), gs.Messages...),
		Winner:    gs.Winner,
	}
}

func ownerOrDash(owner string) string {
	if owner == NoOwner {
		return "-"
	}
	return owner
}

func unitIndex(t UnitType) int {
	for i, ut := range unitOrder {
		if ut == t {
			return i
		}
	}
	return -1
}

// unitCounts folds a garrison into counts per base type in UnitOrder, with
// trailing slots for the civ unique units in AllCivs order.
func unitCounts(units []*Unit) []int {
	counts := make([]int, len(unitOrder))
	var uniques []UnitType
	for _, civ := range AllCivs() {
		uniques = append(uniques, civ.UniqueUnit())
	}
	counts = append(counts, make([]int, len(uniques))...)
	for _, u := range units {
		if idx := unitIndex(u.Type); idx >= 0 {
			counts[idx]++
			continue
		}
		for i, ut := range uniques {
			if u.Type == ut {
				counts[len(unitOrder)+i]++
				break
			}
		}
	}
	return counts
}

func buildingCodes(bs []BuildingType) []string {
	if len(bs) == 0 {
		return nil
	}
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Short()
	}
	return out
}

func copyTrust(trust map[string]int) map[string]int {
	if len(trust) == 0 {
		return nil
	}
	out := make(map[string]int, len(trust))
	keys := make([]string, 0, len(trust))
	for k := range trust {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = trust[k]
	}
	return out
}
