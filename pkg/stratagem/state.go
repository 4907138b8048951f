package stratagem

import (
	"fmt"
	"sort"
)

// Resource vector indices. Resource vectors are ordered tuples on the wire,
// never named fields.
const (
	ResFood = 0
	ResIron = 1
	ResGold = 2
)

// Resources is a fixed-size stockpile vector over the resource kinds.
type Resources [3]int

// CanAfford reports whether every component covers the cost.
func (r Resources) CanAfford(cost Resources) bool {
	return r[0] >= cost[0] && r[1] >= cost[1] && r[2] >= cost[2]
}

// Add returns the component-wise sum.
func (r Resources) Add(o Resources) Resources {
	return Resources{r[0] + o[0], r[1] + o[1], r[2] + o[2]}
}

// Sub returns the component-wise difference. Callers must check CanAfford
// first when the result feeds a stockpile; stockpiles are never negative.
func (r Resources) Sub(o Resources) Resources {
	return Resources{r[0] - o[0], r[1] - o[1], r[2] - o[2]}
}

// PhaseType is one of the three phases composing a turn.
type PhaseType string

const (
	PhaseDiplomacy  PhaseType = "diplomacy"
	PhaseOrders     PhaseType = "orders"
	PhaseResolution PhaseType = "resolution"
)

// NextPhase returns the phase that follows the given one within a turn.
// Resolution wraps to the next turn's diplomacy phase.
func NextPhase(p PhaseType) PhaseType {
	switch p {
	case PhaseDiplomacy:
		return PhaseOrders
	case PhaseOrders:
		return PhaseResolution
	default:
		return PhaseDiplomacy
	}
}

// NoOwner marks an unowned province. Every consumer of Owner must handle it.
const NoOwner = ""

// ProvinceState is the mutable per-match part of a province. Static terrain
// and adjacency live on the WorldMap.
type ProvinceState struct {
	Owner     string         `json:"owner,omitempty"`
	Buildings []BuildingType `json:"buildings,omitempty"`
}

// HasBuilding reports whether the province contains a completed building of
// the given type.
func (p *ProvinceState) HasBuilding(b BuildingType) bool {
	for _, have := range p.Buildings {
		if have == b {
			return true
		}
	}
	return false
}

// Player is one participant. Civ and capital are fixed at match start; age
// advances monotonically; the tech list grows by at most one entry per age.
type Player struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Civ              Civ       `json:"civ"`
	Age              int       `json:"age"`
	Resources        Resources `json:"resources"`
	Techs            []TechID  `json:"techs,omitempty"`
	Alive            bool      `json:"alive"`
	Capital          string    `json:"capital"`
	Score            int       `json:"score"`
	DominationStreak int       `json:"domination_streak"`
}

// HasTech reports whether the player selected the given tech.
func (p *Player) HasTech(t TechID) bool {
	for _, have := range p.Techs {
		if have == t {
			return true
		}
	}
	return false
}

// Observation is a stamped piece of fog-of-war intel: what a viewer last saw
// in a province that is no longer visible. It is never silently treated as
// current state.
type Observation struct {
	Province  string `json:"province"`
	AsOfTurn  int    `json:"as_of_turn"`
	Owner     string `json:"owner,omitempty"`
	UnitCount int    `json:"unit_count"`
}

// GameState is the authoritative mutable store for one match. Exactly one
// instance exists per match; every core operation receives it explicitly.
// Units form an arena addressed by stable IDs in creation order; provinces
// and units reference each other only through IDs.
type GameState struct {
	// Turn is the 1-based number of the turn currently being played, the
	// same numbering the turn log records. ProcessTurn resolves this turn
	// and advances the counter in the resulting state.
	Turn      int                       `json:"turn"`
	Phase     PhaseType                 `json:"phase"`
	MaxTurns  int                       `json:"max_turns"`
	Players   map[string]*Player        `json:"players"`
	Provinces map[string]*ProvinceState `json:"provinces"`
	Units     []Unit                    `json:"units"`

	TradeRoutes []TradeRoute             `json:"trade_routes,omitempty"`
	Messages    []Message                `json:"messages,omitempty"`
	Treaties    []Treaty                 `json:"treaties,omitempty"`
	Trust       map[string]int           `json:"trust,omitempty"` // player -> broken treaty count
	Intel       map[string][]Observation `json:"intel,omitempty"` // viewer -> stale observations

	Winner   string `json:"winner,omitempty"`
	UnitSeq  int    `json:"unit_seq"`
	EventSeq int    `json:"event_seq"` // treaty/message/route id counter
}

// MatchConfig is the immutable input record for match creation.
type MatchConfig struct {
	Players  []SeatConfig `json:"players"`
	MaxTurns int          `json:"max_turns"`
}

// SeatConfig assigns one player slot.
type SeatConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Civ  Civ    `json:"civ,omitempty"` // empty = slot default
}

// DefaultMaxTurns bounds match length before score victory applies.
const DefaultMaxTurns = 40

// NewMatchState builds the starting state for the tournament map: each slot
// owns its capital (garrisoned with militia, infantry and a scout) and a
// second home province (militia).
func NewMatchState(w *WorldMap, cfg MatchConfig) (*GameState, error) {
	n := len(cfg.Players)
	if n < 2 || n > len(w.Capitals) {
		return nil, fmt.Errorf("player count %d out of range 2-%d", n, len(w.Capitals))
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	gs := &GameState{
		Turn:      1,
		Phase:     PhaseDiplomacy,
		MaxTurns:  maxTurns,
		Players:   make(map[string]*Player, n),
		Provinces: make(map[string]*ProvinceState, len(w.Provinces)),
		Trust:     make(map[string]int),
		Intel:     make(map[string][]Observation),
	}
	for _, id := range w.ProvinceIDs() {
		gs.Provinces[id] = &ProvinceState{}
	}

	civs := AllCivs()
	for i, seat := range cfg.Players {
		civ := seat.Civ
		if civ == "" {
			civ = civs[i%len(civs)]
		}
		if !civ.Known() {
			return nil, fmt.Errorf("unknown civilization %q", civ)
		}
		capital := w.Capitals[i]
		gs.Players[seat.ID] = &Player{
			ID:        seat.ID,
			Name:      seat.Name,
			Civ:       civ,
			Age:       1,
			Resources: Resources{10, 5, 5},
			Alive:     true,
			Capital:   capital,
		}
		gs.Provinces[capital].Owner = seat.ID
		gs.Provinces[w.SecondHomes[i]].Owner = seat.ID
		gs.spawnUnit(seat.ID, Militia, capital)
		gs.spawnUnit(seat.ID, Infantry, capital)
		gs.spawnUnit(seat.ID, Scout, capital)
		gs.spawnUnit(seat.ID, Militia, w.SecondHomes[i])
	}
	return gs, nil
}

// spawnUnit appends a new unit to the arena with the next sequence number.
func (gs *GameState) spawnUnit(owner string, t UnitType, province string) *Unit {
	gs.UnitSeq++
	gs.Units = append(gs.Units, Unit{
		ID:       fmt.Sprintf("%s_%s_%d", owner, t, gs.UnitSeq),
		Type:     t,
		Owner:    owner,
		Province: province,
		Seq:      gs.UnitSeq,
	})
	return &gs.Units[len(gs.Units)-1]
}

// nextEventID returns a fresh identifier with the given prefix.
func (gs *GameState) nextEventID(prefix string) string {
	gs.EventSeq++
	return fmt.Sprintf("%s_%d", prefix, gs.EventSeq)
}

// PlayerIDs returns all player IDs in sorted order for deterministic iteration.
func (gs *GameState) PlayerIDs() []string {
	ids := make([]string, 0, len(gs.Players))
	for id := range gs.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnitByID returns the unit with the given ID, or nil.
func (gs *GameState) UnitByID(id string) *Unit {
	for i := range gs.Units {
		if gs.Units[i].ID == id {
			return &gs.Units[i]
		}
	}
	return nil
}

// UnitsAt returns the units garrisoned in a province, in creation order.
func (gs *GameState) UnitsAt(province string) []*Unit {
	var out []*Unit
	for i := range gs.Units {
		if gs.Units[i].Province == province {
			out = append(out, &gs.Units[i])
		}
	}
	return out
}

// UnitsOf returns all units belonging to a player, in creation order.
func (gs *GameState) UnitsOf(player string) []*Unit {
	var out []*Unit
	for i := range gs.Units {
		if gs.Units[i].Owner == player {
			out = append(out, &gs.Units[i])
		}
	}
	return out
}

// ProvincesOf returns the sorted IDs of provinces owned by a player.
func (gs *GameState) ProvincesOf(player string) []string {
	var out []string
	for id, ps := range gs.Provinces {
		if ps.Owner == player {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// removeUnits deletes the given unit IDs from the arena, preserving the
// creation order of survivors.
func (gs *GameState) removeUnits(ids map[string]bool) {
	if len(ids) == 0 {
		return
	}
	remaining := gs.Units[:0]
	for _, u := range gs.Units {
		if !ids[u.ID] {
			remaining = append(remaining, u)
		}
	}
	gs.Units = remaining
}

// Clone returns a deep copy. Turn resolution operates on a clone so a failed
// resolution leaves the authoritative state untouched, and TurnResult
// snapshots stay immutable.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		Turn:     gs.Turn,
		Phase:    gs.Phase,
		MaxTurns: gs.MaxTurns,
		Winner:   gs.Winner,
		UnitSeq:  gs.UnitSeq,
		EventSeq: gs.EventSeq,
	}
	c.Players = make(map[string]*Player, len(gs.Players))
	for id, p := range gs.Players {
		cp := *p
		cp.Techs = append([]TechID(nil), p.Techs...)
		c.Players[id] = &cp
	}
	c.Provinces = make(map[string]*ProvinceState, len(gs.Provinces))
	for id, ps := range gs.Provinces {
		cps := *ps
		cps.Buildings = append([]BuildingType(nil), ps.Buildings...)
		c.Provinces[id] = &cps
	}
	c.Units = append([]Unit(nil), gs.Units...)
	c.TradeRoutes = append([]TradeRoute(nil), gs.TradeRoutes...)
	c.Messages = append([]Message(nil), gs.Messages...)
	c.Treaties = make([]Treaty, len(gs.Treaties))
	for i, t := range gs.Treaties {
		t.Parties = append([]string(nil), t.Parties...)
		c.Treaties[i] = t
	}
	if gs.Trust != nil {
		c.Trust = make(map[string]int, len(gs.Trust))
		for k, v := range gs.Trust {
			c.Trust[k] = v
		}
	}
	if gs.Intel != nil {
		c.Intel = make(map[string][]Observation, len(gs.Intel))
		for k, v := range gs.Intel {
			c.Intel[k] = append([]Observation(nil), v...)
		}
	}
	return c
}
