package stratagem

import (
	"sync"
	"testing"
)

// testWorld is a five-province line used by most engine tests:
// alpha(P) - bravo(F) - charlie(M) - delta(R) - echo(C).
func testWorld() *WorldMap {
	return buildWorld(
		[]MapProvince{
			{ID: "alpha", Name: "Alpha", Terrain: Plains},
			{ID: "bravo", Name: "Bravo", Terrain: Forest},
			{ID: "charlie", Name: "Charlie", Terrain: Mountain},
			{ID: "delta", Name: "Delta", Terrain: River},
			{ID: "echo", Name: "Echo", Terrain: Coast},
		},
		[][2]string{{"alpha", "bravo"}, {"bravo", "charlie"}, {"charlie", "delta"}, {"delta", "echo"}},
		[]string{"alpha", "echo"},
		[]string{"bravo", "delta"},
	)
}

// testState sets up two steel-age players with generous stockpiles: p1 holds
// alpha and bravo, p2 holds delta and echo, charlie is neutral.
func testState() *GameState {
	gs := &GameState{
		Turn:     1,
		Phase:    PhaseOrders,
		MaxTurns: DefaultMaxTurns,
		Players: map[string]*Player{
			"p1": {ID: "p1", Name: "Player One", Civ: Ironborn, Age: 3, Resources: Resources{20, 20, 20}, Alive: true, Capital: "alpha"},
			"p2": {ID: "p2", Name: "Player Two", Civ: Ironborn, Age: 3, Resources: Resources{20, 20, 20}, Alive: true, Capital: "echo"},
		},
		Provinces: map[string]*ProvinceState{
			"alpha":   {Owner: "p1"},
			"bravo":   {Owner: "p1"},
			"charlie": {},
			"delta":   {Owner: "p2"},
			"echo":    {Owner: "p2"},
		},
		Trust: make(map[string]int),
		Intel: make(map[string][]Observation),
	}
	return gs
}

func newResult() *TurnResult {
	return &TurnResult{Income: make(map[string]Resources)}
}

// --- Map tests ---

func TestTournamentMapProvinceCount(t *testing.T) {
	w := TournamentMap()
	if len(w.Provinces) != 24 {
		t.Errorf("expected 24 provinces, got %d", len(w.Provinces))
	}
	if len(w.Capitals) != 4 {
		t.Errorf("expected 4 capitals, got %d", len(w.Capitals))
	}
	if len(w.SecondHomes) != 4 {
		t.Errorf("expected 4 second homes, got %d", len(w.SecondHomes))
	}
}

func TestTournamentMapConcurrentCallers(t *testing.T) {
	// Match creation, order submission and view projection all fetch the
	// shared map; the first requests on a fresh process arrive together.
	const callers = 8
	maps := make([]*WorldMap, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			maps[i] = TournamentMap()
		}(i)
	}
	wg.Wait()
	for i := 1; i < callers; i++ {
		if maps[i] != maps[0] {
			t.Fatal("TournamentMap returned different instances")
		}
	}
}

func TestTournamentMapAdjacencyBidirectional(t *testing.T) {
	w := TournamentMap()
	for _, id := range w.ProvinceIDs() {
		for _, nb := range w.Neighbors(id) {
			if !w.Adjacent(nb, id) {
				t.Errorf("adjacency %s -> %s has no reverse", id, nb)
			}
		}
	}
}

func TestTournamentMapConnected(t *testing.T) {
	w := TournamentMap()
	ids := w.ProvinceIDs()
	for _, id := range ids[1:] {
		if w.Distance(ids[0], id) < 0 {
			t.Errorf("province %s unreachable from %s", id, ids[0])
		}
	}
}

func TestDistanceAndShortestPath(t *testing.T) {
	w := testWorld()
	if d := w.Distance("alpha", "delta"); d != 3 {
		t.Errorf("expected distance 3, got %d", d)
	}
	if d := w.Distance("alpha", "alpha"); d != 0 {
		t.Errorf("expected distance 0, got %d", d)
	}
	path := w.ShortestPath("alpha", "delta")
	want := []string{"alpha", "bravo", "charlie", "delta"}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}

func TestNewMatchStateSetup(t *testing.T) {
	w := TournamentMap()
	gs, err := NewMatchState(w, MatchConfig{Players: []SeatConfig{
		{ID: "a1", Name: "Agent One"},
		{ID: "a2", Name: "Agent Two"},
		{ID: "a3", Name: "Agent Three"},
		{ID: "a4", Name: "Agent Four"},
	}})
	if err != nil {
		t.Fatalf("NewMatchState: %v", err)
	}
	if len(gs.Units) != 16 {
		t.Errorf("expected 16 starting units, got %d", len(gs.Units))
	}
	for _, pid := range gs.PlayerIDs() {
		p := gs.Players[pid]
		if p.Resources != (Resources{10, 5, 5}) {
			t.Errorf("%s: expected starting resources [10 5 5], got %v", pid, p.Resources)
		}
		if len(gs.ProvincesOf(pid)) != 2 {
			t.Errorf("%s: expected 2 starting provinces, got %d", pid, len(gs.ProvincesOf(pid)))
		}
		if gs.Provinces[p.Capital].Owner != pid {
			t.Errorf("%s: capital %s not owned", pid, p.Capital)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	gs := testState()
	gs.spawnUnit("p1", Infantry, "alpha")
	c := gs.Clone()
	c.Players["p1"].Resources[ResGold] = 0
	c.Provinces["alpha"].Owner = "p2"
	c.Units[0].Province = "bravo"
	if gs.Players["p1"].Resources[ResGold] != 20 {
		t.Error("clone shares player data with original")
	}
	if gs.Provinces["alpha"].Owner != "p1" {
		t.Error("clone shares province data with original")
	}
	if gs.Units[0].Province != "alpha" {
		t.Error("clone shares unit data with original")
	}
}
