package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/service"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

// --- Mock Repositories ---

type mockMatchRepo struct {
	matches map[string]*model.Match
	players map[string][]model.MatchPlayer
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		matches: make(map[string]*model.Match),
		players: make(map[string][]model.MatchPlayer),
	}
}

func (m *mockMatchRepo) Create(_ context.Context, name, turnDuration string, maxTurns int) (*model.Match, error) {
	match := &model.Match{
		ID:           fmt.Sprintf("match-%d", len(m.matches)+1),
		Name:         name,
		Status:       "active",
		TurnDuration: turnDuration,
		MaxTurns:     maxTurns,
		CreatedAt:    time.Now(),
	}
	m.matches[match.ID] = match
	return match, nil
}

func (m *mockMatchRepo) SeatPlayer(_ context.Context, matchID, playerID, agentName, civ string) error {
	m.players[matchID] = append(m.players[matchID], model.MatchPlayer{
		MatchID:   matchID,
		PlayerID:  playerID,
		AgentName: agentName,
		Civ:       civ,
		SeatedAt:  time.Now(),
	})
	return nil
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	cp.Players = m.players[id]
	return &cp, nil
}

func (m *mockMatchRepo) ListActive(_ context.Context) ([]model.Match, error) {
	var result []model.Match
	for _, match := range m.matches {
		if match.Status == "active" {
			cp := *match
			cp.Players = m.players[match.ID]
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockMatchRepo) ListFinished(_ context.Context) ([]model.Match, error) {
	var result []model.Match
	for _, match := range m.matches {
		if match.Status == "finished" {
			cp := *match
			cp.Players = m.players[match.ID]
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockMatchRepo) SetFinished(_ context.Context, matchID, winner, victoryKind string) error {
	if match, ok := m.matches[matchID]; ok {
		match.Status = "finished"
		match.Winner = winner
		match.VictoryKind = victoryKind
		now := time.Now()
		match.FinishedAt = &now
	}
	return nil
}

func (m *mockMatchRepo) Delete(_ context.Context, matchID string) error {
	delete(m.matches, matchID)
	delete(m.players, matchID)
	return nil
}

type mockTurnRepo struct {
	turns map[string]*model.TurnRecord
	seq   int
}

func newMockTurnRepo() *mockTurnRepo {
	return &mockTurnRepo{turns: make(map[string]*model.TurnRecord)}
}

func (m *mockTurnRepo) CreateTurn(_ context.Context, matchID string, turn int, stateBefore json.RawMessage, deadline time.Time) (*model.TurnRecord, error) {
	m.seq++
	t := &model.TurnRecord{
		ID:          fmt.Sprintf("turn-%d", m.seq),
		MatchID:     matchID,
		Turn:        turn,
		StateBefore: stateBefore,
		Deadline:    deadline,
		CreatedAt:   time.Now(),
	}
	m.turns[t.ID] = t
	return t, nil
}

func (m *mockTurnRepo) CurrentTurn(_ context.Context, matchID string) (*model.TurnRecord, error) {
	var latest *model.TurnRecord
	for _, t := range m.turns {
		if t.MatchID == matchID && t.ResolvedAt == nil {
			if latest == nil || t.Turn > latest.Turn {
				latest = t
			}
		}
	}
	return latest, nil
}

func (m *mockTurnRepo) TurnByNumber(_ context.Context, matchID string, turn int) (*model.TurnRecord, error) {
	for _, t := range m.turns {
		if t.MatchID == matchID && t.Turn == turn {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTurnRepo) ListTurns(_ context.Context, matchID string) ([]model.TurnRecord, error) {
	var result []model.TurnRecord
	for _, t := range m.turns {
		if t.MatchID == matchID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockTurnRepo) ResolveTurn(_ context.Context, turnID string, stateAfter, batches, result json.RawMessage, digest string) error {
	if t, ok := m.turns[turnID]; ok {
		t.StateAfter = stateAfter
		t.Batches = batches
		t.Result = result
		t.Digest = digest
		now := time.Now()
		t.ResolvedAt = &now
	}
	return nil
}

func (m *mockTurnRepo) ListExpired(_ context.Context) ([]model.TurnRecord, error) {
	return nil, nil
}

type mockMessageRepo struct {
	messages []model.Message
	seq      int
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(_ context.Context, matchID, sender, recipient, content string, turn int) (*model.Message, error) {
	m.seq++
	msg := model.Message{
		ID:        fmt.Sprintf("msg-%d", m.seq),
		MatchID:   matchID,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Turn:      turn,
		CreatedAt: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockMessageRepo) ListVisible(_ context.Context, matchID, playerID string) ([]model.Message, error) {
	var result []model.Message
	for _, msg := range m.messages {
		if msg.MatchID != matchID {
			continue
		}
		if msg.Recipient == "" || msg.Sender == playerID || msg.Recipient == playerID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockMessageRepo) ListAll(_ context.Context, matchID string) ([]model.Message, error) {
	var result []model.Message
	for _, msg := range m.messages {
		if msg.MatchID == matchID {
			result = append(result, msg)
		}
	}
	return result, nil
}

// mockCache implements repository.MatchCache for testing.
type mockCache struct {
	states  map[string]json.RawMessage
	batches map[string]json.RawMessage // key: "matchID:player"
	ready   map[string]map[string]bool // matchID -> set of players
	timers  map[string]time.Time
}

func newMockCache() *mockCache {
	return &mockCache{
		states:  make(map[string]json.RawMessage),
		batches: make(map[string]json.RawMessage),
		ready:   make(map[string]map[string]bool),
		timers:  make(map[string]time.Time),
	}
}

func (c *mockCache) SetMatchState(_ context.Context, matchID string, state json.RawMessage) error {
	c.states[matchID] = state
	return nil
}

func (c *mockCache) GetMatchState(_ context.Context, matchID string) (json.RawMessage, error) {
	return c.states[matchID], nil
}

func (c *mockCache) SetBatch(_ context.Context, matchID, player string, batch json.RawMessage) error {
	c.batches[matchID+":"+player] = batch
	return nil
}

func (c *mockCache) GetBatch(_ context.Context, matchID, player string) (json.RawMessage, error) {
	return c.batches[matchID+":"+player], nil
}

func (c *mockCache) GetAllBatches(_ context.Context, matchID string, players []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)
	for _, player := range players {
		if data, ok := c.batches[matchID+":"+player]; ok {
			result[player] = data
		}
	}
	return result, nil
}

func (c *mockCache) MarkReady(_ context.Context, matchID, player string) error {
	if c.ready[matchID] == nil {
		c.ready[matchID] = make(map[string]bool)
	}
	c.ready[matchID][player] = true
	return nil
}

func (c *mockCache) UnmarkReady(_ context.Context, matchID, player string) error {
	if c.ready[matchID] != nil {
		delete(c.ready[matchID], player)
	}
	return nil
}

func (c *mockCache) ReadyCount(_ context.Context, matchID string) (int64, error) {
	return int64(len(c.ready[matchID])), nil
}

func (c *mockCache) ReadyPlayers(_ context.Context, matchID string) ([]string, error) {
	var result []string
	for player := range c.ready[matchID] {
		result = append(result, player)
	}
	return result, nil
}

func (c *mockCache) SetTimer(_ context.Context, matchID string, deadline time.Time) error {
	c.timers[matchID] = deadline
	return nil
}

func (c *mockCache) ClearTimer(_ context.Context, matchID string) error {
	delete(c.timers, matchID)
	return nil
}

func (c *mockCache) ClearTurnData(_ context.Context, matchID string, players []string) error {
	delete(c.ready, matchID)
	delete(c.timers, matchID)
	for _, player := range players {
		delete(c.batches, matchID+":"+player)
	}
	return nil
}

func (c *mockCache) DeleteMatchData(_ context.Context, matchID string, players []string) error {
	delete(c.states, matchID)
	delete(c.ready, matchID)
	delete(c.timers, matchID)
	for _, player := range players {
		delete(c.batches, matchID+":"+player)
	}
	return nil
}

// --- Helpers ---

type handlerEnv struct {
	matchRepo *mockMatchRepo
	turnRepo  *mockTurnRepo
	msgRepo   *mockMessageRepo
	cache     *mockCache
	hub       *Hub
	matchSvc  *service.MatchService
	orderSvc  *service.OrderService
	turnSvc   *service.TurnService
	viewSvc   *service.ViewService
	matchID   string
}

// newHandlerEnv wires handlers against mocks with one two-seat match created.
func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	env := &handlerEnv{
		matchRepo: newMockMatchRepo(),
		turnRepo:  newMockTurnRepo(),
		msgRepo:   newMockMessageRepo(),
		cache:     newMockCache(),
		hub:       NewHub(),
	}
	jwtMgr := auth.NewJWTManager("test-secret")
	env.matchSvc = service.NewMatchService(env.matchRepo, env.turnRepo, env.cache, jwtMgr)
	env.orderSvc = service.NewOrderService(env.matchRepo, env.turnRepo, env.cache)
	env.turnSvc = service.NewTurnService(env.matchRepo, env.turnRepo, env.cache, env.hub)
	env.viewSvc = service.NewViewService(env.matchRepo, env.turnRepo, env.cache)

	match, _, err := env.matchSvc.CreateMatch(context.Background(), "handler test",
		[]service.AgentSeat{{AgentName: "agent-one"}, {AgentName: "agent-two"}}, time.Minute, 0)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	env.matchID = match.ID
	return env
}

// reqWithClaims builds a request carrying match-scoped claims and the match
// path value.
func reqWithClaims(method, path, body, matchID, playerID, role string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	claims := &auth.Claims{MatchID: matchID, PlayerID: playerID, Role: role}
	req = req.WithContext(auth.SetClaimsForTest(req.Context(), claims))
	req.SetPathValue("id", matchID)
	return req
}

// scoutOf finds the given seat's scout in the cached live state.
func scoutOf(t *testing.T, env *handlerEnv, playerID string) (*stratagem.Unit, string) {
	t.Helper()
	var gs stratagem.GameState
	if err := json.Unmarshal(env.cache.states[env.matchID], &gs); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	for _, u := range gs.UnitsOf(playerID) {
		if u.Type == stratagem.Scout {
			return u, stratagem.TournamentMap().Neighbors(u.Province)[0]
		}
	}
	t.Fatalf("no scout for %s", playerID)
	return nil, ""
}

// --- Match Handler Tests ---

func TestCreateMatchEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	body := `{"name":"Agent Showdown","seats":[{"agent_name":"alpha"},{"agent_name":"beta","civ":"tidecallers"}]}`
	req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateMatch(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Match          model.Match       `json:"match"`
		PlayerTokens   map[string]string `json:"player_tokens"`
		SpectatorToken string            `json:"spectator_token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Match.Name != "Agent Showdown" {
		t.Errorf("expected match name, got %s", resp.Match.Name)
	}
	if len(resp.PlayerTokens) != 2 || resp.SpectatorToken == "" {
		t.Errorf("expected credentials for both seats plus spectator, got %+v", resp)
	}
}

func TestCreateMatchMissingName(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(`{"seats":[{"agent_name":"a"},{"agent_name":"b"}]}`))
	rec := httptest.NewRecorder()
	h.CreateMatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateMatchBadSeatCount(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(`{"name":"solo","seats":[{"agent_name":"a"}]}`))
	rec := httptest.NewRecorder()
	h.CreateMatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateMatchBadDuration(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	body := `{"name":"x","seats":[{"agent_name":"a"},{"agent_name":"b"}],"turn_duration":"whenever"}`
	req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateMatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	req := httptest.NewRequest(http.MethodGet, "/matches/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	h.GetMatch(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetMatchWithReadyCount(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	env.orderSvc.MarkReady(context.Background(), env.matchID, "p1")

	req := httptest.NewRequest(http.MethodGet, "/matches/"+env.matchID, nil)
	req.SetPathValue("id", env.matchID)
	rec := httptest.NewRecorder()
	h.GetMatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)
	if match.ReadyCount != 1 {
		t.Errorf("expected ready_count 1, got %d", match.ReadyCount)
	}
}

func TestStopMatchRequiresSpectator(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMatchHandler(env.matchSvc, env.turnSvc, time.Minute, 40)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/stop", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.StopMatch(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for player token, got %d", rec.Code)
	}

	req = reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/stop", "", env.matchID, "", auth.RoleSpectator)
	rec = httptest.NewRecorder()
	h.StopMatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for spectator token, got %d: %s", rec.Code, rec.Body.String())
	}
	var match model.Match
	json.Unmarshal(rec.Body.Bytes(), &match)
	if match.Status != "finished" || match.VictoryKind != "stopped" {
		t.Errorf("expected stopped match, got %+v", match)
	}
}

// --- Order Handler Tests ---

func TestSubmitOrders(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	scout, target := scoutOf(t, env, "p1")
	body := fmt.Sprintf(`{"moves":[{"unit_id":"%s","target":"%s"}]}`, scout.ID, target)
	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/orders", body, env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.SubmitOrders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Accepted    stratagem.OrderBatch   `json:"accepted"`
		OrderErrors []stratagem.OrderError `json:"order_errors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Accepted.Moves) != 1 || len(resp.OrderErrors) != 0 {
		t.Errorf("unexpected submission outcome: %s", rec.Body.String())
	}
}

func TestSubmitOrdersWrongMatchToken(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	// Token scoped to a different match must not act here.
	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/orders", `{}`, "other-match", "p1", auth.RolePlayer)
	req.SetPathValue("id", env.matchID)
	rec := httptest.NewRecorder()
	h.SubmitOrders(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestSubmitOrdersSpectatorForbidden(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/orders", `{}`, env.matchID, "", auth.RoleSpectator)
	rec := httptest.NewRecorder()
	h.SubmitOrders(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestGetOrdersNoneSubmitted(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/orders", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.GetOrders(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestMarkReadyEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/ready", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.MarkReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ReadyCount int  `json:"ready_count"`
		TotalSeats int  `json:"total_seats"`
		AllReady   bool `json:"all_ready"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ReadyCount != 1 || resp.TotalSeats != 2 || resp.AllReady {
		t.Errorf("unexpected ready response: %+v", resp)
	}
}

func TestUnmarkReadyEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orderSvc, env.turnSvc, env.hub)

	env.orderSvc.MarkReady(context.Background(), env.matchID, "p1")

	req := reqWithClaims(http.MethodDelete, "/matches/"+env.matchID+"/ready", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.UnmarkReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	count, _ := env.cache.ReadyCount(context.Background(), env.matchID)
	if count != 0 {
		t.Errorf("expected ready flag cleared, got %d", count)
	}
}

// --- View Handler Tests ---

func TestGetViewPlayer(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewViewHandler(env.viewSvc)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/view", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.GetView(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view stratagem.PlayerView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.Player != "p1" {
		t.Errorf("expected view for p1, got %s", view.Player)
	}
	if len(view.Fog) == 0 {
		t.Error("expected some provinces fogged at turn 1")
	}
}

func TestGetViewSpectator(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewViewHandler(env.viewSvc)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/view", "", env.matchID, "", auth.RoleSpectator)
	rec := httptest.NewRecorder()
	h.GetView(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view stratagem.SpectatorView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if len(view.Players) != 2 {
		t.Errorf("expected 2 players in spectator view, got %d", len(view.Players))
	}
}

func TestGetViewNoToken(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewViewHandler(env.viewSvc)

	req := httptest.NewRequest(http.MethodGet, "/matches/"+env.matchID+"/view", nil)
	req.SetPathValue("id", env.matchID)
	rec := httptest.NewRecorder()
	h.GetView(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

// --- Turn Handler Tests ---

func TestCurrentTurnPlayerGetsSummary(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewTurnHandler(env.turnRepo, env.turnSvc)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/turns/current", "", env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.CurrentTurn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// The unfiltered state blob must not leak to players
	if strings.Contains(rec.Body.String(), "state_before") {
		t.Error("player turn summary must not carry state_before")
	}
	var summary struct {
		Turn int `json:"turn"`
	}
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.Turn != 1 {
		t.Errorf("expected turn 1, got %d", summary.Turn)
	}
}

func TestCurrentTurnSpectatorGetsFullRecord(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewTurnHandler(env.turnRepo, env.turnSvc)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/turns/current", "", env.matchID, "", auth.RoleSpectator)
	rec := httptest.NewRecorder()
	h.CurrentTurn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var record model.TurnRecord
	json.Unmarshal(rec.Body.Bytes(), &record)
	if record.StateBefore == nil {
		t.Error("expected full record with state_before for spectator")
	}
}

func TestGetTurnSpectatorOnly(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewTurnHandler(env.turnRepo, env.turnSvc)

	req := reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/turns/1", "", env.matchID, "p1", auth.RolePlayer)
	req.SetPathValue("turn", "1")
	rec := httptest.NewRecorder()
	h.GetTurn(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for player, got %d", rec.Code)
	}
}

func TestVerifyTurnEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewTurnHandler(env.turnRepo, env.turnSvc)

	if err := env.turnSvc.ResolveTurnEarly(context.Background(), env.matchID); err != nil {
		t.Fatalf("resolve turn: %v", err)
	}

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/turns/1/verify", "", env.matchID, "p1", auth.RolePlayer)
	req.SetPathValue("turn", "1")
	rec := httptest.NewRecorder()
	h.VerifyTurn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Verified bool   `json:"verified"`
		Digest   string `json:"digest"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Verified || resp.Digest == "" {
		t.Errorf("expected verified turn with digest, got %s", rec.Body.String())
	}
}

func TestVerifyTurnUnresolved(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewTurnHandler(env.turnRepo, env.turnSvc)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/turns/1/verify", "", env.matchID, "p1", auth.RolePlayer)
	req.SetPathValue("turn", "1")
	rec := httptest.NewRecorder()
	h.VerifyTurn(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unresolved turn, got %d", rec.Code)
	}
}

// --- Message Handler Tests ---

func TestSendAndListMessages(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMessageHandler(env.msgRepo, env.turnRepo, env.hub)

	// p1 broadcasts publicly
	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/messages", `{"content":"anyone want a truce?"}`, env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// p2 sees the broadcast
	req = reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/messages", "", env.matchID, "p2", auth.RolePlayer)
	rec = httptest.NewRecorder()
	h.ListMessages(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var messages []model.Message
	json.Unmarshal(rec.Body.Bytes(), &messages)
	if len(messages) != 1 || messages[0].Content != "anyone want a truce?" {
		t.Errorf("unexpected transcript for p2: %+v", messages)
	}
	if messages[0].Turn != 1 {
		t.Errorf("expected message stamped with turn 1, got %d", messages[0].Turn)
	}
}

func TestPrivateMessageVisibility(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMessageHandler(env.msgRepo, env.turnRepo, env.hub)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/messages", `{"recipient":"p2","content":"secret pact"}`, env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	// The spectator transcript has it
	req = reqWithClaims(http.MethodGet, "/matches/"+env.matchID+"/messages", "", env.matchID, "", auth.RoleSpectator)
	rec = httptest.NewRecorder()
	h.ListMessages(rec, req)
	var all []model.Message
	json.Unmarshal(rec.Body.Bytes(), &all)
	if len(all) != 1 {
		t.Errorf("expected spectator to see the private message, got %d", len(all))
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMessageHandler(env.msgRepo, env.turnRepo, env.hub)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/messages", `{"content":""}`, env.matchID, "p1", auth.RolePlayer)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessageSpectatorForbidden(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewMessageHandler(env.msgRepo, env.turnRepo, env.hub)

	req := reqWithClaims(http.MethodPost, "/matches/"+env.matchID+"/messages", `{"content":"hi"}`, env.matchID, "", auth.RoleSpectator)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
