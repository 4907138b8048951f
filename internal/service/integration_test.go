//go:build integration

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/model"
	"github.com/freeeve/stratagem/internal/repository/postgres"
	redisrepo "github.com/freeeve/stratagem/internal/repository/redis"
	"github.com/freeeve/stratagem/internal/testutil"
	"github.com/freeeve/stratagem/pkg/stratagem"
)

// testEnv holds shared test infrastructure.
type testEnv struct {
	db        *sql.DB
	rdb       *goredis.Client
	matchRepo *postgres.MatchRepo
	turnRepo  *postgres.TurnRepo
	msgRepo   *postgres.MessageRepo
	cache     *redisrepo.Client
	jwtMgr    *auth.JWTManager
}

var env *testEnv

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	if env == nil {
		db := testutil.SetupDB(t)
		rdb := testutil.SetupRedis(t)
		env = &testEnv{
			db:        db,
			rdb:       rdb,
			matchRepo: postgres.NewMatchRepo(db),
			turnRepo:  postgres.NewTurnRepo(db),
			msgRepo:   postgres.NewMessageRepo(db),
			cache:     redisrepo.NewClientFromPool(rdb),
			jwtMgr:    auth.NewJWTManager("integration-secret"),
		}
	}
	testutil.CleanupDB(t, env.db)
	testutil.CleanupRedis(t, env.rdb)
	return env
}

// createMatch creates a two-seat match and returns it with its credentials.
func createMatch(t *testing.T, e *testEnv) (*model.Match, *MatchCredentials) {
	t.Helper()
	matchSvc := NewMatchService(e.matchRepo, e.turnRepo, e.cache, e.jwtMgr)
	match, creds, err := matchSvc.CreateMatch(context.Background(), "Integration Test",
		[]AgentSeat{{AgentName: "agent-one"}, {AgentName: "agent-two"}}, time.Minute, 10)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return match, creds
}

func TestMatchLifecycle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	match, creds := createMatch(t, e)

	if match.Status != "active" {
		t.Fatalf("expected active match, got %s", match.Status)
	}
	if len(creds.PlayerTokens) != 2 || creds.SpectatorToken == "" {
		t.Fatalf("expected full credentials, got %+v", creds)
	}

	// Turn 1 exists in the log with the initial state
	turn, err := e.turnRepo.CurrentTurn(ctx, match.ID)
	if err != nil || turn == nil {
		t.Fatalf("current turn: %v %v", turn, err)
	}
	if turn.Turn != 1 {
		t.Fatalf("expected turn 1, got %d", turn.Turn)
	}

	// Cache holds the same state
	cached, err := e.cache.GetMatchState(ctx, match.ID)
	if err != nil || cached == nil {
		t.Fatalf("cached state: %v %v", cached, err)
	}
}

func TestSubmitAndResolveTurn(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	match, _ := createMatch(t, e)

	orderSvc := NewOrderService(e.matchRepo, e.turnRepo, e.cache)
	turnSvc := NewTurnService(e.matchRepo, e.turnRepo, e.cache, nil)

	// p1 moves its scout, p2 stays silent
	raw, _ := e.cache.GetMatchState(ctx, match.ID)
	var gs stratagem.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	w := stratagem.TournamentMap()
	var scout *stratagem.Unit
	for _, u := range gs.UnitsOf("p1") {
		if u.Type == stratagem.Scout {
			scout = u
			break
		}
	}
	target := w.Neighbors(scout.Province)[0]

	accepted, orderErrs, err := orderSvc.SubmitBatch(ctx, match.ID, "p1", stratagem.OrderBatch{
		Moves: []stratagem.MoveOrder{{UnitID: scout.ID, Target: target}},
	})
	if err != nil {
		t.Fatalf("submit batch: %v", err)
	}
	if len(orderErrs) != 0 || len(accepted.Moves) != 1 {
		t.Fatalf("unexpected validation outcome: %+v %+v", accepted, orderErrs)
	}

	if err := turnSvc.ResolveTurnEarly(ctx, match.ID); err != nil {
		t.Fatalf("resolve turn: %v", err)
	}

	// Turn 1 resolved, turn 2 pending
	rec, err := e.turnRepo.TurnByNumber(ctx, match.ID, 1)
	if err != nil || rec == nil {
		t.Fatalf("turn by number: %v %v", rec, err)
	}
	if rec.ResolvedAt == nil || rec.Digest == "" {
		t.Fatal("expected resolved turn with digest")
	}
	current, _ := e.turnRepo.CurrentTurn(ctx, match.ID)
	if current == nil || current.Turn != 2 {
		t.Fatalf("expected current turn 2, got %+v", current)
	}

	// The recorded turn replays to the same digest
	result, err := turnSvc.VerifyTurn(ctx, match.ID, 1)
	if err != nil {
		t.Fatalf("verify turn: %v", err)
	}
	if result.Digest != rec.Digest {
		t.Fatalf("replay digest mismatch: %s vs %s", result.Digest, rec.Digest)
	}
}

func TestReadyTriggersNothingUntilAll(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	match, _ := createMatch(t, e)

	orderSvc := NewOrderService(e.matchRepo, e.turnRepo, e.cache)

	ready, total, err := orderSvc.MarkReady(ctx, match.ID, "p1")
	if err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if ready != 1 || total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", ready, total)
	}

	turn, _ := e.turnRepo.CurrentTurn(ctx, match.ID)
	if turn.Turn != 1 {
		t.Fatal("expected turn 1 still pending with one seat ready")
	}
}

func TestMessageTranscript(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	match, _ := createMatch(t, e)

	if _, err := e.msgRepo.Create(ctx, match.ID, "p1", "p2", "truce until turn 5?", 1); err != nil {
		t.Fatalf("create private message: %v", err)
	}
	if _, err := e.msgRepo.Create(ctx, match.ID, "p2", "", "beware the north", 1); err != nil {
		t.Fatalf("create broadcast: %v", err)
	}

	// p1 sees both; a third party would only see the broadcast
	visible, err := e.msgRepo.ListVisible(ctx, match.ID, "p1")
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 messages for p1, got %d", len(visible))
	}
	other, _ := e.msgRepo.ListVisible(ctx, match.ID, "p3")
	if len(other) != 1 {
		t.Fatalf("expected 1 broadcast for outsider, got %d", len(other))
	}

	all, _ := e.msgRepo.ListAll(ctx, match.ID)
	if len(all) != 2 {
		t.Fatalf("expected full transcript of 2, got %d", len(all))
	}
}

func TestRecoverAfterRestart(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	match, _ := createMatch(t, e)

	// Simulate restart: wipe Redis
	testutil.CleanupRedis(t, e.rdb)

	turnSvc := NewTurnService(e.matchRepo, e.turnRepo, e.cache, nil)
	if err := turnSvc.RecoverActiveMatches(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}

	state, err := e.cache.GetMatchState(ctx, match.ID)
	if err != nil || state == nil {
		t.Fatalf("expected rehydrated state, got %v %v", state, err)
	}
}
