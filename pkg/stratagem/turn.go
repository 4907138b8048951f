package stratagem

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrReplayDivergence means resolution produced different output for
// identical recorded input. It indicates a determinism bug and must halt
// the match; replay integrity is a core guarantee.
var ErrReplayDivergence = errors.New("turn resolution diverged from recorded digest")

// TurnResult is the immutable record of one resolved turn. Results form the
// append-only replay log and are never edited after being produced.
type TurnResult struct {
	Turn         int                  `json:"turn"`
	State        *GameState           `json:"state"`
	Events       []string             `json:"events"`
	Combats      []CombatResult       `json:"combats,omitempty"`
	Income       map[string]Resources `json:"income"`
	OrderErrors  []OrderError         `json:"order_errors,omitempty"`
	Eliminations []string             `json:"eliminations,omitempty"`
	Victory      VictoryCheck         `json:"victory"`
	Digest       string               `json:"digest"`
}

func (r *TurnResult) event(format string, args ...any) {
	r.Events = append(r.Events, fmt.Sprintf(format, args...))
}

func (r *TurnResult) reject(player string, kind OrderKind, code OrderErrorCode, reason string) {
	r.OrderErrors = append(r.OrderErrors, OrderError{
		Player: player, Kind: kind, Code: code, Reason: reason,
	})
}

// ProcessTurn resolves one full turn: movement, combat, economy, diplomacy
// bookkeeping, then the victory check, in that fixed order. The input state
// is never mutated; resolution runs on a clone and either completes fully,
// returning the result with the new state, or returns an error with no
// observable change. Players without a batch are treated as having
// submitted empty orders.
func ProcessTurn(gs *GameState, w *WorldMap, submitted map[string]OrderBatch) (*TurnResult, error) {
	if gs.Winner != "" {
		return nil, fmt.Errorf("match already won by %s", gs.Winner)
	}
	work := gs.Clone()
	work.Phase = PhaseResolution

	res := &TurnResult{
		Turn:   work.Turn,
		Income: make(map[string]Resources, len(work.Players)),
	}

	batches := make(map[string]*OrderBatch, len(work.Players))
	for _, pid := range work.PlayerIDs() {
		raw, ok := submitted[pid]
		if !ok {
			continue
		}
		raw.Player = pid
		accepted, errs := ValidateBatch(work, w, raw)
		res.OrderErrors = append(res.OrderErrors, errs...)
		batches[pid] = &accepted
	}

	processDisbands(work, batches, res)
	contested := resolveMovement(work, w, batches, res)
	for _, provID := range contested {
		if combat := resolveCombat(work, w, provID, res); combat != nil {
			res.Combats = append(res.Combats, *combat)
		}
	}
	claimProvinces(work, res)
	resolveEconomy(work, w, batches, res)
	resolveDiplomacy(work, batches, res)
	recordIntel(work, w)

	res.Eliminations = checkEliminations(work)
	for _, pid := range res.Eliminations {
		res.event("%s eliminated", pid)
	}
	res.Victory = evaluateVictory(work)
	if res.Victory.Winner != "" {
		work.Winner = res.Victory.Winner
		res.event("%s wins by %s", res.Victory.Winner, res.Victory.Kind)
	}
	work.Phase = PhaseDiplomacy
	// The resulting state is the next pending turn, keeping the state's
	// turn field aligned with the turn-log numbering.
	work.Turn++

	if err := checkInvariants(work); err != nil {
		return nil, err
	}
	res.State = work
	digest, err := resultDigest(res)
	if err != nil {
		return nil, err
	}
	res.Digest = digest
	return res, nil
}

// ReplayTurn re-resolves a recorded turn and verifies the digest matches
// the recorded one. A mismatch is fatal for the match.
func ReplayTurn(gs *GameState, w *WorldMap, submitted map[string]OrderBatch, wantDigest string) (*TurnResult, error) {
	res, err := ProcessTurn(gs, w, submitted)
	if err != nil {
		return nil, err
	}
	if res.Digest != wantDigest {
		return nil, fmt.Errorf("turn %d: %w", res.Turn, ErrReplayDivergence)
	}
	return res, nil
}

// resolveDiplomacy runs the turn's diplomacy bookkeeping: duration expiry
// first, then each player's messages, proposals and treaty responses in
// sorted player order. Illegal treaty actions are recorded and cause no
// state change.
func resolveDiplomacy(gs *GameState, batches map[string]*OrderBatch, res *TurnResult) {
	for _, id := range gs.expireTreaties() {
		res.event("treaty %s expired", id)
	}
	for _, pid := range gs.PlayerIDs() {
		batch := batches[pid]
		if batch == nil || batch.Diplomacy == nil || !gs.Players[pid].Alive {
			continue
		}
		dip := batch.Diplomacy
		for _, draft := range dip.Messages {
			gs.PostMessage(pid, draft)
		}
		for _, draft := range dip.Propose {
			t := gs.ProposeTreaty(pid, draft)
			res.event("%s proposed %s treaty %s to %s", pid, t.Type, t.ID, draft.Target)
		}
		for _, id := range dip.Accept {
			if t, err := gs.AcceptTreaty(pid, id); err != nil {
				res.OrderErrors = append(res.OrderErrors, *err)
			} else {
				res.event("%s accepted %s treaty %s", pid, t.Type, t.ID)
			}
		}
		for _, id := range dip.Reject {
			if t, err := gs.RejectTreaty(pid, id); err != nil {
				res.OrderErrors = append(res.OrderErrors, *err)
			} else {
				res.event("%s rejected %s treaty %s", pid, t.Type, t.ID)
			}
		}
		for _, id := range dip.Break {
			if t, err := gs.BreakTreaty(pid, id); err != nil {
				res.OrderErrors = append(res.OrderErrors, *err)
			} else {
				res.event("%s broke %s treaty %s", pid, t.Type, t.ID)
			}
		}
	}
}

// checkInvariants guards the structural invariants that escalate to
// match-fatal errors if violated. Anything caught here is an engine bug,
// not a bad order.
func checkInvariants(gs *GameState) error {
	for _, pid := range gs.PlayerIDs() {
		p := gs.Players[pid]
		for i, v := range p.Resources {
			if v < 0 {
				return fmt.Errorf("invariant violation: player %s resource %d is negative (%d)", pid, i, v)
			}
		}
	}
	for i := range gs.Units {
		u := &gs.Units[i]
		if _, ok := gs.Provinces[u.Province]; !ok {
			return fmt.Errorf("invariant violation: unit %s in unknown province %s", u.ID, u.Province)
		}
		if _, ok := gs.Players[u.Owner]; !ok {
			return fmt.Errorf("invariant violation: unit %s owned by unknown player %s", u.ID, u.Owner)
		}
	}
	return nil
}

// resultDigest is the deterministic fingerprint of a resolved turn. JSON
// marshaling sorts map keys, so identical results always hash identically.
func resultDigest(res *TurnResult) (string, error) {
	payload, err := json.Marshal(struct {
		Turn    int                  `json:"turn"`
		State   *GameState           `json:"state"`
		Events  []string             `json:"events"`
		Combats []CombatResult       `json:"combats"`
		Income  map[string]Resources `json:"income"`
	}{res.Turn, res.State, res.Events, res.Combats, res.Income})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
