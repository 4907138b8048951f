package stratagem

import "fmt"

// Message is one entry in the per-match diplomacy transcript. Private
// messages are visible only to sender and recipient; public messages to
// everyone including spectators.
type Message struct {
	ID      string `json:"id"`
	Turn    int    `json:"turn"`
	From    string `json:"from"`
	To      string `json:"to"` // player ID or PublicRecipient
	Content string `json:"content"`
}

// Public reports whether the message is addressed to everyone.
func (m *Message) Public() bool {
	return m.To == PublicRecipient
}

// VisibleTo reports whether the given viewer may read the message.
func (m *Message) VisibleTo(viewer string) bool {
	return m.Public() || m.From == viewer || m.To == viewer
}

// TreatyType names the kind of agreement. The engine records treaties and
// their breaches but never enforces them mechanically.
type TreatyType string

const (
	Alliance      TreatyType = "alliance"
	NonAggression TreatyType = "non_aggression"
	Ceasefire     TreatyType = "ceasefire"
	TradePact     TreatyType = "trade_pact"
)

// Known reports whether the string names a real treaty type.
func (t TreatyType) Known() bool {
	switch t {
	case Alliance, NonAggression, Ceasefire, TradePact:
		return true
	}
	return false
}

// TreatyState is a node in the treaty lifecycle. Transitions are monotonic:
// proposed moves to active or rejected, active moves to broken or expired,
// and the three terminal states never transition again.
type TreatyState string

const (
	TreatyProposed TreatyState = "proposed"
	TreatyActive   TreatyState = "active"
	TreatyRejected TreatyState = "rejected"
	TreatyBroken   TreatyState = "broken"
	TreatyExpired  TreatyState = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s TreatyState) Terminal() bool {
	return s == TreatyRejected || s == TreatyBroken || s == TreatyExpired
}

// Treaty is one diplomatic agreement between named parties. The proposer
// counts as having accepted; the treaty activates once every party accepts.
type Treaty struct {
	ID       string      `json:"id"`
	Type     TreatyType  `json:"type"`
	Proposer string      `json:"proposer"`
	Parties  []string    `json:"parties"`
	State    TreatyState `json:"state"`

	ProposedTurn int `json:"proposed_turn"`
	ActiveTurn   int `json:"active_turn,omitempty"`
	ClosedTurn   int `json:"closed_turn,omitempty"` // turn it left the active/proposed state
	Duration     int `json:"duration,omitempty"`    // turns active before auto-expiry; 0 = indefinite
}

// Party reports whether the player is named on the treaty.
func (t *Treaty) Party(player string) bool {
	for _, p := range t.Parties {
		if p == player {
			return true
		}
	}
	return false
}

// Counterparty returns the other named party for a two-party treaty.
func (t *Treaty) Counterparty(player string) string {
	for _, p := range t.Parties {
		if p != player {
			return p
		}
	}
	return ""
}

// PostMessage appends a message to the transcript and returns it.
func (gs *GameState) PostMessage(from string, draft MessageDraft) Message {
	msg := Message{
		ID:      gs.nextEventID("msg"),
		Turn:    gs.Turn,
		From:    from,
		To:      draft.To,
		Content: draft.Content,
	}
	gs.Messages = append(gs.Messages, msg)
	return msg
}

// ProposeTreaty records a new proposed treaty between the proposer and the
// draft's target. Both parties see it immediately.
func (gs *GameState) ProposeTreaty(proposer string, draft TreatyDraft) *Treaty {
	t := Treaty{
		ID:           gs.nextEventID("tr"),
		Type:         draft.Type,
		Proposer:     proposer,
		Parties:      []string{proposer, draft.Target},
		State:        TreatyProposed,
		ProposedTurn: gs.Turn,
		Duration:     draft.Duration,
	}
	gs.Treaties = append(gs.Treaties, t)
	return &gs.Treaties[len(gs.Treaties)-1]
}

// TreatyByID returns the treaty with the given ID, or nil.
func (gs *GameState) TreatyByID(id string) *Treaty {
	for i := range gs.Treaties {
		if gs.Treaties[i].ID == id {
			return &gs.Treaties[i]
		}
	}
	return nil
}

// AcceptTreaty moves a proposed treaty to active. Only a named party other
// than the proposer may accept; acting on a missing or terminal-state treaty
// is rejected with no state change.
func (gs *GameState) AcceptTreaty(player, treatyID string) (*Treaty, *OrderError) {
	t, err := gs.treatyActionable(player, treatyID, "accept")
	if err != nil {
		return nil, err
	}
	if t.State != TreatyProposed {
		return nil, treatyErr(player, "treaty %s is %s, not proposed", treatyID, t.State)
	}
	if player == t.Proposer {
		return nil, treatyErr(player, "proposer cannot accept their own treaty %s", treatyID)
	}
	t.State = TreatyActive
	t.ActiveTurn = gs.Turn
	return t, nil
}

// RejectTreaty moves a proposed treaty to rejected, terminally.
func (gs *GameState) RejectTreaty(player, treatyID string) (*Treaty, *OrderError) {
	t, err := gs.treatyActionable(player, treatyID, "reject")
	if err != nil {
		return nil, err
	}
	if t.State != TreatyProposed {
		return nil, treatyErr(player, "treaty %s is %s, not proposed", treatyID, t.State)
	}
	t.State = TreatyRejected
	t.ClosedTurn = gs.Turn
	return t, nil
}

// BreakTreaty lets any named party unilaterally end an active treaty. The
// breach is recorded against the breaker's trust counter; nothing else is
// restricted, treaties are never mechanically enforced.
func (gs *GameState) BreakTreaty(player, treatyID string) (*Treaty, *OrderError) {
	t, err := gs.treatyActionable(player, treatyID, "break")
	if err != nil {
		return nil, err
	}
	if t.State != TreatyActive {
		return nil, treatyErr(player, "treaty %s is %s, not active", treatyID, t.State)
	}
	t.State = TreatyBroken
	t.ClosedTurn = gs.Turn
	if gs.Trust == nil {
		gs.Trust = make(map[string]int)
	}
	gs.Trust[player]++
	return t, nil
}

func (gs *GameState) treatyActionable(player, treatyID, verb string) (*Treaty, *OrderError) {
	t := gs.TreatyByID(treatyID)
	if t == nil {
		return nil, treatyErr(player, "cannot %s: no treaty %s", verb, treatyID)
	}
	if !t.Party(player) {
		return nil, treatyErr(player, "cannot %s treaty %s: not a party", verb, treatyID)
	}
	return t, nil
}

func treatyErr(player, format string, args ...any) *OrderError {
	return &OrderError{
		Player: player,
		Kind:   KindDiplomacy,
		Code:   ErrIllegalTreatyAction,
		Reason: fmt.Sprintf(format, args...),
	}
}

// expireTreaties transitions active treaties past their duration to expired.
// Runs at the start of diplomacy bookkeeping each turn. Returns the IDs that
// expired, in ledger order.
func (gs *GameState) expireTreaties() []string {
	var expired []string
	for i := range gs.Treaties {
		t := &gs.Treaties[i]
		if t.State == TreatyActive && t.Duration > 0 && gs.Turn >= t.ActiveTurn+t.Duration {
			t.State = TreatyExpired
			t.ClosedTurn = gs.Turn
			expired = append(expired, t.ID)
		}
	}
	return expired
}

// Allied reports whether the two players share an active alliance treaty.
func (gs *GameState) Allied(a, b string) bool {
	if a == b || a == NoOwner || b == NoOwner {
		return false
	}
	for i := range gs.Treaties {
		t := &gs.Treaties[i]
		if t.State == TreatyActive && t.Type == Alliance && t.Party(a) && t.Party(b) {
			return true
		}
	}
	return false
}

// ActiveTreatyCount counts active treaties the player is party to. Feeds the
// diplomacy tech's per-treaty gold income.
func (gs *GameState) ActiveTreatyCount(player string) int {
	n := 0
	for i := range gs.Treaties {
		t := &gs.Treaties[i]
		if t.State == TreatyActive && t.Party(player) {
			n++
		}
	}
	return n
}
