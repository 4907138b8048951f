package stratagem

import "fmt"

// Order kinds as they appear in error records and logs.
type OrderKind string

const (
	KindMove       OrderKind = "move"
	KindBuildUnit  OrderKind = "build_unit"
	KindBuild      OrderKind = "build_building"
	KindResearch   OrderKind = "research"
	KindTradeRoute OrderKind = "trade_route"
	KindDiplomacy  OrderKind = "diplomacy"
	KindDisband    OrderKind = "disband"
)

// MoveOrder moves one unit to an adjacent province.
type MoveOrder struct {
	UnitID string `json:"unit_id"`
	Target string `json:"target"`
}

// BuildUnitOrder trains a unit in an owned province. Type may be
// UniqueUnit, which resolves to the player's civilization unique.
type BuildUnitOrder struct {
	Type     UnitType `json:"type"`
	Province string   `json:"province"`
}

// UniqueUnit is the build-order alias for the civ-specific unique unit.
const UniqueUnit UnitType = "unique"

// BuildBuildingOrder constructs a building in an owned province.
type BuildBuildingOrder struct {
	Type     BuildingType `json:"type"`
	Province string       `json:"province"`
}

// AgeUp is the research-order alias for advancing to the next age.
const AgeUp TechID = "age_up"

// ResearchOrder selects a tech for the current age, or advances the age.
type ResearchOrder struct {
	Tech TechID `json:"tech"`
}

// TradeRouteOrder establishes a trade route between two trade posts.
type TradeRouteOrder struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DisbandOrder voluntarily removes an owned unit.
type DisbandOrder struct {
	UnitID string `json:"unit_id"`
}

// MessageDraft is an outgoing diplomacy message. Recipient PublicRecipient
// broadcasts to all players and spectators.
type MessageDraft struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// PublicRecipient addresses a message to every player and spectator.
const PublicRecipient = "public"

// TreatyDraft proposes a treaty to another player.
type TreatyDraft struct {
	Target   string     `json:"target"`
	Type     TreatyType `json:"type"`
	Duration int        `json:"duration,omitempty"` // turns; 0 = indefinite
}

// DiplomacyAction carries one player's diplomacy submissions for the turn.
type DiplomacyAction struct {
	Messages []MessageDraft `json:"messages,omitempty"`
	Propose  []TreatyDraft  `json:"propose,omitempty"`
	Accept   []string       `json:"accept,omitempty"` // treaty IDs
	Reject   []string       `json:"reject,omitempty"`
	Break    []string       `json:"break,omitempty"`
}

// OrderBatch is everything one player submits for one turn. A player
// submits at most one batch per turn; resubmission replaces the previous
// batch wholesale.
type OrderBatch struct {
	Player         string               `json:"player"`
	Moves          []MoveOrder          `json:"moves,omitempty"`
	BuildUnits     []BuildUnitOrder     `json:"build_units,omitempty"`
	BuildBuildings []BuildBuildingOrder `json:"build_buildings,omitempty"`
	Research       *ResearchOrder       `json:"research,omitempty"`
	TradeRoutes    []TradeRouteOrder    `json:"trade_routes,omitempty"`
	Disbands       []DisbandOrder       `json:"disbands,omitempty"`
	Diplomacy      *DiplomacyAction     `json:"diplomacy,omitempty"`
}

// Error codes for rejected orders. A rejected order is dropped individually;
// sibling orders in the same batch still execute.
type OrderErrorCode string

const (
	ErrInvalidOrder          OrderErrorCode = "invalid_order"
	ErrInsufficientResources OrderErrorCode = "insufficient_resources"
	ErrIllegalTreatyAction   OrderErrorCode = "illegal_treaty_action"
)

// OrderError records why a single order was dropped.
type OrderError struct {
	Player string         `json:"player"`
	Kind   OrderKind      `json:"kind"`
	Code   OrderErrorCode `json:"code"`
	Reason string         `json:"reason"`
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s %s order rejected (%s): %s", e.Player, e.Kind, e.Code, e.Reason)
}
