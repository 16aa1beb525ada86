package types

import "time"

// DuelStatus is the lifecycle state of a duel.
type DuelStatus string

const (
	DuelStatusWaiting   DuelStatus = "waiting"
	DuelStatusActive    DuelStatus = "active"
	DuelStatusResolved  DuelStatus = "resolved"
	DuelStatusCancelled DuelStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s DuelStatus) Valid() bool {
	switch s {
	case DuelStatusWaiting, DuelStatusActive, DuelStatusResolved, DuelStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s DuelStatus) Terminal() bool {
	return s == DuelStatusResolved || s == DuelStatusCancelled
}

// DuelType describes the matchup kind.
type DuelType string

const (
	DuelTypeHumanVsAgent DuelType = "human_vs_agent"
	DuelTypeAgentVsAgent DuelType = "agent_vs_agent"
)

// ParticipantKind distinguishes human contestants from automated agents.
type ParticipantKind string

const (
	ParticipantKindHuman ParticipantKind = "human"
	ParticipantKindAgent ParticipantKind = "agent"
)

// Participant is one of a duel's two contestants, referenced by id
// (wallet address or agent id), never by embedded account data.
type Participant struct {
	ID          string          `json:"id"`
	Kind        ParticipantKind `json:"kind"`
	DisplayName string          `json:"display_name"`
}

// Duel is a time-bounded contest between two participants tied to a market
// event. EndTime and WinnerID are set if and only if Status is resolved.
// ExternalState is an externally produced blob the engine persists verbatim
// and never interprets.
type Duel struct {
	ID            string        `json:"id"`
	Status        DuelStatus    `json:"status"`
	Type          DuelType      `json:"type"`
	Participants  []Participant `json:"participants"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	WinnerID      string        `json:"winner_id,omitempty"`
	MarketEvent   string        `json:"market_event"`
	ExternalState []byte        `json:"external_state,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// HasParticipant reports whether id is one of the duel's participants.
func (d *Duel) HasParticipant(id string) bool {
	for _, p := range d.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Opponent returns the participant id facing the given id, or "" if id is
// not a participant.
func (d *Duel) Opponent(id string) string {
	if !d.HasParticipant(id) {
		return ""
	}
	for _, p := range d.Participants {
		if p.ID != id {
			return p.ID
		}
	}
	return ""
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal record to mutation.
func (d *Duel) Clone() *Duel {
	c := *d
	c.Participants = append([]Participant(nil), d.Participants...)
	c.ExternalState = append([]byte(nil), d.ExternalState...)
	return &c
}
