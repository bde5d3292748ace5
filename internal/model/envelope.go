package model

import "strings"

// Lane selects the notification topic a contact is routed to.
type Lane string

const (
	LaneStandard Lane = "standard"
	LanePriority Lane = "priority"
)

func (l Lane) String() string { return string(l) }

func (l Lane) Valid() bool {
	return l == LaneStandard || l == LanePriority
}

// Topic is the Kafka topic carrying notifications for the lane.
func (l Lane) Topic() string { return "contact.notify." + string(l) }

// ParseLane normalizes input; empty => standard.
// Returns (value, true) if valid; otherwise (standard, false).
func ParseLane(s string) (Lane, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return LaneStandard, true
	case "priority":
		return LanePriority, true
	default:
		return LaneStandard, false
	}
}

// LaneFor routes urgent and high priority contacts to the priority lane.
func LaneFor(p Priority) Lane {
	if p == PriorityUrgent || p == PriorityHigh {
		return LanePriority
	}
	return LaneStandard
}

// Envelope is the payload published to Kafka (via the outbox relay or Debezium outbox SMT).
type Envelope struct {
	ID      string  `json:"id"` // contact ULID
	Lane    Lane    `json:"lane"`
	Contact Contact `json:"contact"`
}
