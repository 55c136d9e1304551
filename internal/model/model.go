package model

import (
	"fmt"
	"time"
)

// Inc is the incremental-update hint passed from the client through to
// providers. The empty value means the client is building the interval from
// scratch.
type Inc string

const (
	IncNone Inc = ""
	// IncLo extends an interval the client already has on its low side.
	IncLo Inc = "lo"
	// IncHi extends an interval the client already has on its high side.
	IncHi Inc = "hi"
)

// ParseInc validates a raw query value.
func ParseInc(s string) (Inc, error) {
	switch Inc(s) {
	case IncNone, IncLo, IncHi:
		return Inc(s), nil
	default:
		return IncNone, fmt.Errorf("model: invalid inc %q (want \"\", \"lo\" or \"hi\")", s)
	}
}

// Block is one raw interval record as returned by a provider. Start and End
// are mutable so the boundary layer can normalize them in place. Payload is
// provider-defined and only read when the response is shaped.
type Block struct {
	Start time.Time
	End   time.Time

	Payload map[string]any
}

// NewBlock returns a Block with an initialized payload map.
func NewBlock(start, end time.Time) *Block {
	return &Block{Start: start, End: end, Payload: map[string]any{}}
}

// Occurrence represents a single concrete instance of a calendar event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, typically derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// Block converts the occurrence into a provider record.
func (o Occurrence) Block() *Block {
	b := NewBlock(o.Start, o.End)
	b.Payload["title"] = o.Summary
	b.Payload["description"] = o.Description
	b.Payload["location"] = o.Location
	b.Payload["uid"] = o.UID
	b.Payload["all_day"] = o.AllDay
	return b
}
