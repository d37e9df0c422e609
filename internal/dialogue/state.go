package dialogue

import (
	"fmt"
	"strings"

	"github.com/glucobot/glucobot/internal/action"
	"github.com/glucobot/glucobot/internal/dataset"
)

// State of the dialogue machine
type State int

const (
	StateInitial State = iota
	StateNeedsClarification
	StateDataRetrieved
	StateAnalyzingData
)

var stateNames = map[State]string{
	StateInitial:            "INITIAL",
	StateNeedsClarification: "NEEDS_CLARIFICATION",
	StateDataRetrieved:      "DATA_RETRIEVED",
	StateAnalyzingData:      "ANALYZING_DATA",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Valid reports whether s is one of the known states
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// Slot name of a required piece of information
type Slot string

const (
	SlotPatientID Slot = "patient_id"
	SlotFormat    Slot = "format"
)

// SlotSet holds extracted or accumulated slot values. Empty means unknown.
type SlotSet struct {
	PatientID string
	Format    action.Format
}

// Merge overlays newer on s field by field. A non-empty newer value wins,
// an empty one never blanks a known value.
func (s SlotSet) Merge(newer SlotSet) SlotSet {
	out := s
	if newer.PatientID != "" {
		out.PatientID = newer.PatientID
	}
	if newer.Format != action.FormatNone {
		out.Format = newer.Format
	}
	return out
}

// Has reports whether slot is resolved
func (s SlotSet) Has(slot Slot) bool {
	switch slot {
	case SlotPatientID:
		return s.PatientID != ""
	case SlotFormat:
		return s.Format != action.FormatNone
	default:
		return false
	}
}

// Missing lists the unresolved slots in a fixed order
func (s SlotSet) Missing() []Slot {
	var missing []Slot
	for _, slot := range []Slot{SlotPatientID, SlotFormat} {
		if !s.Has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Complete reports whether every slot is resolved
func (s SlotSet) Complete() bool {
	return len(s.Missing()) == 0
}

// Selection is the committed, verified request
type Selection struct {
	PatientID string
	Format    action.Format
	Data      *dataset.Dataset // nil when the patient has no data
}

// Context accumulates slot values and the active selection across turns
type Context struct {
	Partial SlotSet
	Missing []Slot
	Active  *Selection
}

// Reset drops everything
func (c *Context) Reset() {
	*c = Context{}
}

// ActivePatientID returns the committed patient id or ""
func (c *Context) ActivePatientID() string {
	if c.Active == nil {
		return ""
	}
	return c.Active.PatientID
}

func slotNames(slots []Slot) string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
