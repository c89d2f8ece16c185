package eventlog

import (
	"strings"
	"time"
)

// Property names one of the deal attributes whose history is reconstructed.
type Property string

const (
	// Stage is the deal's pipeline stage id.
	Stage Property = "dealstage"
	// Amount is the deal's monetary amount, kept as the raw string HubSpot returned.
	Amount Property = "amount"
	// CloseDate is the deal's target close date.
	CloseDate Property = "closedate"
)

// TrackedProperties is the fixed set of properties subject to point-in-time reconstruction.
var TrackedProperties = []Property{Stage, Amount, CloseDate}

// Tracked reports whether p belongs to TrackedProperties.
func (p Property) Tracked() bool {
	switch p {
	case Stage, Amount, CloseDate:
		return true
	}
	return false
}

// Snapshot is the latest known full state of a deal, fetched once.
type Snapshot struct {
	DealID           string
	DealName         string
	CurrentAmount    string
	CurrentStage     string
	CurrentCloseDate string
	CreateDate       string
	HasHistory       bool
	FetchTimestamp   string

	// Extra carries descriptive fields that are never reconstructed historically
	// (owner, forecast amount, activity counters...).
	Extra map[string]string
}

// ChangeRecord is one entry of a deal's per-property change log.
type ChangeRecord struct {
	DealID      string
	DealName    string
	Property    Property
	Value       string
	Timestamp   string
	SourceType  string
	ChangeOrder int
}

// Value is a resolved property value. Known distinguishes an explicitly empty value
// from one that cannot be determined because history does not reach back far enough.
type Value struct {
	Raw   string
	Known bool
}

// Unknown is the value of a property with no history coverage.
var Unknown = Value{}

// KnownValue wraps a value observed in the change log.
func KnownValue(raw string) Value {
	return Value{Raw: raw, Known: true}
}

// Present reports whether the value is known and non-empty.
func (v Value) Present() bool {
	return v.Known && v.Raw != ""
}

func (v Value) String() string {
	if !v.Known {
		return ""
	}
	return v.Raw
}

// DealState is a deal as it was at a given instant.
type DealState struct {
	DealID    string
	DealName  string
	Stage     Value
	Amount    Value
	CloseDate Value
	At        time.Time
}

// Get returns the value of a tracked property.
func (s DealState) Get(p Property) Value {
	switch p {
	case Stage:
		return s.Stage
	case Amount:
		return s.Amount
	case CloseDate:
		return s.CloseDate
	}
	return Unknown
}

// SameValues reports whether both states agree on every tracked property.
func (s DealState) SameValues(o DealState) bool {
	return s.Stage == o.Stage && s.Amount == o.Amount && s.CloseDate == o.CloseDate
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the ISO 8601 variants found in CRM exports: a trailing "Z", a "+HH:MM" or
// "+HHMM" offset, or no zone at all (read as UTC). Date-only values are midnight UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseInstant parses a lookup instant. A bare date means the end of that day, so asking for a
// date sees every change recorded on it.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	return ParseTime(s)
}
