package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dealflow/internal/eventlog"

	"github.com/rs/zerolog/log"
)

// MovementType classifies how a deal changed over one month.
type MovementType string

const (
	MovementWon       MovementType = "WON"
	MovementLost      MovementType = "LOST"
	MovementAdvanced  MovementType = "ADVANCED"
	MovementRegressed MovementType = "REGRESSED"
	MovementStalled   MovementType = "STALLED"
	MovementPushed    MovementType = "PUSHED"
)

// MovementTypes lists every movement type.
var MovementTypes = []MovementType{
	MovementWon, MovementLost, MovementAdvanced, MovementRegressed, MovementStalled, MovementPushed,
}

// ParseMovementType accepts a movement type name in any case.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range MovementTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Movement is the classified transition of one deal across one month.
type Movement struct {
	MonthKey string     `json:"month"`
	Year     int        `json:"year"`
	Month    time.Month `json:"month_number"`
	DealID   string     `json:"deal_id"`
	DealName string     `json:"deal_name"`

	// Start is nil when the deal did not exist at month start.
	Start *eventlog.DealState `json:"-"`
	End   eventlog.DealState  `json:"-"`

	Type        MovementType `json:"movement_type"`
	Explanation string       `json:"explanation"`

	AmountStart        *float64 `json:"amount_start,omitempty"`
	AmountEnd          *float64 `json:"amount_end,omitempty"`
	AmountChange       *float64 `json:"amount_change,omitempty"`
	AmountChangePct    *float64 `json:"amount_change_percent,omitempty"`
	CloseDateShiftDays *int     `json:"closedate_days_shifted,omitempty"`
	DaysInStage        int      `json:"days_in_stage"`
}

// StageTaxonomy answers the stage questions the categorizer asks.
type StageTaxonomy interface {
	Name(id string) string
	IsWon(id string) bool
	IsLost(id string) bool
	Compare(a, b string) int
}

// StageHistory finds when a deal last entered a stage.
type StageHistory interface {
	LastEntered(dealID, stage string, at time.Time) (time.Time, bool)
}

// Phrases are the explanation templates of one report language.
type Phrases struct {
	CreatedWon       string
	CreatedLost      string
	CreatedIn        string
	AlreadyWon       string
	AlreadyLost      string
	Transition       string
	TransitionPushed string
	Regressed        string
	Stalled          string
	Pushed           string
}

// GermanPhrases are the explanations of German reports.
var GermanPhrases = Phrases{
	CreatedWon:       "Erstellt und gewonnen: %s",
	CreatedLost:      "Erstellt und verloren: %s",
	CreatedIn:        "Neu erstellt in Phase: %s",
	AlreadyWon:       "Bereits gewonnen zu Monatsbeginn",
	AlreadyLost:      "Bereits verloren zu Monatsbeginn",
	Transition:       "%s → %s",
	TransitionPushed: "%s → %s, aber Abschlussdatum verschoben",
	Regressed:        "Rückschritt: %s → %s",
	Stalled:          "Keine Bewegung, %d Tage in Phase '%s'",
	Pushed:           "Abschlussdatum verschoben, %d Tage in Phase '%s'",
}

// EnglishPhrases are the explanations of English reports.
var EnglishPhrases = Phrases{
	CreatedWon:       "Created and won: %s",
	CreatedLost:      "Created and lost: %s",
	CreatedIn:        "Newly created in stage: %s",
	AlreadyWon:       "Already won at period start",
	AlreadyLost:      "Already lost at period start",
	Transition:       "%s → %s",
	TransitionPushed: "%s → %s, but close date pushed",
	Regressed:        "Regressed: %s → %s",
	Stalled:          "No movement, %d days in stage '%s'",
	Pushed:           "Close date pushed, %d days in stage '%s'",
}

// PhrasesFor returns the phrases of a locale ("de" or "en"), German otherwise.
func PhrasesFor(locale string) Phrases {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return EnglishPhrases
	}
	return GermanPhrases
}

// Categorizer assigns a MovementType and explanation to a pair of month-start and month-end states.
type Categorizer struct {
	stages  StageTaxonomy
	history StageHistory
	phrases Phrases
}

// NewCategorizer creates a categorizer explaining movements with phrases.
func NewCategorizer(stages StageTaxonomy, history StageHistory, phrases Phrases) *Categorizer {
	return &Categorizer{stages: stages, history: history, phrases: phrases}
}

// Categorize classifies the transition from start (nil if the deal did not exist) to end.
// Rules apply in priority order: newly created, won, lost, then pipeline order with the
// close-date push as a secondary signal.
func (c *Categorizer) Categorize(start *eventlog.DealState, end eventlog.DealState) (MovementType, string) {
	p := c.phrases
	endStage := end.Stage.Raw
	endName := c.stages.Name(endStage)

	if start == nil || !start.Stage.Present() {
		switch {
		case c.stages.IsWon(endStage):
			return MovementWon, fmt.Sprintf(p.CreatedWon, endName)
		case c.stages.IsLost(endStage):
			return MovementLost, fmt.Sprintf(p.CreatedLost, endName)
		default:
			return MovementAdvanced, fmt.Sprintf(p.CreatedIn, endName)
		}
	}

	startStage := start.Stage.Raw
	startName := c.stages.Name(startStage)

	if c.stages.IsWon(endStage) {
		if c.stages.IsWon(startStage) {
			return MovementWon, p.AlreadyWon
		}
		return MovementWon, fmt.Sprintf(p.Transition, startName, endName)
	}
	if c.stages.IsLost(endStage) {
		if c.stages.IsLost(startStage) {
			return MovementLost, p.AlreadyLost
		}
		return MovementLost, fmt.Sprintf(p.Transition, startName, endName)
	}

	pushed := CloseDatePushed(start.CloseDate, end.CloseDate)

	switch c.stages.Compare(startStage, endStage) {
	case 0:
		days := c.DaysInStage(end)
		if pushed {
			return MovementPushed, fmt.Sprintf(p.Pushed, days, endName)
		}
		return MovementStalled, fmt.Sprintf(p.Stalled, days, endName)
	case -1:
		if pushed {
			return MovementAdvanced, fmt.Sprintf(p.TransitionPushed, startName, endName)
		}
		return MovementAdvanced, fmt.Sprintf(p.Transition, startName, endName)
	default:
		return MovementRegressed, fmt.Sprintf(p.Regressed, startName, endName)
	}
}

// DaysInStage counts whole days between the most recent entry into the end stage (at or before the
// state's instant) and the state's instant. It is 0 when no such entry is recorded.
func (c *Categorizer) DaysInStage(end eventlog.DealState) int {
	if c.history == nil || !end.Stage.Present() {
		return 0
	}
	entered, ok := c.history.LastEntered(end.DealID, end.Stage.Raw, end.At)
	if !ok {
		return 0
	}
	return max(0, wholeDays(end.At.Sub(entered)))
}

// CloseDatePushed reports whether both close dates parse and the end date is later.
func CloseDatePushed(start, end eventlog.Value) bool {
	s, ok := parseDate(start)
	if !ok {
		return false
	}
	e, ok := parseDate(end)
	if !ok {
		return false
	}
	return e.After(s)
}

// CloseDateShift returns the shift between two close dates in whole days (floored).
func CloseDateShift(start, end eventlog.Value) (int, bool) {
	s, ok := parseDate(start)
	if !ok {
		return 0, false
	}
	e, ok := parseDate(end)
	if !ok {
		return 0, false
	}
	return wholeDays(e.Sub(s)), true
}

// ParseAmount reads an amount as a float, accepting a decimal comma.
func ParseAmount(v eventlog.Value) (float64, bool) {
	if !v.Present() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.Raw), ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(v eventlog.Value) (time.Time, bool) {
	if !v.Present() {
		return time.Time{}, false
	}
	t, err := eventlog.ParseTime(v.Raw)
	if err != nil {
		log.Warn().Str("value", v.Raw).Msg("Could not parse date")
		return time.Time{}, false
	}
	return t, true
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
