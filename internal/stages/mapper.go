package stages

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// ErrTaxonomy marks a missing or malformed stage taxonomy. It is a startup failure.
var ErrTaxonomy = errors.New("stage taxonomy unavailable")

// Taxonomy is the declarative pipeline definition as stored on disk.
type Taxonomy struct {
	StageNames    map[string]string `json:"stage_names"`
	PipelineOrder []string          `json:"pipeline_order"`
	WonStages     []string          `json:"won_stages"`
	LostStages    []string          `json:"lost_stages"`
}

// Mapper answers naming, ordering and terminality questions about pipeline stages.
type Mapper struct {
	names    map[string]string
	order    []string
	position map[string]int
	won      map[string]bool
	lost     map[string]bool
}

// Load reads a stage taxonomy JSON file.
func Load(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaxonomy, err)
	}

	var t Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %v", ErrTaxonomy, path, err)
	}

	m := New(t)
	log.Info().
		Str("path", path).
		Int("stages", len(m.names)).
		Int("pipeline", len(m.order)).
		Msg("Loaded stage mapping")
	return m, nil
}

// New builds a Mapper from an in-memory taxonomy.
func New(t Taxonomy) *Mapper {
	m := &Mapper{
		names:    make(map[string]string, len(t.StageNames)),
		order:    append([]string(nil), t.PipelineOrder...),
		position: make(map[string]int, len(t.PipelineOrder)),
		won:      make(map[string]bool, len(t.WonStages)),
		lost:     make(map[string]bool, len(t.LostStages)),
	}
	for id, name := range t.StageNames {
		m.names[id] = name
	}
	for i, id := range t.PipelineOrder {
		// first occurrence wins if an id is listed twice
		if _, ok := m.position[id]; !ok {
			m.position[id] = i
		}
	}
	for _, id := range t.WonStages {
		m.won[id] = true
	}
	for _, id := range t.LostStages {
		m.lost[id] = true
	}
	return m
}

// Name returns the display name for a stage id. Unknown ids yield "[UNKNOWN: id]", empty ids "".
func (m *Mapper) Name(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := m.names[id]; ok {
		return name
	}
	log.Warn().Str("stage", id).Msg("Unknown stage ID")
	return fmt.Sprintf("[UNKNOWN: %s]", id)
}

func (m *Mapper) IsWon(id string) bool  { return m.won[id] }
func (m *Mapper) IsLost(id string) bool { return m.lost[id] }

// IsTerminal reports whether the stage is a won or lost stage.
func (m *Mapper) IsTerminal(id string) bool {
	return m.IsWon(id) || m.IsLost(id)
}

// Compare orders two stages along the pipeline: -1 when a comes before b, +1 when after, 0 when
// they are the same stage or either one is missing from the configured order.
func (m *Mapper) Compare(a, b string) int {
	if a == b {
		return 0
	}
	ia, ok := m.position[a]
	if !ok {
		log.Warn().Str("stage", a).Msg("Stage not found in pipeline order")
		return 0
	}
	ib, ok := m.position[b]
	if !ok {
		log.Warn().Str("stage", b).Msg("Stage not found in pipeline order")
		return 0
	}
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// Order returns the configured pipeline order.
func (m *Mapper) Order() []string {
	return append([]string(nil), m.order...)
}

// Count returns the number of named stages.
func (m *Mapper) Count() int {
	return len(m.names)
}
