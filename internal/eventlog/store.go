package eventlog

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

type change struct {
	at     time.Time
	order  int
	value  string
	source string
}

// Store indexes deal snapshots and their change logs for point-in-time lookups.
// Each (deal, property) log is sorted once by (instant, change order) at construction;
// the store is read-only afterwards and safe for concurrent use.
type Store struct {
	snapshots map[string]Snapshot
	created   map[string]time.Time
	history   map[string]map[Property][]change
	ids       []string
	records   int
}

// NewStore builds a Store. Snapshots without a parseable creation instant are kept for naming but
// excluded from reconstruction; change records with unparseable timestamps are dropped.
func NewStore(snapshots []Snapshot, history map[string][]ChangeRecord) *Store {
	s := &Store{
		snapshots: make(map[string]Snapshot, len(snapshots)),
		created:   make(map[string]time.Time, len(snapshots)),
		history:   make(map[string]map[Property][]change, len(history)),
	}

	for _, snap := range snapshots {
		s.snapshots[snap.DealID] = snap
		ts, err := ParseTime(snap.CreateDate)
		if err != nil {
			log.Warn().Str("deal", snap.DealID).Str("value", snap.CreateDate).Msg("Deal has no valid create date")
			continue
		}
		s.created[snap.DealID] = ts
	}

	for dealID, records := range history {
		seen := make(map[string]bool, len(records))
		byProp := make(map[Property][]change)
		for _, rec := range records {
			if !rec.Property.Tracked() {
				continue
			}
			id := rec.identity()
			if seen[id] {
				continue
			}
			seen[id] = true

			ts, err := ParseTime(rec.Timestamp)
			if err != nil {
				log.Warn().
					Str("deal", dealID).
					Str("property", string(rec.Property)).
					Str("value", rec.Timestamp).
					Msg("Skipping change with unparseable timestamp")
				continue
			}
			byProp[rec.Property] = append(byProp[rec.Property], change{
				at:     ts,
				order:  rec.ChangeOrder,
				value:  rec.Value,
				source: rec.SourceType,
			})
			s.records++
		}
		for p, changes := range byProp {
			slices.SortStableFunc(changes, func(a, b change) int {
				if c := a.at.Compare(b.at); c != 0 {
					return c
				}
				return cmp.Compare(a.order, b.order)
			})
			byProp[p] = changes
		}
		s.history[dealID] = byProp
	}

	s.ids = make([]string, 0, len(s.created))
	for id := range s.created {
		s.ids = append(s.ids, id)
	}
	slices.Sort(s.ids)

	log.Debug().Int("deals", len(s.snapshots)).Int("changes", s.records).Msg("Event store indexed")
	return s
}

// Snapshot returns the baseline for a deal.
func (s *Store) Snapshot(dealID string) (Snapshot, bool) {
	snap, ok := s.snapshots[dealID]
	return snap, ok
}

// CreatedAt returns the parsed creation instant of a deal.
func (s *Store) CreatedAt(dealID string) (time.Time, bool) {
	ts, ok := s.created[dealID]
	return ts, ok
}

// CreatedUpTo returns, in id order, the deals created at or before the instant.
func (s *Store) CreatedUpTo(at time.Time) []string {
	var out []string
	for _, id := range s.ids {
		if !s.created[id].After(at) {
			out = append(out, id)
		}
	}
	return out
}

// CreatedBetween returns, in id order, the snapshots of deals created within [start, end].
func (s *Store) CreatedBetween(start, end time.Time) []Snapshot {
	var out []Snapshot
	for _, id := range s.ids {
		ts := s.created[id]
		if !ts.Before(start) && !ts.After(end) {
			out = append(out, s.snapshots[id])
		}
	}
	return out
}

// SnapshotCount returns the number of baselines held, reconstructable or not.
func (s *Store) SnapshotCount() int {
	return len(s.snapshots)
}

// ChangeCount returns the number of indexed change records.
func (s *Store) ChangeCount() int {
	return s.records
}

// valueAt returns the value of the last change at or before the instant.
func (s *Store) valueAt(dealID string, p Property, at time.Time) Value {
	changes := s.history[dealID][p]
	// first change strictly after the instant; the one before it is in effect
	i := sort.Search(len(changes), func(i int) bool {
		return changes[i].at.After(at)
	})
	if i == 0 {
		return Unknown
	}
	return KnownValue(changes[i-1].value)
}

// LastEntered finds the most recent stage change into the given stage at or before the instant.
func (s *Store) LastEntered(dealID, stage string, at time.Time) (time.Time, bool) {
	changes := s.history[dealID][Stage]
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if c.at.After(at) {
			continue
		}
		if c.value == stage {
			return c.at, true
		}
	}
	return time.Time{}, false
}

func (r ChangeRecord) identity() string {
	return fmt.Sprintf("%s|%d|%s|%s", r.Property, r.ChangeOrder, r.Timestamp, r.Value)
}
