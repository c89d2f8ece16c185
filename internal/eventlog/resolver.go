package eventlog

import (
	"time"
)

// StateAt reconstructs a deal as of the given instant. It returns false when the deal is unknown,
// has no valid creation instant, or was created after the instant.
//
// Each tracked property resolves independently to the last change at or before the instant
// (ties on the instant are decided by change order). A property whose log starts later than the
// instant is Unknown; it is never filled in from the current snapshot, so properties of one state
// may come from different moments.
func (s *Store) StateAt(dealID string, at time.Time) (*DealState, bool) {
	snap, ok := s.snapshots[dealID]
	if !ok {
		return nil, false
	}
	created, ok := s.created[dealID]
	if !ok {
		return nil, false
	}
	if created.After(at) {
		return nil, false
	}

	return &DealState{
		DealID:    dealID,
		DealName:  snap.DealName,
		Stage:     s.valueAt(dealID, Stage, at),
		Amount:    s.valueAt(dealID, Amount, at),
		CloseDate: s.valueAt(dealID, CloseDate, at),
		At:        at,
	}, true
}
