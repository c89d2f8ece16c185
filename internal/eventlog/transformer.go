package eventlog

import (
	"slices"
	"strconv"
	"time"

	"dealflow/internal/hubspot"
)

// DescriptiveProperties are copied into Snapshot.Extra and never reconstructed historically.
var DescriptiveProperties = []string{
	"hs_forecast_amount",
	"hs_forecast_probability",
	"hubspot_owner_id",
	"notes_last_contacted",
	"notes_last_updated",
	"num_notes",
	"hs_lastmodifieddate",
	"num_associated_contacts",
}

var timestampProperties = map[string]bool{
	"notes_last_contacted": true,
	"notes_last_updated":   true,
	"hs_lastmodifieddate":  true,
}

// TransformDeal converts a search result and its (optional) history response into the deal's
// baseline snapshot and change records. Each tracked property's history is put into chronological
// order and numbered from 1; items sharing an instant keep the order in which they were recorded.
func TransformDeal(deal hubspot.DealDTO, history *hubspot.DealDTO, fetchedAt time.Time) (Snapshot, []ChangeRecord) {
	props := deal.Properties
	snap := Snapshot{
		DealID:           deal.ID,
		DealName:         props["dealname"],
		CurrentAmount:    props["amount"],
		CurrentStage:     props["dealstage"],
		CurrentCloseDate: normalizeTimestamp(props["closedate"]),
		CreateDate:       normalizeTimestamp(props["createdate"]),
		FetchTimestamp:   fetchedAt.UTC().Format(time.RFC3339),
		Extra:            make(map[string]string, len(DescriptiveProperties)),
	}
	for _, key := range DescriptiveProperties {
		v := props[key]
		if timestampProperties[key] {
			v = normalizeTimestamp(v)
		}
		snap.Extra[key] = v
	}

	if history == nil || len(history.PropertiesWithHistory) == 0 {
		return snap, nil
	}
	snap.HasHistory = true

	var records []ChangeRecord
	for _, prop := range TrackedProperties {
		items := history.PropertiesWithHistory[string(prop)]
		if len(items) == 0 {
			continue
		}

		// newest first from the API
		ordered := slices.Clone(items)
		slices.Reverse(ordered)
		slices.SortStableFunc(ordered, func(a, b hubspot.HistoryItemDTO) int {
			return itemTime(a).Compare(itemTime(b))
		})

		for i, item := range ordered {
			records = append(records, ChangeRecord{
				DealID:      deal.ID,
				DealName:    snap.DealName,
				Property:    prop,
				Value:       item.Value,
				Timestamp:   normalizeTimestamp(item.Timestamp),
				SourceType:  item.SourceType,
				ChangeOrder: i + 1,
			})
		}
	}
	return snap, records
}

func itemTime(item hubspot.HistoryItemDTO) time.Time {
	t, _ := ParseTime(normalizeTimestamp(item.Timestamp))
	return t
}

// normalizeTimestamp turns epoch milliseconds into ISO 8601 and passes anything else through.
func normalizeTimestamp(s string) string {
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
