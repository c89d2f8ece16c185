package eventlog

import (
	"testing"
	"time"

	"dealflow/internal/hubspot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformDeal(t *testing.T) {
	deal := hubspot.DealDTO{
		ID: "42",
		Properties: map[string]string{
			"dealname":             "Acme",
			"amount":               "5000",
			"dealstage":            "s2",
			"closedate":            "1748736000000",
			"createdate":           "2025-01-01T08:00:00.000Z",
			"hubspot_owner_id":     "77",
			"notes_last_contacted": "",
		},
	}
	history := &hubspot.DealDTO{
		ID: "42",
		PropertiesWithHistory: map[string][]hubspot.HistoryItemDTO{
			"dealstage": {
				{Value: "s2", Timestamp: "2025-02-01T00:00:00Z", SourceType: "CRM_UI"},
				{Value: "s1b", Timestamp: "2025-01-01T08:00:00Z", SourceType: "AUTOMATION"},
				{Value: "s1a", Timestamp: "2025-01-01T08:00:00Z", SourceType: "CRM_UI"},
			},
			"amount": {
				{Value: "5000", Timestamp: "2025-01-01T08:00:00Z"},
			},
		},
	}
	fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	snap, records := TransformDeal(deal, history, fetchedAt)

	assert.Equal(t, "42", snap.DealID)
	assert.Equal(t, "Acme", snap.DealName)
	assert.Equal(t, "2025-06-01T00:00:00Z", snap.CurrentCloseDate)
	assert.Equal(t, "2025-06-01T12:00:00Z", snap.FetchTimestamp)
	assert.True(t, snap.HasHistory)
	assert.Equal(t, "77", snap.Extra["hubspot_owner_id"])

	require.Len(t, records, 4)
	// stage first (tracked order), oldest first, same-instant entries in recording order
	assert.Equal(t, Stage, records[0].Property)
	assert.Equal(t, "s1a", records[0].Value)
	assert.Equal(t, 1, records[0].ChangeOrder)
	assert.Equal(t, "s1b", records[1].Value)
	assert.Equal(t, 2, records[1].ChangeOrder)
	assert.Equal(t, "s2", records[2].Value)
	assert.Equal(t, 3, records[2].ChangeOrder)
	assert.Equal(t, Amount, records[3].Property)
	assert.Equal(t, 1, records[3].ChangeOrder)
	assert.Equal(t, "Acme", records[3].DealName)
}

func TestTransformDeal_NoHistory(t *testing.T) {
	snap, records := TransformDeal(hubspot.DealDTO{ID: "1", Properties: map[string]string{}}, nil, time.Now())
	assert.False(t, snap.HasHistory)
	assert.Empty(t, records)
}

func TestNormalizeTimestamp(t *testing.T) {
	assert.Equal(t, "", normalizeTimestamp(""))
	assert.Equal(t, "2025-01-01T00:00:00Z", normalizeTimestamp("1735689600000"))
	assert.Equal(t, "2025-01-01T00:00:00.5Z", normalizeTimestamp("1735689600500"))
	assert.Equal(t, "2025-01-01T00:00:00+01:00", normalizeTimestamp("2025-01-01T00:00:00+01:00"))
}
