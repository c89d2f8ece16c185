package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealflow/internal/checkpoint"
	"dealflow/internal/hubspot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	deals       []hubspot.DealDTO
	histories   map[string]*hubspot.DealDTO
	failHistory map[string]bool
	requested   []string

	contacts    []hubspot.ContactDTO
	companies   map[string]*hubspot.CompanyDTO
	failCompany map[string]bool
}

func (f *fakeClient) SearchDeals(ctx context.Context, after string, limit int) (*hubspot.SearchResponse, error) {
	return &hubspot.SearchResponse{Results: f.deals}, nil
}

func (f *fakeClient) GetDealHistory(ctx context.Context, dealID string) (*hubspot.DealDTO, error) {
	f.requested = append(f.requested, dealID)
	if f.failHistory[dealID] {
		return nil, errors.New("boom")
	}
	return f.histories[dealID], nil
}

func (f *fakeClient) GetAllDeals(ctx context.Context) ([]hubspot.DealDTO, error) {
	return f.deals, nil
}

func (f *fakeClient) SearchContacts(ctx context.Context, after string, limit int) (*hubspot.ContactSearchResponse, error) {
	return &hubspot.ContactSearchResponse{Results: f.contacts}, nil
}

func (f *fakeClient) GetAllContacts(ctx context.Context) ([]hubspot.ContactDTO, error) {
	return f.contacts, nil
}

// GetPrimaryCompany runs concurrently and must not mutate the fake.
func (f *fakeClient) GetPrimaryCompany(ctx context.Context, contactID string) (*hubspot.CompanyDTO, error) {
	if f.failCompany[contactID] {
		return nil, errors.New("boom")
	}
	return f.companies[contactID], nil
}

func (f *fakeClient) CallCount() int { return len(f.requested) + 1 }

type memorySink struct {
	flushes []int
	last    *Log
}

func (m *memorySink) Flush(l *Log) error {
	m.flushes = append(m.flushes, len(l.Snapshots))
	m.last = l
	return nil
}

func dealDTO(id string) hubspot.DealDTO {
	return hubspot.DealDTO{ID: id, Properties: map[string]string{"dealname": "Deal " + id, "createdate": "2025-01-01T00:00:00Z"}}
}

func historyDTO(id, stage string) *hubspot.DealDTO {
	return &hubspot.DealDTO{ID: id, PropertiesWithHistory: map[string][]hubspot.HistoryItemDTO{
		"dealstage": {{Value: stage, Timestamp: "2025-01-01T00:00:00Z"}},
	}}
}

func TestHydrate(t *testing.T) {
	client := &fakeClient{
		deals: []hubspot.DealDTO{dealDTO("1"), dealDTO("2"), dealDTO("3")},
		histories: map[string]*hubspot.DealDTO{
			"1": historyDTO("1", "a"),
			"3": historyDTO("3", "b"),
		},
		failHistory: map[string]bool{"2": true},
	}
	sink := &memorySink{}
	store := checkpoint.NewFileStore(t.TempDir(), "deals")

	out, err := NewLogProvider(client, store, sink).WithFlushEvery(2).Hydrate(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, out.Snapshots, 3)
	assert.True(t, out.Snapshots[0].HasHistory)
	assert.False(t, out.Snapshots[1].HasHistory, "failed history keeps the snapshot")
	assert.Len(t, out.Records, 2)
	assert.Equal(t, []int{2, 3}, sink.flushes)

	ids, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestHydrate_ResumesFromCheckpoint(t *testing.T) {
	client := &fakeClient{
		deals:     []hubspot.DealDTO{dealDTO("1"), dealDTO("2")},
		histories: map[string]*hubspot.DealDTO{"2": historyDTO("2", "b")},
	}
	store := checkpoint.NewFileStore(t.TempDir(), "deals")
	require.NoError(t, store.Save(map[string]bool{"1": true}))

	prior := &Log{
		Snapshots: []Snapshot{{DealID: "1", DealName: "Old 1"}, {DealID: "9", DealName: "Gone"}},
		Records:   []ChangeRecord{stageChange("1", "a", "2025-01-01T00:00:00Z", 1)},
	}

	out, err := NewLogProvider(client, store, &memorySink{}).WithPrior(prior).Hydrate(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, client.requested)
	require.Len(t, out.Snapshots, 2)
	assert.Equal(t, "Old 1", out.Snapshots[0].DealName)
	assert.Equal(t, "2", out.Snapshots[1].DealID)
	assert.Len(t, out.Records, 2)
}

func TestHydrate_Cancelled(t *testing.T) {
	client := &fakeClient{deals: []hubspot.DealDTO{dealDTO("1")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLogProvider(client, nil, nil).Hydrate(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
