package eventlog

import (
	"context"
	"testing"
	"time"

	"dealflow/internal/hubspot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactFetchedAt = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestTransformContact(t *testing.T) {
	dto := hubspot.ContactDTO{ID: "7", Properties: map[string]string{
		"firstname":             "Ada",
		"lastname":              "Lovelace",
		"email":                 "ada@example.com",
		"lifecyclestage":        "salesqualifiedlead",
		"createdate":            "2025-01-02T09:00:00Z",
		hubspot.MQLDateProperty: "1736899200000",
		hubspot.SQLDateProperty: "2025-02-01T10:00:00.000Z",
		"hs_analytics_source":   "ORGANIC_SEARCH",
	}}
	company := &hubspot.CompanyDTO{ID: "500", Properties: map[string]string{"name": "Acme"}}

	c := TransformContact(dto, company, "hs_analytics_source", contactFetchedAt)
	assert.Equal(t, "7", c.ContactID)
	assert.Equal(t, "Ada Lovelace", c.Name())
	assert.Equal(t, "2025-01-15T00:00:00Z", c.MQLDate)
	assert.Equal(t, "2025-02-01T10:00:00.000Z", c.SQLDate)
	assert.Equal(t, "ORGANIC_SEARCH", c.Source)
	assert.Equal(t, "500", c.CompanyID)
	assert.Equal(t, "Acme", c.CompanyName)
	assert.Equal(t, "2025-06-01T08:00:00Z", c.FetchTimestamp)
}

func TestTransformContact_Fallbacks(t *testing.T) {
	dto := hubspot.ContactDTO{ID: "8", Properties: map[string]string{
		"lastname":   "Hopper",
		"createdate": "2025-03-04T00:00:00Z",
	}}

	c := TransformContact(dto, nil, "hs_analytics_source", contactFetchedAt)
	assert.Equal(t, "Hopper", c.Name())
	assert.Equal(t, "2025-03-04T00:00:00Z", c.MQLDate, "create date stands in for a missing MQL date")
	assert.Empty(t, c.SQLDate)
	assert.Equal(t, UnknownSource, c.Source)
	assert.Empty(t, c.CompanyID)
	assert.Empty(t, c.CompanyName)
}

func TestContactProvider_Fetch(t *testing.T) {
	client := &fakeClient{
		contacts: []hubspot.ContactDTO{
			{ID: "1", Properties: map[string]string{"firstname": "A", "createdate": "2025-01-01T00:00:00Z"}},
			{ID: "2", Properties: map[string]string{"firstname": "B", "createdate": "2025-01-02T00:00:00Z"}},
			{ID: "3", Properties: map[string]string{"firstname": "C", "createdate": "2025-01-03T00:00:00Z"}},
		},
		companies: map[string]*hubspot.CompanyDTO{
			"1": {ID: "10", Properties: map[string]string{"name": "Acme"}},
			"2": {ID: "20", Properties: map[string]string{"name": "Globex"}},
		},
		failCompany: map[string]bool{"2": true},
	}

	contacts, err := NewContactProvider(client, "", 4).Fetch(context.Background(), contactFetchedAt)
	require.NoError(t, err)
	require.Len(t, contacts, 3)

	assert.Equal(t, "1", contacts[0].ContactID)
	assert.Equal(t, "Acme", contacts[0].CompanyName)
	assert.Empty(t, contacts[1].CompanyName, "failed company lookups leave the contact without a company")
	assert.Equal(t, "B", contacts[1].FirstName)
	assert.Empty(t, contacts[2].CompanyID)
}

func TestContactProvider_WithLimit(t *testing.T) {
	client := &fakeClient{contacts: []hubspot.ContactDTO{{ID: "1"}, {ID: "2"}, {ID: "3"}}}

	contacts, err := NewContactProvider(client, "", 1).WithLimit(2).Fetch(context.Background(), contactFetchedAt)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "2", contacts[1].ContactID)
}

func TestContactProvider_Cancelled(t *testing.T) {
	client := &fakeClient{contacts: []hubspot.ContactDTO{{ID: "1"}, {ID: "2"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewContactProvider(client, "", 1).Fetch(ctx, contactFetchedAt)
	assert.ErrorIs(t, err, context.Canceled)
}
