package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dealflow/internal/eventlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadContacts(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC))
	contacts := []eventlog.Contact{
		{
			ContactID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			LifecycleStage: "salesqualifiedlead", MQLDate: "2025-01-15T00:00:00Z", SQLDate: "2025-02-01T10:00:00Z",
			CompanyID: "500", CompanyName: "Acme, Ltd.", Source: "ORGANIC_SEARCH", FetchTimestamp: "2025-03-01T06:00:00Z",
		},
		{ContactID: "2", MQLDate: "2025-02-10T00:00:00Z"},
	}
	require.NoError(t, w.WriteContacts(contacts))
	assert.Equal(t, filepath.Join(dir, "contacts_snapshot_2025-03-01.csv"), w.ContactsPath())

	raw, err := os.ReadFile(w.ContactsPath())
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, string(raw[:3]))

	loaded, err := LoadContacts(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, contacts[0], loaded[0])
	assert.Equal(t, eventlog.UnknownSource, loaded[1].Source)
	assert.Empty(t, loaded[1].SQLDate)
}

func TestLoadContacts_NoSnapshot(t *testing.T) {
	_, err := LoadContacts(t.TempDir())
	assert.ErrorIs(t, err, ErrNoDataset)
}
