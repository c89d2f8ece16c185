package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveLoadClear(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "deals")
	assert.Equal(t, filepath.Join(dir, ".checkpoint_deals.json"), s.Path())

	ids, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Save(map[string]bool{"2": true, "1": true}))
	ids, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true, "2": true}, ids)

	require.NoError(t, s.Clear())
	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, s.Clear())
}

func TestFileStore_LegacyKey(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "deals")
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"processed_deal_ids":["7","8"],"count":2}`), 0644))

	ids, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"7": true, "8": true}, ids)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "deals")
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{not json`), 0644))

	ids, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
