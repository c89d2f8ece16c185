package stages

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTaxonomy() Taxonomy {
	return Taxonomy{
		StageNames: map[string]string{
			"appointment": "Appointment",
			"proposal":    "Proposal",
			"contract":    "Contract Sent",
			"closedwon":   "Closed Won",
			"closedlost":  "Closed Lost",
		},
		PipelineOrder: []string{"appointment", "proposal", "contract", "closedwon", "closedlost"},
		WonStages:     []string{"closedwon"},
		LostStages:    []string{"closedlost"},
	}
}

func TestMapper_Name(t *testing.T) {
	m := New(testTaxonomy())

	tests := []struct {
		id   string
		want string
	}{
		{"proposal", "Proposal"},
		{"closedwon", "Closed Won"},
		{"12345", "[UNKNOWN: 12345]"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Name(tt.id), "Name(%q)", tt.id)
	}
}

func TestMapper_Terminality(t *testing.T) {
	m := New(testTaxonomy())

	assert.True(t, m.IsWon("closedwon"))
	assert.False(t, m.IsWon("closedlost"))
	assert.True(t, m.IsLost("closedlost"))
	assert.False(t, m.IsLost("proposal"))
	assert.True(t, m.IsTerminal("closedwon"))
	assert.True(t, m.IsTerminal("closedlost"))
	assert.False(t, m.IsTerminal("contract"))
	assert.False(t, m.IsTerminal(""))
}

func TestMapper_Compare(t *testing.T) {
	m := New(testTaxonomy())

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"same stage", "proposal", "proposal", 0},
		{"earlier", "appointment", "contract", -1},
		{"later", "contract", "proposal", 1},
		{"first unknown", "ghost", "proposal", 0},
		{"second unknown", "proposal", "ghost", 0},
		{"both unknown", "ghost", "phantom", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Compare(tt.a, tt.b))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stage_mapping.json")
	content := `{
		"stage_names": {"a": "Alpha", "b": "Beta", "w": "Won"},
		"pipeline_order": ["a", "b", "w"],
		"won_stages": ["w"],
		"lost_stages": []
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []string{"a", "b", "w"}, m.Order())
	assert.Equal(t, -1, m.Compare("a", "b"))
	assert.True(t, m.IsWon("w"))
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaxonomy))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaxonomy))
}
