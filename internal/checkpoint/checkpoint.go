package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Store remembers which objects a fetch run has already processed, so an interrupted run can resume.
type Store interface {
	Load() (map[string]bool, error)
	Save(ids map[string]bool) error
	Clear() error
}

type fileState struct {
	ObjectType   string   `json:"object_type"`
	ProcessedIDs []string `json:"processed_ids"`
	Count        int      `json:"count"`
	LastUpdated  string   `json:"last_updated"`

	// Written by older versions for deals.
	LegacyDealIDs []string `json:"processed_deal_ids,omitempty"`
}

// FileStore persists the checkpoint as JSON next to the dataset.
type FileStore struct {
	path       string
	objectType string
}

// NewFileStore returns a store backed by <dir>/.checkpoint_<objectType>.json.
func NewFileStore(dir, objectType string) *FileStore {
	return &FileStore{
		path:       filepath.Join(dir, fmt.Sprintf(".checkpoint_%s.json", objectType)),
		objectType: objectType,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the processed ids. A missing file is an empty checkpoint; so is an unreadable one,
// which is logged and otherwise ignored.
func (s *FileStore) Load() (map[string]bool, error) {
	ids := make(map[string]bool)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Ignoring corrupt checkpoint")
		return ids, nil
	}

	for _, id := range state.ProcessedIDs {
		ids[id] = true
	}
	for _, id := range state.LegacyDealIDs {
		ids[id] = true
	}
	log.Info().Int("count", len(ids)).Str("type", s.objectType).Msg("Resuming from checkpoint")
	return ids, nil
}

func (s *FileStore) Save(ids map[string]bool) error {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	slices.Sort(list)

	state := fileState{
		ObjectType:   s.objectType,
		ProcessedIDs: list,
		Count:        len(list),
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	log.Debug().Int("count", len(list)).Msg("Checkpoint saved")
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	log.Debug().Str("path", s.path).Msg("Checkpoint cleared")
	return nil
}
