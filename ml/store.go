package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultModelPath = "models/game_prediction_model.json"

	// StoreFormatVersion changes whenever the pipeline encoding changes shape.
	StoreFormatVersion = 1
)

// ModelStore persists exactly one ModelPair at a filesystem path.
type ModelStore struct {
	path string
}

type storeEnvelope struct {
	FormatVersion int                      `json:"format_version"`
	SavedAt       time.Time                `json:"saved_at"`
	Pipelines     map[Side]json.RawMessage `json:"pipelines"`
}

func NewModelStore(path string) *ModelStore {
	if path == "" {
		path = DefaultModelPath
	}
	return &ModelStore{path: path}
}

func (s *ModelStore) Path() string {
	return s.path
}

func (s *ModelStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load decodes the stored pair. Every failure, including a plain read error,
// wraps ErrStoreCorrupt.
func (s *ModelStore) Load() (*ModelPair, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}

	var envelope storeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if envelope.FormatVersion != StoreFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, expected %d", ErrStoreCorrupt, envelope.FormatVersion, StoreFormatVersion)
	}

	pair := &ModelPair{}
	for _, side := range []Side{SideHome, SideAway} {
		blob, ok := envelope.Pipelines[side]
		if !ok || len(blob) == 0 {
			return nil, fmt.Errorf("%w: missing %s pipeline", ErrStoreCorrupt, side)
		}
		pipeline := &Pipeline{}
		if err := json.Unmarshal(blob, pipeline); err != nil {
			return nil, fmt.Errorf("%w: %s pipeline: %v", ErrStoreCorrupt, side, err)
		}
		if side == SideHome {
			pair.Home = pipeline
		} else {
			pair.Away = pipeline
		}
	}
	return pair, nil
}

// Save writes the pair to a temp file next to the target and renames it into
// place, so readers see either the previous pair or the new one.
func (s *ModelStore) Save(pair *ModelPair) error {
	if !pair.Trained() {
		return errors.New("refusing to save an untrained model pair")
	}

	envelope := storeEnvelope{
		FormatVersion: StoreFormatVersion,
		SavedAt:       time.Now().UTC(),
		Pipelines:     make(map[Side]json.RawMessage, 2),
	}
	for _, side := range []Side{SideHome, SideAway} {
		blob, err := json.Marshal(pair.Pipeline(side))
		if err != nil {
			return fmt.Errorf("encode %s pipeline: %w", side, err)
		}
		envelope.Pipelines[side] = blob
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
