// Package repository persists trained model artifacts and cleaned
// datasets to durable storage.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/okian/mmx/internal/domain/mmm"
)

// ArtifactStore provides durable access to trained model artifacts. The
// on-disk schema (model_kind, adstock_decay, ordered feature_names,
// fitted_parameters, training_date_range) is part of the modeling core's
// contract; a round trip is field-for-field identical.
type ArtifactStore interface {
	// Save writes the artifact and returns its location.
	Save(ctx context.Context, art *mmm.ModelArtifact) (string, error)
	// Load reads an artifact from a location produced by Save.
	Load(ctx context.Context, path string) (*mmm.ModelArtifact, error)
}

// FileArtifactStore stores artifacts as JSON documents under a directory,
// one file per model kind.
type FileArtifactStore struct {
	dir string
}

// NewFileArtifactStore creates a store rooted at dir.
func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

// Path returns the location Save would use for a model kind.
func (s *FileArtifactStore) Path(kind mmm.Kind) string {
	return filepath.Join(s.dir, fmt.Sprintf("trained_%s_model.json", kind))
}

// Save writes the artifact atomically: the document lands under a
// temporary name and is renamed into place, so a crashed writer never
// leaves a half-written artifact for startup to trip over.
func (s *FileArtifactStore) Save(_ context.Context, art *mmm.ModelArtifact) (string, error) {
	if art == nil {
		return "", mmm.ErrNilArtifact
	}
	if err := art.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}

	path := s.Path(art.Kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit artifact: %w", err)
	}
	return path, nil
}

// Load reads and validates an artifact. A missing file maps to
// ErrArtifactNotFound and a corrupt one to ErrArtifactDecode so startup
// can fail fast with a precise reason.
func (s *FileArtifactStore) Load(_ context.Context, path string) (*mmm.ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var art mmm.ModelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactDecode, path, err)
	}
	if err := art.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactDecode, path, err)
	}
	return &art, nil
}
