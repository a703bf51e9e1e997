package holdings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mtlprog/coinfolio/internal/domain"
)

// FileRepository persists holdings as a JSON array in a single file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the backing file path.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the holdings file. A missing file yields an empty list.
func (r *FileRepository) Load(_ context.Context) ([]domain.Holding, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Holding{}, nil
		}
		return nil, fmt.Errorf("reading holdings file %s: %w", r.path, err)
	}

	var holdings []domain.Holding
	if err := json.Unmarshal(data, &holdings); err != nil {
		return nil, fmt.Errorf("parsing holdings file %s: %w", r.path, err)
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	return holdings, nil
}

// Save rewrites the whole file. The data is written to a temporary file in
// the same directory and renamed over the target, so readers never observe
// a partial write.
func (r *FileRepository) Save(_ context.Context, holdings []domain.Holding) error {
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	data, err := json.MarshalIndent(holdings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling holdings: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating holdings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".holdings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replacing holdings file: %w", err)
	}
	return nil
}
