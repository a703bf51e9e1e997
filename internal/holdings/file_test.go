package holdings

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mtlprog/coinfolio/internal/domain"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "portfolio.json"))
	want := []domain.Holding{{Symbol: "BTC", Amount: 0.5}}

	if err := repo.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded = %+v, want %+v", got, want)
	}
}

func TestFileRepositoryFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	repo := NewFileRepository(path)

	if err := repo.Save(context.Background(), []domain.Holding{{Symbol: "ETH", Amount: 2}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	want := "[\n  {\n    \"symbol\": \"ETH\",\n    \"amount\": 2\n  }\n]\n"
	if string(data) != want {
		t.Errorf("file content = %q, want %q", data, want)
	}
}

func TestFileRepositoryMissingFile(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "absent.json"))

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("loaded = %#v, want empty non-nil slice", got)
	}
}

func TestFileRepositoryMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(path, []byte(`{"symbol":`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileRepository(path).Load(context.Background()); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestFileRepositorySaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "portfolio.json")
	repo := NewFileRepository(path)

	if err := repo.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]\n" {
		t.Errorf("file content = %q, want []", data)
	}
}

func TestStoreWithFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	repo := NewFileRepository(path)
	s := NewStore(repo, nil)

	if _, err := s.Upsert(context.Background(), "btc", 0.5); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.Upsert(context.Background(), "eth", 3); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, _, err := s.Remove(context.Background(), "ETH"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	loaded, err := NewFileRepository(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []domain.Holding{{Symbol: "BTC", Amount: 0.5}}
	if !reflect.DeepEqual(loaded, want) {
		t.Errorf("reloaded = %+v, want %+v", loaded, want)
	}
}

func TestStorePersistenceErrorFromFile(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail.
	path := filepath.Join(dir, "portfolio.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(NewFileRepository(path), nil)
	_, err := s.Upsert(context.Background(), "BTC", 1)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if len(s.List()) != 0 {
		t.Error("failed upsert should be rolled back")
	}
}
