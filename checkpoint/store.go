package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".ckpt"

// Store persists checkpoints as files in a directory, one per id. Saves
// are atomic: a temp file is written and renamed into place, so a crash
// never leaves a truncated checkpoint behind.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a checkpoint directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the checkpoint under id, replacing any previous one.
func (s *Store) Save(id string, c *Checkpoint) error {
	if err := validateID(id); err != nil {
		return err
	}
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal %q: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, id+".tmp*")
	if err != nil {
		return fmt.Errorf("checkpoint: save %q: %w", id, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: save %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: save %q: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("checkpoint: save %q: %w", id, err)
	}
	return nil
}

// Load reads the checkpoint stored under id.
func (s *Store) Load(id string) (*Checkpoint, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %q: %w", id, err)
	}
	return Unmarshal(data)
}

// Delete removes the checkpoint stored under id. Deleting an absent id
// is not an error.
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete %q: %w", id, err)
	}
	return nil
}

// List returns the stored checkpoint ids in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("checkpoint: empty id")
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("checkpoint: invalid id %q", id)
	}
	return nil
}
