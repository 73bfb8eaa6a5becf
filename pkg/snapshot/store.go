package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound means no cycle has persisted a snapshot yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt means the file exists but is not a well-formed snapshot.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Store owns the single persisted snapshot file. No history is kept.
type Store struct {
	path string
	lock *utils.FileLock
}

func NewStore(path string) (*Store, error) {
	lock, err := utils.NewFileLock(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, lock: lock}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Persist replaces the snapshot file. Readers see either the previous or the
// new document, never a partial one: the bytes go to a temp file in the same
// directory which is then renamed over the target.
func (s *Store) Persist(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (s *Store) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// LoadRaw returns the persisted document byte for byte. It fails exactly when
// Load would.
func (s *Store) LoadRaw() ([]byte, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	if _, err := Decode(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Load reads and decodes the persisted snapshot.
func (s *Store) Load() (Snapshot, error) {
	data, err := s.read()
	if err != nil {
		return Snapshot{}, err
	}
	return Decode(data)
}

// Decode parses a snapshot document. Unknown fields are ignored.
func Decode(data []byte) (Snapshot, error) {
	if err := checkShape(data); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

// checkShape rejects anything that would decode into a snapshot with missing
// or null core fields: invalid JSON (a truncated write), no lastUpdate, or an
// empty jurisdiction map.
func checkShape(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid JSON", ErrCorrupt)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: document is not an object", ErrCorrupt)
	}

	lastUpdate := root.Get("lastUpdate")
	if lastUpdate.Type != gjson.String {
		return fmt.Errorf("%w: missing lastUpdate", ErrCorrupt)
	}
	if _, err := time.Parse(time.RFC3339Nano, lastUpdate.Str); err != nil {
		return fmt.Errorf("%w: bad lastUpdate: %v", ErrCorrupt, err)
	}

	js := root.Get("jurisdictions")
	if !js.IsObject() || len(js.Map()) == 0 {
		return fmt.Errorf("%w: missing jurisdictions", ErrCorrupt)
	}
	var bad error
	js.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() || value.Get("corporateTax.standard").Type != gjson.Number {
			bad = fmt.Errorf("%w: jurisdiction %s has no corporateTax.standard", ErrCorrupt, key.Str)
			return false
		}
		return true
	})
	return bad
}
