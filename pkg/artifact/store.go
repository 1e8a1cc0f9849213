// Package artifact persists pipeline outputs and records their digests.
package artifact

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// Store persists named artifacts.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Location(name string) string
}

// ValidateName rejects names that are empty or escape the store root.
func ValidateName(name string) error {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FSStore writes artifacts into a directory.
type FSStore struct {
	dir string
}

// NewFSStore creates dir if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Dir returns the store root.
func (s *FSStore) Dir() string {
	return s.dir
}

// Location returns the file path of an artifact.
func (s *FSStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}

// Put writes data to a temporary file, syncs it and renames it over the
// artifact, so readers never see a partial file.
func (s *FSStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "put", Name: name, Cause: err}
	}

	path := s.Location(name)
	tmp := path + ".new"

	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &Error{Op: "put", Name: name, Location: path, Cause: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &Error{Op: "put", Name: name, Location: path, Cause: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &Error{Op: "put", Name: name, Location: path, Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &Error{Op: "put", Name: name, Location: path, Cause: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &Error{Op: "rename", Name: name, Location: path, Cause: err}
	}
	return nil
}

// TeeStore writes to a primary store and then to every mirror in
// parallel. The primary write must succeed before mirrors are tried.
type TeeStore struct {
	primary Store
	mirrors []Store
}

// NewTeeStore creates a TeeStore.
func NewTeeStore(primary Store, mirrors ...Store) *TeeStore {
	return &TeeStore{primary: primary, mirrors: mirrors}
}

// Location returns the primary location.
func (t *TeeStore) Location(name string) string {
	return t.primary.Location(name)
}

// Put writes data to the primary and all mirrors.
func (t *TeeStore) Put(ctx context.Context, name string, data []byte) error {
	if err := t.primary.Put(ctx, name, data); err != nil {
		return err
	}
	if len(t.mirrors) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, m := range t.mirrors {
		m := m
		eg.Go(func() error {
			if err := m.Put(egCtx, name, data); err != nil {
				return &Error{Op: "mirror", Name: name, Location: m.Location(name), Cause: err}
			}
			return nil
		})
	}
	return eg.Wait()
}

// Record describes one written artifact.
type Record struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     int    `json:"size"`
	Digest   string `json:"blake2b"`
}

// Recorder wraps a Store and records the digest of every artifact put
// through it. A name written twice keeps its first position and its
// latest digest.
type Recorder struct {
	store Store

	mu      sync.Mutex
	records []Record
	index   map[string]int
}

// NewRecorder wraps store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, index: make(map[string]int)}
}

// Location returns the location in the wrapped store.
func (r *Recorder) Location(name string) string {
	return r.store.Location(name)
}

// Put writes through to the wrapped store and records the artifact.
func (r *Recorder) Put(ctx context.Context, name string, data []byte) error {
	if err := r.store.Put(ctx, name, data); err != nil {
		return err
	}

	rec := Record{Name: name, Location: r.store.Location(name), Size: len(data), Digest: Digest(data)}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[name]; ok {
		r.records[i] = rec
	} else {
		r.index[name] = len(r.records)
		r.records = append(r.records, rec)
	}
	return nil
}

// Records returns the recorded artifacts in write order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
