package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const journalName = "_journal.json"

// FileStore keeps one <collection>.json file per collection in a directory.
// Writes go through a temp file and a rename. Transactions touching more
// than one collection are first recorded in a journal that is replayed on
// open if the process died before all documents were renamed into place.
type FileStore struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[Collection]*sync.Mutex
}

// NewFileStore creates the data directory if needed and recovers any pending journal
func NewFileStore(fs afero.Fs, dir string, logger *zap.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		fs:     fs,
		dir:    dir,
		logger: logger,
		locks:  make(map[Collection]*sync.Mutex),
	}

	if err := s.recover(); err != nil {
		return nil, err
	}

	return s, nil
}

// Get reads a collection document
func (s *FileStore) Get(ctx context.Context, c Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.lock(c)
	lock.Lock()
	defer lock.Unlock()

	return s.read(c)
}

// Update runs fn with the given collections locked and commits its writes
func (s *FileStore) Update(ctx context.Context, fn func(tx Tx) error, collections ...Collection) error {
	ordered := lockOrder(collections)
	for _, c := range ordered {
		lock := s.lock(c)
		lock.Lock()
		defer lock.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &fileTx{
		store:   s,
		allowed: make(map[Collection]bool, len(ordered)),
		pending: make(map[Collection][]byte),
	}
	for _, c := range ordered {
		tx.allowed[c] = true
	}

	if err := fn(tx); err != nil {
		return err
	}

	return s.commit(tx.pending)
}

// Health reports the store backend status
func (s *FileStore) Health(ctx context.Context) map[string]string {
	stats := map[string]string{
		"driver": "file",
		"dir":    s.dir,
	}
	if _, err := s.fs.Stat(s.dir); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}
	stats["status"] = "up"
	return stats
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) lock(c Collection) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[c]
	if !ok {
		l = &sync.Mutex{}
		s.locks[c] = l
	}
	return l
}

func (s *FileStore) path(c Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

func (s *FileStore) read(c Collection) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(c))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}

	if !json.Valid(data) {
		s.logger.Warn("Corrupt collection document",
			zap.String("collection", string(c)),
			zap.String("path", s.path(c)),
		)
	}

	return data, nil
}

func (s *FileStore) commit(pending map[Collection][]byte) error {
	switch len(pending) {
	case 0:
		return nil
	case 1:
		for c, doc := range pending {
			return s.writeFile(s.path(c), doc)
		}
	}

	entries := make(map[Collection]json.RawMessage, len(pending))
	for c, doc := range pending {
		entries[c] = doc
	}
	journal, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}
	journalPath := filepath.Join(s.dir, journalName)
	if err := s.writeFile(journalPath, journal); err != nil {
		return err
	}

	for _, c := range lockOrder(keys(pending)) {
		if err := s.writeFile(s.path(c), pending[c]); err != nil {
			return err
		}
	}

	if err := s.fs.Remove(journalPath); err != nil {
		return fmt.Errorf("failed to remove journal: %w", err)
	}
	return nil
}

// recover replays a journal left behind by an interrupted commit
func (s *FileStore) recover() error {
	journalPath := filepath.Join(s.dir, journalName)
	data, err := afero.ReadFile(s.fs, journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal: %w", err)
	}

	var pending map[Collection]json.RawMessage
	if err := json.Unmarshal(data, &pending); err != nil {
		s.logger.Warn("Discarding unreadable journal", zap.Error(err))
		return s.fs.Remove(journalPath)
	}

	for _, c := range lockOrder(keys(pending)) {
		if err := s.writeFile(s.path(c), pending[c]); err != nil {
			return err
		}
	}

	s.logger.Info("Replayed collection journal", zap.Int("collections", len(pending)))
	return s.fs.Remove(journalPath)
}

func (s *FileStore) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func keys[V any](m map[Collection]V) []Collection {
	out := make([]Collection, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

type fileTx struct {
	store   *FileStore
	allowed map[Collection]bool
	pending map[Collection][]byte
}

func (t *fileTx) Get(c Collection) ([]byte, error) {
	if !t.allowed[c] {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotLocked, c)
	}
	if doc, ok := t.pending[c]; ok {
		return doc, nil
	}
	return t.store.read(c)
}

func (t *fileTx) Put(c Collection, doc []byte) error {
	if !t.allowed[c] {
		return fmt.Errorf("%w: %s", ErrCollectionNotLocked, c)
	}
	t.pending[c] = doc
	return nil
}
