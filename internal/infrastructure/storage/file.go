package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/market_snapshot/internal/domain"
)

const (
	fileSuffix = ".snapshot.json"
	tempSuffix = ".tmp"
)

// FileStore keeps one envelope file per key under dir. Saves go through a
// temp file in the same directory and a rename, so a reader sees either the
// old snapshot or the new one, never a partial write.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	timeNow    func() time.Time
	renameFile func(oldpath, newpath string) error
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:        dir,
		locks:      make(map[string]*sync.Mutex),
		timeNow:    time.Now,
		renameFile: os.Rename,
	}, nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+fileSuffix)
}

func (s *FileStore) Save(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.IOError{Key: key, Op: "save", Err: err}
	}

	data, err := Encode(key, value, s.timeNow())
	if err != nil {
		return err
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	tmp := filepath.Join(s.dir, "."+key+"."+uuid.NewString()+tempSuffix)
	if err := writeSynced(tmp, data); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Key: key, Op: "write temp", Err: err}
	}
	if err := s.renameFile(tmp, s.Path(key)); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Key: key, Op: "replace", Err: err}
	}
	syncDir(s.dir)
	return nil
}

func (s *FileStore) Load(ctx context.Context, key string, dst any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.IOError{Key: key, Op: "load", Err: err}
	}

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return &domain.NotFoundError{Key: key}
	}
	if err != nil {
		return &domain.IOError{Key: key, Op: "read", Err: err}
	}
	return Decode(key, data, dst)
}

// Keys lists the snapshots present in the directory, ignoring temp files.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir %s: %w", s.dir, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileSuffix))
	}
	return keys, nil
}

func (s *FileStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes the rename. Not all platforms allow fsync on a directory,
// so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
