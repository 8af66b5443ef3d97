// Package media stores uploaded product images and videos and tracks
// them as MediaRef records.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shopfront/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const DefaultMaxBytes = 10 << 20

var (
	ErrUnsupportedType = errors.New("only image and video uploads are allowed")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
)

// File is an upload as declared by the client
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Config controls where and how uploads are stored
type Config struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	Strict    bool
}

// Manager writes uploads to a directory and deletes them again
type Manager struct {
	fs     afero.Fs
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates the upload directory if needed
func NewManager(fs afero.Fs, cfg Config, logger *zap.Logger) (*Manager, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	cfg.URLPrefix = strings.TrimSuffix(cfg.URLPrefix, "/")

	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Manager{
		fs:     fs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Store saves one upload and returns its reference.
// The media type comes from the declared content type only.
func (m *Manager) Store(ctx context.Context, f File) (domain.MediaRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MediaRef{}, err
	}

	mediaType, ok := Classify(f.ContentType)
	if !ok && m.cfg.Strict {
		return domain.MediaRef{}, fmt.Errorf("%w: %q", ErrUnsupportedType, f.ContentType)
	}

	name := m.storageName(f.Name, f.ContentType)
	dst := filepath.Join(m.cfg.Dir, name)

	out, err := m.fs.Create(dst)
	if err != nil {
		return domain.MediaRef{}, fmt.Errorf("failed to create upload file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(f.Body, m.cfg.MaxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > m.cfg.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		m.fs.Remove(dst)
		if errors.Is(err, ErrTooLarge) {
			return domain.MediaRef{}, err
		}
		return domain.MediaRef{}, fmt.Errorf("failed to write upload file: %w", err)
	}

	m.logger.Debug("Stored upload",
		zap.String("original_name", f.Name),
		zap.String("stored_name", name),
		zap.String("type", string(mediaType)),
		zap.Int64("bytes", written),
	)

	return domain.MediaRef{
		Type:       mediaType,
		URL:        m.URL(name),
		StoredName: name,
	}, nil
}

// URL returns the public path of a stored file
func (m *Manager) URL(storedName string) string {
	return m.cfg.URLPrefix + "/" + storedName
}

// Delete removes the files behind refs. Missing files are ignored and other
// failures are logged, so callers never fail because of cleanup.
func (m *Manager) Delete(ctx context.Context, refs ...domain.MediaRef) {
	for _, ref := range refs {
		name := ref.StoredName
		if name == "" {
			name = path.Base(ref.URL)
		}
		if name == "" || name == "." || name == "/" {
			continue
		}

		err := m.fs.Remove(filepath.Join(m.cfg.Dir, filepath.Base(name)))
		if err != nil && !os.IsNotExist(err) {
			m.logger.Warn("Failed to delete upload",
				zap.String("stored_name", name),
				zap.Error(err),
			)
		}
	}
}

// DeleteAll removes every file in the upload directory
func (m *Manager) DeleteAll(ctx context.Context) (int, error) {
	return m.Sweep(ctx, nil, 0)
}

// Sweep removes every stored file whose name is not in keep and that was
// last modified at least minAge ago. minAge protects uploads whose product
// has not been saved yet.
func (m *Manager) Sweep(ctx context.Context, keep map[string]bool, minAge time.Duration) (int, error) {
	entries, err := afero.ReadDir(m.fs, m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list upload directory: %w", err)
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || keep[entry.Name()] || entry.ModTime().After(cutoff) {
			continue
		}
		if err := m.fs.Remove(filepath.Join(m.cfg.Dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

// Classify maps a declared content type to a media type. The second result
// is false for content types that are neither image nor video; those are
// classified as video.
func Classify(contentType string) (domain.MediaType, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return domain.MediaTypeImage, true
	case strings.HasPrefix(ct, "video/"):
		return domain.MediaTypeVideo, true
	default:
		return domain.MediaTypeVideo, false
	}
}

// storageName builds <millis>-<random>-<slug><ext>
func (m *Manager) storageName(original, contentType string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := slug.Make(strings.TrimSuffix(base, ext))
	if ext = slug.Make(ext); ext != "" {
		ext = "." + ext
	}

	if ext == "" {
		if mt := mimetype.Lookup(contentType); mt != nil {
			ext = mt.Extension()
		}
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%d-%s", m.now().UnixMilli(), random)
	if stem != "" {
		name += "-" + stem
	}
	return name + ext
}
