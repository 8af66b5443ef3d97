package media

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"shopfront/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if cfg.Dir == "" {
		cfg.Dir = "/uploads"
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/uploads/"
	}
	m, err := NewManager(fs, cfg, zap.NewNop())
	require.NoError(t, err)
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return m, fs
}

func TestManager_StoreImage(t *testing.T) {
	m, fs := newTestManager(t, Config{Strict: true})

	ref, err := m.Store(context.Background(), File{
		Name:        "Summer Shirt.PNG",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MediaTypeImage, ref.Type)
	assert.True(t, strings.HasPrefix(ref.StoredName, "1700000000000-"))
	assert.True(t, strings.HasSuffix(ref.StoredName, "-summer-shirt.png"), ref.StoredName)
	assert.Equal(t, "/uploads/"+ref.StoredName, ref.URL)

	data, err := afero.ReadFile(fs, "/uploads/"+ref.StoredName)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestManager_StoreVideo(t *testing.T) {
	m, _ := newTestManager(t, Config{Strict: true})

	ref, err := m.Store(context.Background(), File{
		Name:        "clip.mp4",
		ContentType: "video/mp4",
		Body:        strings.NewReader("mp4"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, ref.Type)
}

func TestManager_StrictRejectsOtherTypes(t *testing.T) {
	m, fs := newTestManager(t, Config{Strict: true})

	_, err := m.Store(context.Background(), File{
		Name:        "notes.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("pdf"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_LenientStoresOtherTypesAsVideo(t *testing.T) {
	m, _ := newTestManager(t, Config{Strict: false})

	ref, err := m.Store(context.Background(), File{
		Name:        "notes.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, ref.Type)
}

func TestManager_TooLargeIsRejectedAndRemoved(t *testing.T) {
	m, fs := newTestManager(t, Config{MaxBytes: 4})

	_, err := m.Store(context.Background(), File{
		Name:        "big.jpg",
		ContentType: "image/jpeg",
		Body:        bytes.NewReader(make([]byte, 5)),
	})
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_ExactlyAtLimitIsAccepted(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxBytes: 4})

	_, err := m.Store(context.Background(), File{
		Name:        "ok.jpg",
		ContentType: "image/jpeg",
		Body:        bytes.NewReader(make([]byte, 4)),
	})
	assert.NoError(t, err)
}

func TestManager_ExtensionFromContentType(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	ref, err := m.Store(context.Background(), File{
		Name:        "blob",
		ContentType: "image/png",
		Body:        strings.NewReader("x"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref.StoredName, "-blob.png"), ref.StoredName)
}

func TestManager_StoredNameIgnoresPathComponents(t *testing.T) {
	m, fs := newTestManager(t, Config{})

	ref, err := m.Store(context.Background(), File{
		Name:        "../../etc/passwd.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("x"),
	})
	require.NoError(t, err)
	assert.NotContains(t, ref.StoredName, "/")

	exists, err := afero.Exists(fs, "/uploads/"+ref.StoredName)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestManager_DeleteIsBestEffort(t *testing.T) {
	m, fs := newTestManager(t, Config{})
	ctx := context.Background()

	ref, err := m.Store(ctx, File{Name: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("a")})
	require.NoError(t, err)

	missing := domain.MediaRef{Type: domain.MediaTypeImage, URL: "/uploads/gone.jpg", StoredName: "gone.jpg"}
	m.Delete(ctx, missing, ref)

	exists, err := afero.Exists(fs, "/uploads/"+ref.StoredName)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_SweepKeepsReferencedFiles(t *testing.T) {
	m, fs := newTestManager(t, Config{})
	ctx := context.Background()

	keep, err := m.Store(ctx, File{Name: "keep.jpg", ContentType: "image/jpeg", Body: strings.NewReader("k")})
	require.NoError(t, err)
	_, err = m.Store(ctx, File{Name: "drop.jpg", ContentType: "image/jpeg", Body: strings.NewReader("d")})
	require.NoError(t, err)

	removed, err := m.Sweep(ctx, map[string]bool{keep.StoredName: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keep.StoredName, entries[0].Name())

	removed, err = m.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

// Feature: shopfront, Property: media type follows the declared content type prefix
func TestProperty_ClassifyByDeclaredPrefix(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("image/ prefix is image, everything else is video", prop.ForAll(
		func(prefix string, subtype string) bool {
			mediaType, ok := Classify(prefix + subtype)
			switch prefix {
			case "image/":
				return mediaType == domain.MediaTypeImage && ok
			case "video/":
				return mediaType == domain.MediaTypeVideo && ok
			default:
				return mediaType == domain.MediaTypeVideo && !ok
			}
		},
		gen.OneConstOf("image/", "video/", "application/", "text/", ""),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
