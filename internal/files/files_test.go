package files

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newTestStore(t, 1<<20)

	name, err := s.Save("photo.JPG", KindImage, strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.NotContains(t, name, "photo")

	f, err := s.Open(name)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	s := newTestStore(t, 1<<20)

	_, err := s.Save("malware.exe", KindImage, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	// A PDF is a document, not an image.
	_, err = s.Save("lease.pdf", KindImage, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save("lease.pdf", KindDocument, strings.NewReader("x"))
	require.NoError(t, err)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	s := newTestStore(t, 4)
	_, err := s.Save("big.png", KindImage, strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newTestStore(t, 1<<20)

	_, err := s.Open("../../etc/passwd")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Open("a/b.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Open("")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t, 1<<20)

	name, err := s.Save("photo.png", KindImage, strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(name))
	_, err = s.Open(name)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Removing twice is a no-op.
	require.NoError(t, s.Remove(name))
}

func TestHandlerServesFiles(t *testing.T) {
	s := newTestStore(t, 1<<20)

	name, err := s.Save("photo.png", KindImage, strings.NewReader("png-bytes"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/"+name, nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/missing.png", nil))
	assert.Equal(t, 404, rec.Code)
}
