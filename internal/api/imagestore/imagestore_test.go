package imagestore

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uploadHeader wraps image bytes in a parsed multipart form so Save sees
// the same *multipart.FileHeader a real request would carry.
func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["image"][0]
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveResizesToCoverWidth(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save(uploadHeader(t, "My Cover!.png", pngBytes(t, 1400, 900)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "My_Cover"), "got %q", name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), "got %q", name)

	saved, err := imaging.Open(filepath.Join(store.dir, name))
	require.NoError(t, err)
	assert.Equal(t, 700, saved.Bounds().Dx())
	assert.Equal(t, 450, saved.Bounds().Dy())
}

func TestSaveRejectsNonImage(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(uploadHeader(t, "notes.txt", []byte("plain text, not pixels")))
	assert.Error(t, err)
}

func TestSaveFallbackName(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save(uploadHeader(t, "@@@.png", pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "cover"), "got %q", name)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	name, err := store.Save(uploadHeader(t, "cover.png", pngBytes(t, 10, 10)))
	require.NoError(t, err)

	require.NoError(t, store.Remove(name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	// path components in the stored name must not escape the directory
	outside := filepath.Join(filepath.Dir(dir), "victim.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	_ = store.Remove("../victim.jpg")
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
