package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/restaurant/services/ordering/internal/faults"
)

func TestFileStoreWritesAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/receipts/")
	require.NoError(t, err)

	url, err := store.Store(context.Background(), "receipt-42.txt", []byte("TOTAL £13.50"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/receipts/receipt-42.txt", url)

	data, err := os.ReadFile(filepath.Join(dir, "receipt-42.txt"))
	require.NoError(t, err)
	require.Equal(t, "TOTAL £13.50", string(data))
}

func TestFileStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/receipts")
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.txt", "a/b.txt", `a\b.txt`} {
		_, err := store.Store(context.Background(), key, []byte("x"))
		require.Error(t, err, "key %q", key)
	}
}

// uploadHeader builds a real multipart.FileHeader the way gin would hand one
// to a handler.
func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(int64(buf.Len()) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["image"]
	require.Len(t, files, 1)
	return files[0]
}

func TestImageStoreSavesAllowedExtensions(t *testing.T) {
	dir := t.TempDir()
	files, err := NewFileStore(dir, "/static/images")
	require.NoError(t, err)
	images := NewImageStore(files)

	url, err := images.Save(context.Background(), uploadHeader(t, "pizza.PNG", []byte("not a real png")))
	require.NoError(t, err)
	require.Contains(t, url, "/static/images/menu-")
	require.Contains(t, url, ".png")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestImageStoreRejectsDisallowedExtensions(t *testing.T) {
	files, err := NewFileStore(t.TempDir(), "/static/images")
	require.NoError(t, err)
	images := NewImageStore(files)

	for _, name := range []string{"shell.php", "notes.txt", "noext"} {
		_, err := images.Save(context.Background(), uploadHeader(t, name, []byte("x")))
		require.Error(t, err, "file %q", name)
		require.True(t, faults.IsValidation(err), "file %q", name)
	}
}
