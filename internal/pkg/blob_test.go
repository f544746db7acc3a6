package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBlobStoreUploadResolve(t *testing.T) {
	store, err := NewDiskBlobStore(t.TempDir(), "/blobs/")
	require.NoError(t, err)

	ref, err := store.Upload([]byte("image-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	data, err := os.ReadFile(filepath.Join(store.Dir, ref))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	url, err := store.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/"+ref, url)
}

func TestDiskBlobStoreResolveRejectsTraversal(t *testing.T) {
	store, err := NewDiskBlobStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	for _, ref := range []string{"../etc/passwd", "a/b.jpg", `a\b.jpg`, "..", ""} {
		_, err := store.Resolve(ref)
		assert.Error(t, err, "ref %q should be rejected", ref)
	}
}
