package pkg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore holds opaque attachment bytes. Upload returns a stable reference;
// Resolve turns a reference into a URL a client can fetch.
type BlobStore interface {
	Upload(data []byte) (string, error)
	Resolve(ref string) (string, error)
}

// DiskBlobStore keeps blobs as files under a base directory and serves them
// from a static route. Good enough for a single node; swap for an object
// store behind the same interface in multi-node deployments.
type DiskBlobStore struct {
	Dir     string
	BaseURL string // e.g. "/blobs"
}

func NewDiskBlobStore(dir, baseURL string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskBlobStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskBlobStore) Upload(data []byte) (string, error) {
	ref := uuid.NewString()
	if err := os.WriteFile(filepath.Join(s.Dir, ref), data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *DiskBlobStore) Resolve(ref string) (string, error) {
	// References are uuids we minted; reject anything path-like.
	if ref == "" || strings.ContainsAny(ref, "/\\.") {
		return "", fmt.Errorf("bad blob reference %q", ref)
	}
	return s.BaseURL + "/" + ref, nil
}
