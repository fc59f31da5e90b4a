package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore persists image blobs on disk under a base directory. It is the
// development backend; URLs are served from a public base URL that must map
// to the base directory.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
	signer        *SignedURLSigner
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore ensures the base directory exists and returns a handle. When
// a signer is given, blob URLs embed a signed token instead of the raw name.
func NewLocalStore(baseDir, publicBaseURL string, signer *SignedURLSigner) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		signer:        signer,
	}, nil
}

// Put writes the given bytes under a fresh blob name.
func (s *LocalStore) Put(_ context.Context, data []byte, filename string) (*Blob, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(filename); ext != "" {
		name += ext
	}
	path := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}

	ref := name
	if s.signer != nil {
		token, _, err := s.signer.Generate(name)
		if err != nil {
			return nil, fmt.Errorf("sign blob url: %w", err)
		}
		ref = token
	}
	return &Blob{Name: name, URL: s.publicBaseURL + "/" + ref}, nil
}

// Delete removes a stored blob if present.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	path := filepath.Join(s.baseDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Path exposes the on-disk location of a blob (useful for serving files).
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

// Dir returns the base directory blobs are written under.
func (s *LocalStore) Dir() string {
	return s.baseDir
}
