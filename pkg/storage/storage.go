package storage

import "context"

// Blob identifies a stored image and where it can be fetched.
type Blob struct {
	Name string
	URL  string
}

// Store persists raw image bytes and returns a stable blob name plus a
// publicly reachable URL. URLs must stay valid long enough for the
// recognition collaborator to fetch them.
type Store interface {
	Put(ctx context.Context, data []byte, filename string) (*Blob, error)
	Delete(ctx context.Context, name string) error
}
