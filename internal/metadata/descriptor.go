package metadata

import (
	"context"
	"errors"
	"mime"
	"path"
)

var (
	// ErrInvalidIdentifier means the identifier is malformed or not
	// authorized.
	ErrInvalidIdentifier = errors.New("invalid file identifier")

	// ErrNotFound means the identifier is well formed but nothing is
	// registered under it.
	ErrNotFound = errors.New("file not found")
)

const defaultContentType = "application/octet-stream"

// FileDescriptor describes one streamable object. It is resolved fresh for
// every request.
type FileDescriptor struct {
	ID          string
	Size        int64
	MimeType    string
	DisplayName string
	ObjectKey   string
}

// ContentType returns the stored MIME type, else the type implied by the
// display name extension, else application/octet-stream.
func (f FileDescriptor) ContentType() string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if ext := path.Ext(f.DisplayName); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return defaultContentType
}

type Resolver interface {
	Resolve(ctx context.Context, id string) (FileDescriptor, error)
}
