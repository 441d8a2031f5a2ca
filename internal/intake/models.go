// Package intake validates and stages the single video file a user selects,
// whether it arrives by drag-release or through a file picker.
package intake

import (
	"bytes"
	"io"
	"os"
)

// Origin identifies the entry point a candidate came from.
type Origin string

const (
	OriginDrop   Origin = "drop"
	OriginPicker Origin = "picker"
)

// Blob is an opaque handle to the bytes of a file.
type Blob interface {
	Open() (io.ReadCloser, error)
}

// FileBlob reads from a path on the local filesystem.
type FileBlob string

func (b FileBlob) Open() (io.ReadCloser, error) {
	return os.Open(string(b))
}

// Path returns the filesystem path backing the blob.
func (b FileBlob) Path() string {
	return string(b)
}

// BytesBlob holds file contents in memory.
type BytesBlob []byte

func (b BytesBlob) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Candidate is a file offered by an entry point before validation.
type Candidate struct {
	Name     string
	MIMEType string
	Size     int64
	Handle   Blob
}

// StagedFile is the single file selected and pending submission.
type StagedFile struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Origin   Origin `json:"origin"`
	Handle   Blob   `json:"-"`
}
