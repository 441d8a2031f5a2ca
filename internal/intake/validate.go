package intake

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const videoMIMEPrefix = "video/"

var (
	ErrNoCandidate   = errors.New("no file candidate")
	ErrMultipleFiles = errors.New("only one file can be staged at a time")
	ErrNotAVideo     = errors.New("file is not a video")
)

// ValidationError reports which candidate was rejected and why.
type ValidationError struct {
	Name     string
	MIMEType string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reject %q (%s): %v", e.Name, e.MIMEType, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate applies the single staging rule shared by every entry point.
// An event must carry exactly one candidate whose MIME type is video/*.
func Validate(origin Origin, candidates []Candidate) (StagedFile, error) {
	switch len(candidates) {
	case 0:
		return StagedFile{}, ErrNoCandidate
	case 1:
	default:
		return StagedFile{}, ErrMultipleFiles
	}

	c := candidates[0]
	mimeType := strings.ToLower(strings.TrimSpace(c.MIMEType))
	if !strings.HasPrefix(mimeType, videoMIMEPrefix) {
		return StagedFile{}, &ValidationError{Name: c.Name, MIMEType: c.MIMEType, Err: ErrNotAVideo}
	}
	if c.Handle == nil {
		return StagedFile{}, &ValidationError{Name: c.Name, MIMEType: c.MIMEType, Err: errors.New("missing file contents")}
	}

	return StagedFile{
		Name:     SanitizeName(c.Name),
		MIMEType: mimeType,
		Size:     c.Size,
		Origin:   origin,
		Handle:   c.Handle,
	}, nil
}

// SanitizeName strips control characters and surrounding whitespace from a
// display name. An empty result falls back to "video".
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "video"
	}
	return cleaned
}
