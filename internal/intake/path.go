package intake

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sniffLen = 512

// videoExtensions are the container formats the analysis service accepts.
// The platform MIME table does not know all of them on every OS.
var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".webm": "video/webm",
}

// IsVideoExtension reports whether filename ends in an accepted container extension.
func IsVideoExtension(filename string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// VideoExtensions lists the accepted extensions without the leading dot, sorted.
func VideoExtensions() []string {
	out := make([]string, 0, len(videoExtensions))
	for ext := range videoExtensions {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}

// DetectMIMEType resolves a MIME type for a local file, by extension first
// and by content sniffing otherwise.
func DetectMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoExtensions[ext]; ok {
		return t, nil
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// CandidateFromPath builds a candidate from a file on disk.
func CandidateFromPath(path string) (Candidate, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Candidate{}, fmt.Errorf("path does not exist: %w", err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("path is a directory")
	}

	mimeType, err := DetectMIMEType(abs)
	if err != nil {
		return Candidate{}, fmt.Errorf("detect type: %w", err)
	}

	return Candidate{
		Name:     filepath.Base(abs),
		MIMEType: mimeType,
		Size:     info.Size(),
		Handle:   FileBlob(abs),
	}, nil
}
