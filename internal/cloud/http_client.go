package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/logging"
)

const (
	uploadPath = "/api/upload"
	healthPath = "/health"

	// multipart field name the service reads the video from
	uploadField = "file"

	maxErrorBodyBytes = 64 * 1024
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// HTTPClient talks to the analysis service over HTTP.
type HTTPClient struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

// BaseURL returns the service origin frames are served from.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Analyze uploads the staged file as multipart form data and decodes the
// analysis report. Non-2xx responses return *ApplicationError; requests that
// never got a response return *TransportError.
func (c *HTTPClient) Analyze(ctx context.Context, file intake.StagedFile) (*AnalysisResult, error) {
	src, err := file.Handle.Open()
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer src.Close()
		pw.CloseWithError(writeUploadForm(mw, file, src))
	}()

	url := c.baseURL + uploadPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Sleuth-Request-Id", uuid.NewString())
	if c.deviceID != "" {
		req.Header.Set("X-Sleuth-Device-Id", c.deviceID)
	}

	c.logger.Info("uploading video for analysis",
		"url", url,
		logging.Video(file.Name, file.MIMEType, file.Size),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		appErr := newApplicationError(resp.StatusCode, body)
		c.logger.Warn("analysis rejected",
			"status", resp.StatusCode,
			"detail", appErr.Detail,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, appErr
	}

	var result AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	c.logger.Info("analysis succeeded",
		"filename", file.Name,
		"score", result.QualityAnalysis.Score,
		"frames", len(result.Frames),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

// Health calls GET /health on the analysis service.
func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newApplicationError(resp.StatusCode, body)
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health response: %w", err)
	}
	return &status, nil
}

func writeUploadForm(mw *multipart.Writer, file intake.StagedFile, src io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(uploadField), quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", file.MIMEType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy file contents: %w", err)
	}
	return mw.Close()
}
