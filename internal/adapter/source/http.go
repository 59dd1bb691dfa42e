package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// maxWorkbookBytes caps a download. The plant workbook is a few MB.
const maxWorkbookBytes = 64 << 20

// ErrTooLarge is returned when a download exceeds maxWorkbookBytes.
var ErrTooLarge = errors.New("workbook download too large")

// HTTP downloads the workbook from a URL, optionally with a bearer token.
type HTTP struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTP creates an HTTP source.
func NewHTTP(rawURL, token string, timeout time.Duration, logger *slog.Logger) *HTTP {
	return &HTTP{
		url:   rawURL,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Kind labels the source in metrics.
func (h *HTTP) Kind() string { return "http" }

// Fetch downloads the workbook. The name comes from Content-Disposition when
// the server sends one, otherwise from the URL path.
func (h *HTTP) Fetch(ctx context.Context) (domain.RawWorkbook, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return domain.RawWorkbook{}, fmt.Errorf("create request: %w", err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return domain.RawWorkbook{}, fmt.Errorf("download workbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawWorkbook{}, fmt.Errorf("workbook download error: status %d: %s", resp.StatusCode, body)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes+1))
	if err != nil {
		return domain.RawWorkbook{}, fmt.Errorf("read workbook body: %w", err)
	}
	if len(b) > maxWorkbookBytes {
		return domain.RawWorkbook{}, ErrTooLarge
	}

	name := h.fileName(resp)
	h.logger.Debug("workbook downloaded", "name", name, "bytes", len(b))
	return domain.RawWorkbook{Name: name, Bytes: b}, nil
}

func (h *HTTP) fileName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	if u, err := url.Parse(h.url); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "workbook"
}
