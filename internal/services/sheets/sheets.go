// Package sheets is the client for the spreadsheet metadata store. The store
// is the system of record for intake rows: which videos await processing,
// their broadcast metadata, and the outcome of each run.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelvault/internal/logging"
	"reelvault/internal/naming"
	"reelvault/internal/services"
)

// Row is one intake row as the store returns it. Index is the 1-based row
// number used for later updates.
type Row struct {
	Index   int    `json:"index"`
	Date    string `json:"date"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Name    string `json:"name"`
	File    string `json:"file"`
	Status  string `json:"status"`
}

// UpdateOptions carries the optional fields of a status update.
type UpdateOptions struct {
	ErrorMessage  string
	FinalFilename string
	Summary       string
}

// Markers holds the status strings the store uses.
type Markers struct {
	Pending string
	Error   string
	Done    string
}

// Client talks to the metadata store over its REST surface.
type Client struct {
	baseURL    string
	apiKey     string
	summaryTab string
	markers    Markers
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	SummaryTab     string
	Markers        Markers
}

// NewClient builds a metadata store client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Markers.Pending == "" {
		opts.Markers.Pending = "대기"
	}
	if opts.Markers.Error == "" {
		opts.Markers.Error = "에러"
	}
	if opts.Markers.Done == "" {
		opts.Markers.Done = "완료"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		summaryTab: opts.SummaryTab,
		markers:    opts.Markers,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		logger:     logger,
	}
}

// Markers exposes the configured status strings.
func (c *Client) Markers() Markers { return c.markers }

// ListPending fetches the category's rows and returns those awaiting
// processing: status empty, pending, or errored (errored rows are retried on
// the next scan). Extensionless filenames gain .mp4 so row authors can omit
// the suffix.
func (c *Client) ListPending(ctx context.Context, category string) ([]Row, error) {
	var rows []Row
	path := fmt.Sprintf("/categories/%s/rows", category)
	if err := c.get(ctx, path, &rows); err != nil {
		return nil, services.Wrap(services.ErrTransient, "scan", "list rows", "fetch intake rows", err)
	}

	pending := make([]Row, 0, len(rows))
	for _, row := range rows {
		file := strings.TrimSpace(row.File)
		if file == "" {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(file), ".mp4") {
			file += ".mp4"
		}
		row.File = file

		row.Status = strings.TrimSpace(row.Status)
		if row.Status == "" || row.Status == c.markers.Pending || row.Status == c.markers.Error {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

// UpdateStatus writes the outcome of a run back to the row. A done update for
// the testimony category also fans the summary out to the summary tab,
// best-effort.
func (c *Client) UpdateStatus(ctx context.Context, category string, rowIndex int, status string, opts UpdateOptions) error {
	payload := map[string]string{"status": status}
	if opts.ErrorMessage != "" {
		payload["error"] = opts.ErrorMessage
	}
	if opts.FinalFilename != "" {
		payload["final_filename"] = opts.FinalFilename
	}
	if opts.Summary != "" {
		payload["summary"] = opts.Summary
	}

	path := fmt.Sprintf("/categories/%s/rows/%d", category, rowIndex)
	if err := c.post(ctx, path, payload, nil); err != nil {
		return services.Wrap(services.ErrTransient, "record", "update status", "write row status", err)
	}
	c.logger.Info("metadata row updated",
		logging.String("category", category),
		logging.Int("row", rowIndex),
		logging.String("status", status))

	if status == c.markers.Done && opts.Summary != "" && category == "testimony" && c.summaryTab != "" {
		if err := c.appendSummary(ctx, category, rowIndex, opts.Summary); err != nil {
			c.logger.Warn("summary tab append failed", logging.Error(err))
		}
	}
	return nil
}

func (c *Client) appendSummary(ctx context.Context, category string, rowIndex int, summary string) error {
	var row Row
	if err := c.get(ctx, fmt.Sprintf("/categories/%s/rows/%d", category, rowIndex), &row); err != nil {
		return err
	}
	payload := map[string]string{
		"date":    row.Date,
		"country": row.Country,
		"name":    row.Name,
		"summary": summary,
	}
	return c.post(ctx, fmt.Sprintf("/tabs/%s/rows", c.summaryTab), payload, nil)
}

// AppendRow registers a new intake row with pending status. The date is
// rendered in the store's display form.
func (c *Client) AppendRow(ctx context.Context, category string, row Row) error {
	payload := map[string]string{
		"date":    naming.DisplayDate(naming.DateToken(row.Date)),
		"region":  row.Region,
		"country": row.Country,
		"name":    row.Name,
		"file":    row.File,
		"status":  c.markers.Pending,
	}
	path := fmt.Sprintf("/categories/%s/rows", category)
	if err := c.post(ctx, path, payload, nil); err != nil {
		return services.Wrap(services.ErrTransient, "register", "append row", "register intake row", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
