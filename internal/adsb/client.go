package adsb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// ErrNoData is returned when the feed produced nothing usable this cycle
var ErrNoData = errors.New("no aircraft data")

// maxDocumentBytes bounds a single aircraft.json read
const maxDocumentBytes = 16 << 20

// Client is responsible for fetching ADS-B data from the decoder
type Client struct {
	httpClient *http.Client
	sourceType string
	path       string
	url        string
	timeout    time.Duration
	logger     *logger.Logger
}

// NewClient creates a new ADS-B client
func NewClient(cfg config.FeedConfig, loggerObj *logger.Logger) *Client {
	return &Client{
		sourceType: cfg.SourceType,
		path:       cfg.Path,
		url:        cfg.URL,
		timeout:    cfg.Timeout(),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: loggerObj.Named("adsb-cli"),
	}
}

// FetchData fetches ADS-B data from the configured source
func (c *Client) FetchData(ctx context.Context) (*RawAircraftData, error) {
	var (
		body []byte
		err  error
	)
	switch c.sourceType {
	case "file":
		body, err = c.readFile()
	case "http":
		body, err = c.fetchHTTP(ctx)
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.sourceType)
	}
	if err != nil {
		return nil, err
	}

	data, err := c.decodeDocument(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched ADS-B data",
		logger.String("source", c.sourceType),
		logger.Int("aircraft_count", len(data.Aircraft)),
		logger.Int("message_count", data.Messages),
	)
	return data, nil
}

func (c *Client) readFile() ([]byte, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	return body, nil
}

func (c *Client) fetchHTTP(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// rawDocument defers decoding of each record so one malformed aircraft
// does not cost the rest of the batch
type rawDocument struct {
	Now      float64           `json:"now"`
	Messages int               `json:"messages"`
	Aircraft []json.RawMessage `json:"aircraft"`
}

func (c *Client) decodeDocument(body []byte) (*RawAircraftData, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty document: %w", ErrNoData)
	}

	var doc rawDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if doc.Aircraft == nil {
		return nil, fmt.Errorf("document has no aircraft array: %w", ErrNoData)
	}

	data := &RawAircraftData{
		Now:      doc.Now,
		Messages: doc.Messages,
		Aircraft: make([]ADSBTarget, 0, len(doc.Aircraft)),
	}
	for i, record := range doc.Aircraft {
		var target ADSBTarget
		if err := json.Unmarshal(record, &target); err != nil {
			c.logger.Debug("Skipping malformed aircraft record",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		data.Aircraft = append(data.Aircraft, target)
	}
	return data, nil
}
