package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// HTTPError is a non-2xx answer from the processing service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("processing: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("processing: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the remote processing service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	log        *log.Entry
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: 500 * time.Millisecond,
		log:        log.WithField("adapter", "processing"),
	}
}

// Process asks the service to start processing a saved video. The call is not
// retried: a second POST could start a second run.
func (c *Client) Process(ctx context.Context, token string, body TriggerRequest) (*TriggerResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("processing: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos/process", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("processing: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)

	c.log.WithField("video_id", body.VideoID).Debug("Process: sending trigger")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	// Any 2xx means processing started. A body we cannot use only costs the
	// metadata.
	out := &TriggerResponse{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).WithField("video_id", body.VideoID).Warn("Process: failed to read trigger response")
		return out, nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.WithError(err).WithField("video_id", body.VideoID).Warn("Process: ignoring undecodable trigger response")
		return &TriggerResponse{}, nil
	}
	if err := out.Validate(); err != nil {
		c.log.WithError(err).WithField("video_id", body.VideoID).Warn("Process: ignoring reported status")
		out.Status = ""
	}
	return out, nil
}

// Search runs a ranked search on the service. An empty platform searches all.
func (c *Client) Search(ctx context.Context, token, query, platform string) ([]SearchHit, error) {
	params := url.Values{}
	params.Set("query", query)
	if platform != "" {
		params.Set("platform", platform)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("processing: create request: %w", err)
	}
	setBearer(req, token)

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		c.log.WithError(err).Error("Search: request failed")
		return nil, fmt.Errorf("processing: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var hits []SearchHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("processing: decode json: %w", err)
	}
	for _, h := range hits {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}
	return hits, nil
}

// doWithRetry executes an idempotent request with a single retry on 5xx or
// network errors.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WithField("reason", reason).Warn("doWithRetry: retrying")

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}

	return c.httpClient.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
