// Package acestep implements the submit/poll/fetch protocol of the ACE-Step
// audio generation service.
package acestep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	releaseTaskPath = "/release_task"
	queryResultPath = "/query_result"

	// DefaultBaseURL points at a locally hosted ACE-Step instance.
	DefaultBaseURL = "http://localhost:8001"

	// DefaultPollInterval is the fixed sleep between pending poll responses.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultMaxPollAttempts bounds the poll loop; combined with the poll
	// interval it allows roughly ten minutes per task.
	DefaultMaxPollAttempts = 1200

	defaultTimeout = 30 * time.Second
)

var (
	// ErrTaskFailed indicates the remote service reported a failed task.
	ErrTaskFailed = errors.New("acestep: task reported failure")

	// ErrPollTimeout indicates the poll attempt budget was exhausted while
	// the task was still pending.
	ErrPollTimeout = errors.New("acestep: task polling timed out")
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	HTTPClient      *http.Client
	Timeout         time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Client talks to one ACE-Step instance. All calls are synchronous with
// bounded timeouts.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
	sleep           func(time.Duration)
}

// NewClient builds a Client, applying defaults for anything unset.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := opts.MaxPollAttempts
	if attempts <= 0 {
		attempts = DefaultMaxPollAttempts
	}
	return &Client{
		httpClient:      client,
		baseURL:         base,
		pollInterval:    interval,
		maxPollAttempts: attempts,
		sleep:           time.Sleep,
	}
}

type releaseTaskRequest struct {
	Prompt         string `json:"prompt"`
	Lyrics         string `json:"lyrics"`
	BPM            int    `json:"bpm"`
	AudioDuration  int    `json:"audio_duration"`
	InferenceSteps int    `json:"inference_steps"`
	AudioFormat    string `json:"audio_format"`
	Thinking       bool   `json:"thinking"`
}

// taskResult is one entry of a query_result response. Result holds
// JSON-encoded data as a string.
type taskResult struct {
	Status *int   `json:"status"`
	Result string `json:"result"`
}

// SubmitTask sends a generation task and returns its id. The response may
// carry the payload flat or under a "data" envelope; both shapes are
// accepted.
func (c *Client) SubmitTask(ctx context.Context, prompt string, tempo, duration int) (string, error) {
	payload := releaseTaskRequest{
		Prompt:         prompt,
		Lyrics:         "",
		BPM:            tempo,
		AudioDuration:  duration,
		InferenceSteps: 20,
		AudioFormat:    "wav",
		Thinking:       true,
	}

	var resp struct {
		TaskID string          `json:"task_id"`
		Data   json.RawMessage `json:"data"`
	}
	if err := c.postJSON(ctx, releaseTaskPath, payload, &resp); err != nil {
		return "", fmt.Errorf("acestep: submit: %w", err)
	}

	taskID := resp.TaskID
	if len(resp.Data) > 0 {
		var envelope struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(resp.Data, &envelope); err == nil && envelope.TaskID != "" {
			taskID = envelope.TaskID
		}
	}
	if taskID == "" {
		return "", fmt.Errorf("acestep: submit: missing task_id in response")
	}
	return taskID, nil
}

// PollUntilComplete queries the task until it reports done, fails, or the
// attempt budget runs out. A fixed interval separates pending responses.
func (c *Client) PollUntilComplete(ctx context.Context, taskID string) (taskResult, error) {
	payload := map[string]any{"task_id_list": []string{taskID}}

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		var resp struct {
			Data json.RawMessage `json:"data"`
		}
		if err := c.postJSON(ctx, queryResultPath, payload, &resp); err != nil {
			return taskResult{}, fmt.Errorf("acestep: poll: %w", err)
		}

		item := decodeTaskResult(resp.Data)
		switch {
		case item.Status == nil || *item.Status == 0:
			c.sleep(c.pollInterval)
		case *item.Status == 1:
			return item, nil
		default:
			return taskResult{}, fmt.Errorf("%w: status %d", ErrTaskFailed, *item.Status)
		}
	}
	return taskResult{}, ErrPollTimeout
}

// decodeTaskResult tolerates both response shapes: a list of task records or
// a single record. Anything undecodable reads as a still-pending record.
func decodeTaskResult(data json.RawMessage) taskResult {
	if len(data) == 0 {
		return taskResult{}
	}
	var list []taskResult
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return taskResult{}
		}
		return list[0]
	}
	var single taskResult
	if err := json.Unmarshal(data, &single); err == nil {
		return single
	}
	return taskResult{}
}

// extractFilePath pulls the artifact path out of a completed task record.
// The record's result field is a JSON-encoded string holding either a single
// object or a list of candidates; the first candidate with a non-empty file
// field wins.
func extractFilePath(record taskResult) (string, error) {
	if record.Result == "" {
		return "", errors.New("acestep: missing result JSON")
	}

	type candidate struct {
		File string `json:"file"`
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(record.Result), &items); err == nil {
		for _, raw := range items {
			var c candidate
			if err := json.Unmarshal(raw, &c); err == nil && c.File != "" {
				return c.File, nil
			}
		}
		return "", errors.New("acestep: no valid file path in result list")
	}

	var c candidate
	if err := json.Unmarshal([]byte(record.Result), &c); err == nil && c.File != "" {
		return c.File, nil
	}
	return "", fmt.Errorf("acestep: missing file path in result: %s", record.Result)
}

// FetchBytes retrieves the raw artifact. Relative paths resolve against the
// configured base URL.
func (c *Client) FetchBytes(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("acestep: fetch: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acestep: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("acestep: fetch: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("acestep: fetch: %w", err)
	}
	return body, nil
}

// Generate runs the full submit -> poll -> extract -> fetch sequence and
// returns the audio bytes. It satisfies queue.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, tempo, duration int) ([]byte, error) {
	taskID, err := c.SubmitTask(ctx, prompt, tempo, duration)
	if err != nil {
		return nil, err
	}
	record, err := c.PollUntilComplete(ctx, taskID)
	if err != nil {
		return nil, err
	}
	path, err := extractFilePath(record)
	if err != nil {
		return nil, err
	}
	return c.FetchBytes(ctx, path)
}

func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
