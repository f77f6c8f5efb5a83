package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned http %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running daemon over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient targets the daemon at bind, which may be a host:port or a URL.
func NewClient(bind, token string, timeout time.Duration) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit uploads the file at path and returns the new job id.
func (c *Client) Submit(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		part, err := form.CreateFormFile(uploadField, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		writer.CloseWithError(err)
	}()

	// Uploads may outlive the default client timeout.
	req, err := c.newRequest(ctx, http.MethodPost, "/upload", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	client := *c.httpClient
	client.Timeout = 0

	var resp SubmitResponse
	if err := c.do(&client, req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Result polls the outcome of a job.
func (c *Client) Result(ctx context.Context, jobID string) (ResultResponse, error) {
	var resp ResultResponse
	err := c.get(ctx, "/result/"+url.PathEscape(jobID), &resp)
	return resp, err
}

// Jobs lists jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		q := url.Values{}
		for _, s := range statuses {
			q.Add("status", s)
		}
		path += "?" + q.Encode()
	}
	var resp JobListResponse
	err := c.get(ctx, path, &resp)
	return resp.Jobs, err
}

// LogQuery selects daemon log lines. A negative Offset returns the last
// Lines lines; Follow makes the daemon wait briefly for new output.
type LogQuery struct {
	Offset int64
	Lines  int
	Follow bool
	JobID  string
}

// Logs reads one page of the daemon log.
func (c *Client) Logs(ctx context.Context, q LogQuery) (LogsResponse, error) {
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(q.Offset, 10))
	values.Set("lines", strconv.Itoa(q.Lines))
	if q.Follow {
		values.Set("follow", "true")
	}
	if q.JobID != "" {
		values.Set("job", q.JobID)
	}
	var resp LogsResponse
	err := c.get(ctx, "/api/logs?"+values.Encode(), &resp)
	return resp, err
}

// Job fetches one job.
func (c *Client) Job(ctx context.Context, jobID string) (Job, error) {
	var resp JobResponse
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(jobID), &resp)
	return resp.Job, err
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	err := c.get(ctx, "/api/status", &resp)
	return resp, err
}

// WaitForResult polls until the job leaves pending or ctx ends.
func (c *Client) WaitForResult(ctx context.Context, jobID string, interval time.Duration) (ResultResponse, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := c.Result(ctx, jobID)
		if err != nil {
			return resp, err
		}
		if resp.Status != "pending" {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(c.httpClient, req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	var statusErr *StatusError
	return err != nil && !errors.As(err, &statusErr)
}
