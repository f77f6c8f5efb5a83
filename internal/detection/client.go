package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"vidtrack/internal/media"
	"vidtrack/internal/tracking"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
	uploadJPEGQuality     = 90
)

// Box encodings a face service may return.
const (
	BoxFormatXYXY = "xyxy"
	BoxFormatXYWH = "xywh"
)

// Client posts frames to an HTTP inference endpoint. The endpoint receives
// the JPEG as the request body and answers with
//
//	{"faces": [[x1,y1,x2,y2], ...]}
//	{"detections": [{"box": [x1,y1,x2,y2], "label": "cup", "confidence": 0.9}, ...]}
//
// for face and object services respectively.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxSide    int
	boxFormat  string

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxImageSide downscales frames whose longest side exceeds side. Zero
// disables downscaling.
func WithMaxImageSide(side int) Option {
	return func(c *Client) {
		c.maxSide = side
	}
}

// WithBoxFormat declares how the service encodes face boxes.
func WithBoxFormat(format string) Option {
	return func(c *Client) {
		c.boxFormat = strings.ToLower(strings.TrimSpace(format))
	}
}

// WithRetry overrides the retry policy.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// NewClient constructs a detector client for endpoint.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		endpoint:         strings.TrimSpace(endpoint),
		httpClient:       &http.Client{Timeout: timeout},
		boxFormat:        BoxFormatXYXY,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type faceResponse struct {
	Faces [][]float64 `json:"faces"`
}

type objectResponse struct {
	Detections []struct {
		Box        []float64 `json:"box"`
		Label      string    `json:"label"`
		Confidence float64   `json:"confidence"`
	} `json:"detections"`
}

// DetectFaces implements FaceDetector.
func (c *Client) DetectFaces(ctx context.Context, frame media.Frame) ([]tracking.Box, error) {
	payload, scale, err := c.loadFrame(frame.Path)
	if err != nil {
		return nil, err
	}
	var resp faceResponse
	if err := c.postWithRetry(ctx, payload, &resp); err != nil {
		return nil, err
	}
	boxes := make([]tracking.Box, 0, len(resp.Faces))
	for i, raw := range resp.Faces {
		box, err := c.decodeBox(raw, c.boxFormat)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		boxes = append(boxes, box.Scale(scale, scale))
	}
	return boxes, nil
}

// DetectObjects implements ObjectDetector.
func (c *Client) DetectObjects(ctx context.Context, frame media.Frame) ([]tracking.Detection, error) {
	payload, scale, err := c.loadFrame(frame.Path)
	if err != nil {
		return nil, err
	}
	var resp objectResponse
	if err := c.postWithRetry(ctx, payload, &resp); err != nil {
		return nil, err
	}
	dets := make([]tracking.Detection, 0, len(resp.Detections))
	for i, raw := range resp.Detections {
		box, err := c.decodeBox(raw.Box, BoxFormatXYXY)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		dets = append(dets, tracking.Detection{
			Box:        box.Scale(scale, scale),
			Label:      strings.TrimSpace(raw.Label),
			Confidence: raw.Confidence,
		})
	}
	return dets, nil
}

// Ping reports whether the endpoint answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("detector ping: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("detector ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("detector ping: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) decodeBox(raw []float64, format string) (tracking.Box, error) {
	if len(raw) != 4 {
		return tracking.Box{}, fmt.Errorf("expected 4 box coordinates, got %d", len(raw))
	}
	if format == BoxFormatXYWH {
		return tracking.FromXYWH(raw[0], raw[1], raw[2], raw[3]), nil
	}
	return tracking.Box{X1: raw[0], Y1: raw[1], X2: raw[2], Y2: raw[3]}, nil
}

// loadFrame returns the upload body and the factor that maps coordinates in
// the uploaded image back to the source frame.
func (c *Client) loadFrame(path string) ([]byte, float64, error) {
	if c.maxSide <= 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("read frame: %w", err)
		}
		return data, 1, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("decode frame: %w", err)
	}
	bounds := img.Bounds()
	longest := max(bounds.Dx(), bounds.Dy())
	scale := 1.0
	var upload image.Image = img
	if longest > c.maxSide {
		upload = imaging.Fit(img, c.maxSide, c.maxSide, imaging.Lanczos)
		scale = float64(longest) / float64(max(upload.Bounds().Dx(), upload.Bounds().Dy()))
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, upload, &jpeg.Options{Quality: uploadJPEGQuality}); err != nil {
		return nil, 0, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), scale, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("detector request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) postWithRetry(ctx context.Context, payload []byte, out any) error {
	attempts := max(c.retryMaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.postOnce(ctx, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("detector request: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) postOnce(ctx context.Context, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("detector request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("detector request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("detector request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: string(body), RetryAfter: retryAfter}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("detector request: decode response: %w", err)
	}
	return nil
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return min(statusErr.RetryAfter, c.retryMaxDelay), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.retryBaseDelay <= 0 {
		return 0
	}
	delay := c.retryBaseDelay << (attempt - 1)
	if c.retryMaxDelay > 0 && (delay > c.retryMaxDelay || delay <= 0) {
		return c.retryMaxDelay
	}
	return delay
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		return time.Until(when), true
	}
	return 0, false
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
