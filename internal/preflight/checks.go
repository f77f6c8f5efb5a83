package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"vidtrack/internal/deps"
	"vidtrack/internal/detection"
)

const (
	detectorTimeout = 5 * time.Second
	apiTimeout      = 30 * time.Second
)

// Pinger is satisfied by the job store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckOpenAI verifies that an OpenAI-compatible API is reachable and the key
// is accepted by listing models once.
func CheckOpenAI(ctx context.Context, name, apiKey, baseURL string) Result {
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	clientConfig := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if base := strings.TrimSpace(baseURL); base != "" {
		clientConfig.BaseURL = base
	}
	client := openai.NewClientWithConfig(clientConfig)
	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDetector verifies that a detector endpoint answers HTTP.
func CheckDetector(ctx context.Context, name, endpoint string) Result {
	if strings.TrimSpace(endpoint) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, detectorTimeout)
	defer cancel()

	client := detection.NewClient(endpoint, detectorTimeout)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", endpoint, err)}
	}
	return Result{Name: name, Passed: true, Detail: endpoint + " (reachable)"}
}

// CheckStore verifies the job store answers.
func CheckStore(ctx context.Context, backend string, store Pinger) Result {
	name := "Job store"
	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", backend, err)}
	}
	return Result{Name: name, Passed: true, Detail: backend + " (reachable)"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// FromDependency converts a binary lookup into a preflight result.
func FromDependency(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	if status.Optional {
		return Result{Name: status.Name, Passed: true, Detail: status.Detail + " (optional)"}
	}
	return Result{Name: status.Name, Detail: status.Detail}
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
