package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes   = 1024 * 1024
	pollInterval   = 250 * time.Millisecond
	consoleIDChars = 8
)

// Query selects lines from a log file.
type Query struct {
	// Offset is the byte position to resume from. Negative starts at the
	// end and returns the last Limit lines.
	Offset int64
	Limit  int
	// Wait blocks up to this long for new lines when none are available.
	Wait  time.Duration
	JobID string
}

// Page is one read. Offset is where the next read should resume.
type Page struct {
	Lines  []string
	Offset int64
}

// Read returns the lines selected by q. A missing file yields an empty page.
func Read(ctx context.Context, path string, q Query) (Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{Lines: []string{}}, nil
		}
		return Page{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Page{}, fmt.Errorf("log path %q is a directory", path)
	}

	match := jobMatcher(q.JobID)
	var page Page
	if q.Offset < 0 {
		page, err = readLast(path, q.Limit, match)
	} else {
		offset := q.Offset
		if offset > info.Size() {
			// The file was truncated or rotated; resume from its start.
			offset = 0
		}
		page, err = readFrom(path, offset, q.Limit, match)
	}
	if err != nil || len(page.Lines) > 0 || q.Wait <= 0 {
		return page, err
	}
	return waitFor(ctx, path, page.Offset, q, match)
}

func readLast(path string, limit int, match func(string) bool) (Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return Page{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Page{}, fmt.Errorf("seek log file: %w", err)
		}
		return Page{Lines: []string{}, Offset: end}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	err = scan(file, func(line string) {
		if !match(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % limit
		count = min(count+1, limit)
	})
	if err != nil {
		return Page{}, err
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Page{}, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return Page{Lines: lines, Offset: end}, nil
}

func readFrom(path string, offset int64, limit int, match func(string) bool) (Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return Page{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Page{}, fmt.Errorf("seek log file: %w", err)
	}
	lines := []string{}
	err = scan(file, func(line string) {
		if match(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return Page{}, err
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Page{}, fmt.Errorf("determine log offset: %w", err)
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return Page{Lines: lines, Offset: end}, nil
}

// scan feeds complete lines to fn. The file position is left at the end of
// the data read, so a partially written trailing line is consumed too.
func scan(file *os.File, fn func(string)) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return nil
}

func waitFor(ctx context.Context, path string, offset int64, q Query, match func(string) bool) (Page, error) {
	deadline := time.Now().Add(q.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	page := Page{Lines: []string{}, Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return page, ctx.Err()
		case <-ticker.C:
		}
		next, err := readFrom(path, page.Offset, q.Limit, match)
		if err != nil {
			return page, err
		}
		if len(next.Lines) > 0 || !time.Now().Before(deadline) {
			return next, nil
		}
		page.Offset = next.Offset
	}
}

func jobMatcher(jobID string) func(string) bool {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return func(string) bool { return true }
	}
	short := jobID
	if len(short) > consoleIDChars {
		short = short[:consoleIDChars]
	}
	consoleSubject := "Job " + short
	return func(line string) bool {
		if strings.HasPrefix(line, "{") {
			var fields struct {
				JobID string `json:"job_id"`
			}
			if json.Unmarshal([]byte(line), &fields) == nil {
				return fields.JobID == jobID
			}
		}
		return strings.Contains(line, consoleSubject)
	}
}
