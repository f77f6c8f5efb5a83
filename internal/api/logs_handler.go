package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vidtrack/internal/logs"
)

const (
	defaultLogLines = 100
	maxLogLines     = 1000
	logFollowWait   = 10 * time.Second
)

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := logs.Query{
		Offset: -1,
		Limit:  defaultLogLines,
		JobID:  strings.TrimSpace(query.Get("job")),
	}
	if raw := query.Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid lines "+raw)
			return
		}
		q.Limit = min(n, maxLogLines)
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset "+raw)
			return
		}
		q.Offset = offset
	}
	if follow, _ := strconv.ParseBool(query.Get("follow")); follow {
		q.Wait = logFollowWait
	}

	page, err := logs.Read(r.Context(), s.logPath, q)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, LogsResponse{Lines: page.Lines, Offset: page.Offset})
}
