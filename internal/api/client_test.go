package api_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vidtrack/internal/api"
	"vidtrack/internal/testsupport"
)

func TestClientRoundTrip(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("tok"))
	client := api.NewClient(h.server.URL, "tok", 5*time.Second)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "holiday.mp4")
	testsupport.WriteFile(t, src, 4096)

	id, err := client.Submit(ctx, src)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := client.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status != "pending" {
		t.Fatalf("expected pending, got %q", res.Status)
	}

	if err := h.store.Complete(ctx, id, []byte(`{"transcript":""}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	res, err = client.WaitForResult(ctx, id, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Status != "completed" || string(res.Result) != `{"transcript":""}` {
		t.Fatalf("unexpected result: %+v", res)
	}

	job, err := client.Job(ctx, id)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.SourceFile != "holiday.mp4" || job.ResultBytes == 0 {
		t.Fatalf("unexpected job: %+v", job)
	}

	list, err := client.Jobs(ctx, "completed")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected listing: %+v", list)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("tok"))
	ctx := context.Background()

	_, err := api.NewClient(h.server.URL, "bad", time.Second).Jobs(ctx)
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != 401 || statusErr.Message != "unauthorized" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if api.IsUnavailable(err) {
		t.Fatal("http errors should not count as unavailable")
	}

	_, err = api.NewClient(h.server.URL, "tok", time.Second).Job(ctx, "missing")
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestClientReportsUnreachableDaemon(t *testing.T) {
	client := api.NewClient("127.0.0.1:1", "", 500*time.Millisecond)
	_, err := client.Status(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !api.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
