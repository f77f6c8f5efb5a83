package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vidtrack/internal/jobs"
	"vidtrack/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/uploads/a/clip.mp4")
	if job.ID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Claimed() || job.FinishedAt != nil || job.Result != nil {
		t.Fatalf("unexpected fresh job state: %#v", job)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/uploads/a/clip.mp4" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	missing, err := store.Get(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for unknown id, got %#v, %v", missing, err)
	}
}

func TestCreateRequiresSourcePath(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.Create(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty source path")
	}
}

func TestLookupUnknownIsPending(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	outcome, err := store.Lookup(context.Background(), "never-created")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if outcome.Status != jobs.StatusPending || outcome.Result != nil || outcome.Error != "" {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
}

func TestCompleteIsWriteOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/in.mp4")

	first := []byte(`{"faces":[],"objects":[],"transcript":"hallo","label_source":null,"label_translated":null}`)
	if err := store.Complete(ctx, job.ID, first); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Complete(ctx, job.ID, []byte(`{"other":true}`)); !errors.Is(err, jobs.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}
	if err := store.Fail(ctx, job.ID, "late failure"); !errors.Is(err, jobs.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal from Fail, got %v", err)
	}

	outcome, err := store.Lookup(ctx, job.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if outcome.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", outcome.Status)
	}
	if !bytes.Equal(outcome.Result, first) {
		t.Fatalf("result not byte-identical:\n got %s\nwant %s", outcome.Result, first)
	}

	stored, _ := store.Get(ctx, job.ID)
	if stored.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
}

func TestResultBytesSurviveVerbatim(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/in.mp4")

	// Unicode, escapes, and key order must all survive unchanged.
	payload := []byte("{\"transcript\":\"Grüße \\\"zitat\\\" <b>\",\"z\":1,\"a\":[1.50,2e3]}")
	if err := store.Complete(ctx, job.ID, payload); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	stored, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(stored.Result, payload) {
		t.Fatalf("got %q want %q", stored.Result, payload)
	}
}

func TestFailRecordsMessage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/in.mp4")

	if err := store.Fail(ctx, job.ID, "prepare: ffmpeg exited 1"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if err := store.Complete(ctx, job.ID, []byte(`{}`)); !errors.Is(err, jobs.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}
	outcome, _ := store.Lookup(ctx, job.ID)
	if outcome.Status != jobs.StatusFailed || outcome.Error != "prepare: ffmpeg exited 1" {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Result != nil {
		t.Fatalf("failed job must not carry a result: %s", outcome.Result)
	}
}

func TestTransitionsOnUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := store.Complete(ctx, "ghost", []byte(`{}`)); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Fail(ctx, "ghost", "x"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentFinalizationHasOneWinner(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/in.mp4")

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = store.Complete(ctx, job.ID, []byte(`{"writer":true}`))
			} else {
				err = store.Fail(ctx, job.ID, "writer failed")
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, jobs.ErrAlreadyFinal) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if successes != 1 {
		t.Fatalf("expected exactly one successful finalization, got %d", successes)
	}
}

func TestClaimNextIsFIFOAndExclusive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := base
	jobs.SetClock(store, func() time.Time { tick = tick.Add(time.Millisecond); return tick })

	first := testsupport.NewJob(t, store, "/first.mp4")
	second := testsupport.NewJob(t, store, "/second.mp4")

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected first job, got %#v", claimed)
	}
	if !claimed.Claimed() || claimed.Attempts != 1 || claimed.Status != jobs.StatusPending {
		t.Fatalf("unexpected claimed state: %#v", claimed)
	}

	next, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected second job, got %#v", next)
	}

	none, err := store.ClaimNext(ctx)
	if err != nil || none != nil {
		t.Fatalf("expected no claimable job, got %#v, %v", none, err)
	}

	// A claimed job still looks pending from outside.
	outcome, _ := store.Lookup(ctx, first.ID)
	if outcome.Status != jobs.StatusPending {
		t.Fatalf("claimed job should report pending, got %s", outcome.Status)
	}
	active, err := store.ActiveCount(ctx)
	if err != nil || active != 2 {
		t.Fatalf("expected 2 active jobs, got %d, %v", active, err)
	}
}

func TestClaimSkipsFinalJobs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/a.mp4")
	if err := store.Fail(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed != nil {
		t.Fatalf("expected nothing to claim, got %#v, %v", claimed, err)
	}
}

func TestHeartbeatAndReclaimStale(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs.SetClock(store, func() time.Time { return now })

	stale := testsupport.NewJob(t, store, "/stale.mp4")
	fresh := testsupport.NewJob(t, store, "/fresh.mp4")
	for range 2 {
		if _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
	}

	now = now.Add(5 * time.Minute)
	if err := store.Heartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	reclaimed, err := store.ReclaimStale(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}

	got, _ := store.Get(ctx, stale.ID)
	if got.Claimed() || got.Status != jobs.StatusPending {
		t.Fatalf("stale job should be unclaimed pending: %#v", got)
	}
	again, err := store.ClaimNext(ctx)
	if err != nil || again == nil || again.ID != stale.ID || again.Attempts != 2 {
		t.Fatalf("expected stale job to be claimable again, got %#v, %v", again, err)
	}

	if err := store.Heartbeat(ctx, "ghost"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for heartbeat on unknown job, got %v", err)
	}
}

func TestResetClaims(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewJob(t, store, "/a.mp4")
	testsupport.NewJob(t, store, "/b.mp4")
	for range 2 {
		if _, err := store.ClaimNext(ctx); err != nil {
			t.Fatalf("ClaimNext: %v", err)
		}
	}
	reset, err := store.ResetClaims(ctx)
	if err != nil || reset != 2 {
		t.Fatalf("expected 2 reset claims, got %d, %v", reset, err)
	}
	if active, _ := store.ActiveCount(ctx); active != 0 {
		t.Fatalf("expected no active jobs, got %d", active)
	}
}

func TestListStatsAndPurge(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	jobs.SetClock(store, func() time.Time { return now })

	done := testsupport.NewJob(t, store, "/done.mp4")
	failed := testsupport.NewJob(t, store, "/failed.mp4")
	testsupport.NewJob(t, store, "/waiting.mp4")
	if err := store.Complete(ctx, done.ID, []byte(`{}`)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := store.Fail(ctx, failed.ID, "nope"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d, %v", len(all), err)
	}
	finals, err := store.List(ctx, jobs.StatusCompleted, jobs.StatusFailed)
	if err != nil || len(finals) != 2 {
		t.Fatalf("expected 2 final jobs, got %d, %v", len(finals), err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StatusPending] != 1 || stats[jobs.StatusCompleted] != 1 || stats[jobs.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	purged, err := store.PurgeFinished(ctx, now.Add(time.Hour))
	if err != nil || purged != 2 {
		t.Fatalf("expected 2 purged jobs, got %d, %v", purged, err)
	}
	remaining, _ := store.List(ctx)
	if len(remaining) != 1 || remaining[0].Status != jobs.StatusPending {
		t.Fatalf("unexpected remaining jobs: %#v", remaining)
	}
}

func TestReopenKeepsJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := testsupport.NewJob(t, store, "/persist.mp4")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	got, err := reopened.Get(context.Background(), job.ID)
	if err != nil || got == nil {
		t.Fatalf("expected job after reopen, got %#v, %v", got, err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, value := range []string{"pending", "completed", "failed"} {
		if _, ok := jobs.ParseStatus(value); !ok {
			t.Fatalf("expected %q to parse", value)
		}
	}
	if _, ok := jobs.ParseStatus("running"); ok {
		t.Fatal("running is not a public status")
	}
	if !jobs.StatusFailed.IsFinal() || jobs.StatusPending.IsFinal() {
		t.Fatal("unexpected IsFinal results")
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE jobs SET a = ? WHERE id = ? AND status IN (?,?)"
	if got := jobs.Rebind("sqlite", query); got != query {
		t.Fatalf("sqlite query should be unchanged, got %q", got)
	}
	want := "UPDATE jobs SET a = $1 WHERE id = $2 AND status IN ($3,$4)"
	if got := jobs.Rebind("postgres", query); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
