package daemonrun_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidtrack/internal/daemonrun"
	"vidtrack/internal/testsupport"
)

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Format = "json"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{SkipPreflight: true, LogLevel: "error"})
	}()

	pidPath := filepath.Join(cfg.Paths.DataDir, daemonrun.PIDFileName)
	testsupport.WaitFor(t, 10*time.Second, "pid file", func() bool {
		pid, err := daemonrun.ReadPID(cfg)
		return err == nil && pid == os.Getpid()
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
	if pid, err := daemonrun.ReadPID(cfg); err != nil || pid != 0 {
		t.Fatalf("expected no pid after shutdown, got %d %v", pid, err)
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.DataDir, daemonrun.PIDFileName), []byte("abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonrun.ReadPID(cfg); err == nil {
		t.Fatal("expected parse error")
	}
}
