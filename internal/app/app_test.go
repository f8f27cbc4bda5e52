package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/config"
)

func TestOpenStore_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")

	st, err := OpenStore(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := st.CreateUser(context.Background(), "alice", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = OpenStore(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()

	if _, err := st.GetUserByUsername(context.Background(), "alice"); err != nil {
		t.Fatalf("expected data to survive reopening: %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "board.db")
	cfg.ShutdownTimeout = time.Second

	logger := zerolog.New(nil)
	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
