package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RedirectToLogin(context.Background())
			r.Notify(context.Background(), "expired", LevelWarning)
		}()
	}
	wg.Wait()

	if r.Redirects() != 20 {
		t.Fatalf("expected 20 redirects, got %d", r.Redirects())
	}
	msgs := r.Messages()
	if len(msgs) != 20 || msgs[0].Level != LevelWarning {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestSlogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewSlog(slog.New(slog.NewTextHandler(&buf, nil)))
	n.Notify(context.Background(), "session expired", LevelWarning)
	n.RedirectToLogin(context.Background())

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "session expired") {
		t.Fatalf("unexpected log output %q", out)
	}
	if !strings.Contains(out, "sign-in required") || !strings.Contains(out, "component=notify") {
		t.Fatalf("expected redirect line, got %q", out)
	}
}

func TestFuncSkipsNil(t *testing.T) {
	var called bool
	f := Func{Redirect: func(context.Context) { called = true }}
	f.Notify(context.Background(), "ignored", LevelInfo)
	f.RedirectToLogin(context.Background())
	if !called {
		t.Fatal("expected redirect func to run")
	}
}
