package focuslinesdk

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"focusline/internal/assistant"
	"focusline/internal/config"
	"focusline/internal/db"
	"focusline/internal/engine"
	"focusline/internal/migrate"
	"focusline/internal/server"
)

type stubGateway struct{}

func (stubGateway) BreakdownPriority(ctx context.Context, role, priority string) ([]string, error) {
	return []string{"First step", "Second step"}, nil
}

func (stubGateway) WeeklyAdvice(ctx context.Context, role string, priorities, achieved, blockages []string) (string, error) {
	return "protect your mornings", nil
}

func (stubGateway) MotivationalFeedback(ctx context.Context, role string, completed []string) (string, error) {
	return fmt.Sprintf("%d down, well done", len(completed)), nil
}

func startServer(t *testing.T) string {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var gw assistant.Gateway = stubGateway{}
	e := engine.New(conn, config.Default(), gw)
	e.Now = func() time.Time { return time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC) }
	handler, err := server.New(server.Config{Engine: e})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return "http://" + ln.Addr().String()
}

func TestClientWeeklyCycle(t *testing.T) {
	ctx := context.Background()
	client := New(startServer(t))

	state, err := client.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.View != "welcome" {
		t.Fatalf("expected welcome, got %q", state.View)
	}

	if _, err := client.SetRole(ctx, "Engineer"); err != nil {
		t.Fatalf("set role: %v", err)
	}
	rec, err := client.SetPriorities(ctx, []string{"Ship the release"})
	if err != nil {
		t.Fatalf("set priorities: %v", err)
	}
	if len(rec.Priorities) != 1 || rec.Priorities[0].ActionableSteps != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	pid := rec.Priorities[0].ID

	p, err := client.GenerateSteps(ctx, pid)
	if err != nil {
		t.Fatalf("generate steps: %v", err)
	}
	if len(p.ActionableSteps) != 2 {
		t.Fatalf("expected two steps: %+v", p)
	}
	for _, s := range p.ActionableSteps {
		if rec, err = client.ToggleStep(ctx, pid, s.ID); err != nil {
			t.Fatalf("toggle step: %v", err)
		}
	}
	if !rec.Priorities[0].IsCompleted {
		t.Fatalf("priority should auto-complete: %+v", rec.Priorities[0])
	}

	msg, err := client.Motivation(ctx)
	if err != nil || msg == "" {
		t.Fatalf("motivation: %q %v", msg, err)
	}

	if rec, err = client.ArchiveWeek(ctx); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(rec.Priorities) != 0 {
		t.Fatalf("archive left priorities: %+v", rec)
	}

	events, err := client.Events(ctx, 10, "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected events in the log")
	}
}

func TestClientErrorEnvelope(t *testing.T) {
	ctx := context.Background()
	client := New(startServer(t))

	_, err := client.SetPriorities(ctx, []string{"Ship"})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 before a role is set, got %d", apiErr.StatusCode)
	}
}
