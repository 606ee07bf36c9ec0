package http

import (
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const testSecret = "let-me-in"

type testServer struct {
	*httptest.Server
	engine  *app.Engine
	hub     *broadcast.Hub
	archive *memory.Archive
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	hub := broadcast.NewHub(0)
	engine, err := app.NewEngine(domain.SampleCatalog(),
		app.WithClock(clockwork.NewFakeClock()),
		app.WithSink(hub),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	auth, err := app.NewAuthenticator(testSecret, "")
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	archive := memory.NewArchive()

	server := httptest.NewServer(NewRouter(RouterConfig{
		Engine:  engine,
		Hub:     hub,
		Auth:    auth,
		Archive: archive,
		Checks:  checks,
	}))
	t.Cleanup(func() {
		server.Close()
		hub.Close()
		engine.Close()
	})
	return &testServer{Server: server, engine: engine, hub: hub, archive: archive}
}
