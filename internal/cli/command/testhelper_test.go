package command

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/yndnr/lockscope-go/internal/cli/config"
)

// mockAgent is a test HTTP server standing in for an agent.
type mockAgent struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
}

func newMockAgent() *mockAgent {
	m := &mockAgent{
		handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for pattern, handler := range m.handlers {
			if strings.HasPrefix(r.URL.Path, pattern) {
				handler(w, r)
				return
			}
		}
		http.NotFound(w, r)
	}))
	return m
}

func (m *mockAgent) handle(pattern string, handler http.HandlerFunc) {
	m.handlers[pattern] = handler
}

// envelope writes an agent style enveloped response.
func envelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    "LS-OK",
		"message": "success",
		"data":    data,
	})
}

func envelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
	})
}

// runApp runs the CLI against args and captures stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	app := App()
	runErr := app.Run(append([]string{"lockscope-cli"}, args...))

	w.Close()
	os.Stdout = old

	var buf strings.Builder
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			break
		}
	}
	r.Close()

	return buf.String(), runErr
}

// emptyConfigPath returns a config path in a temp dir so tests never
// touch the real ~/.lockscope/cli.yaml.
func emptyConfigPath(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/cli.yaml"
	cfg := config.Default()
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}
