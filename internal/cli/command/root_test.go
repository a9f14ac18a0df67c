package command

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/lockscope-go/internal/cli/config"
)

func TestApp(t *testing.T) {
	app := App()
	if app == nil {
		t.Fatal("App() returned nil")
	}

	if app.Name != "lockscope-cli" {
		t.Errorf("Name = %q, want lockscope-cli", app.Name)
	}
	if app.Usage == "" {
		t.Error("Usage should not be empty")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}

	requiredCommands := []string{"status", "locks", "records", "reset", "local", "config"}
	for _, name := range requiredCommands {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}
}

func TestAppGlobalFlags(t *testing.T) {
	app := App()

	flagNames := make(map[string]bool)
	for _, f := range app.Flags {
		flagNames[f.Names()[0]] = true
	}

	requiredFlags := []string{"agent", "socket", "config", "output", "wide", "verbose"}
	for _, name := range requiredFlags {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

func newTestContext(t *testing.T, cfg *config.CLIConfig, args map[string]string) *cli.Context {
	t.Helper()

	app := App()
	app.Metadata = map[string]any{"config": cfg}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("agent", "", "")
	set.String("socket", "", "")
	set.String("output", "", "")
	for name, value := range args {
		if err := set.Set(name, value); err != nil {
			t.Fatalf("set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(app, set, nil)
}

func TestEnsureConnectedResolvesSavedAgent(t *testing.T) {
	cfg := config.Default()
	cfg.Agents["prod"] = config.AgentConfig{Addr: "10.9.8.7:5090"}

	c := newTestContext(t, cfg, map[string]string{"agent": "prod"})
	client, err := EnsureConnected(c)
	if err != nil {
		t.Fatalf("EnsureConnected: %v", err)
	}
	if client.BaseURL() != "http://10.9.8.7:5090" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
}

func TestEnsureConnectedLiteralAddress(t *testing.T) {
	c := newTestContext(t, config.Default(), map[string]string{"agent": "192.168.0.2:6000"})
	client, err := EnsureConnected(c)
	if err != nil {
		t.Fatalf("EnsureConnected: %v", err)
	}
	if client.BaseURL() != "http://192.168.0.2:6000" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
}

func TestEnsureConnectedFallsBackToCurrent(t *testing.T) {
	c := newTestContext(t, config.Default(), nil)
	client, err := EnsureConnected(c)
	if err != nil {
		t.Fatalf("EnsureConnected: %v", err)
	}
	if client.BaseURL() != "http://127.0.0.1:5090" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
}

func TestResolveSocketFlagWins(t *testing.T) {
	c := newTestContext(t, config.Default(), map[string]string{"socket": "/tmp/x.sock"})
	sock, err := ResolveSocket(c)
	if err != nil {
		t.Fatalf("ResolveSocket: %v", err)
	}
	if sock != "/tmp/x.sock" {
		t.Errorf("socket = %q", sock)
	}
}

func TestResolveSocketFromConfig(t *testing.T) {
	c := newTestContext(t, config.Default(), nil)
	sock, err := ResolveSocket(c)
	if err != nil {
		t.Fatalf("ResolveSocket: %v", err)
	}
	if sock != "/var/run/lockscope-agent/lockscope-agent.sock" {
		t.Errorf("socket = %q", sock)
	}
}

func TestParseGlobalFlagsOutputDefault(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultOutput = "yaml"
	c := newTestContext(t, cfg, nil)

	flags := ParseGlobalFlags(c)
	if flags.Output != "yaml" {
		t.Errorf("Output = %q, want yaml from config", flags.Output)
	}
}
