package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/lockscope-go/internal/cli/config"
	"github.com/yndnr/lockscope-go/internal/cli/connection"
	"github.com/yndnr/lockscope-go/internal/infra/buildinfo"
	"github.com/yndnr/lockscope-go/internal/infra/tlsroots"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "lockscope-cli",
		Usage:   "LockScope agent command-line management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StatusCommand(),
			LocksCommand(),
			RecordsCommand(),
			ResetCommand(),
			LocalCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata["config"] = cfg
			return nil
		},
	}

	return app
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "agent",
			Aliases: []string{"a"},
			Usage:   "Agent address (host:port) or a saved agent name",
			EnvVars: []string{"LOCKSCOPE_AGENT"},
		},
		&cli.StringFlag{
			Name:    "socket",
			Usage:   "Agent local management socket path",
			EnvVars: []string{"LOCKSCOPE_SOCKET"},
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file path (default ~/.lockscope/cli.yaml)",
		},
		&cli.StringFlag{
			Name:  "ca-cert",
			Usage: "PEM file with extra CA certificates for HTTPS agents",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags carries resolved global flag values.
type GlobalFlags struct {
	Agent   string
	Socket  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context, filling
// defaults from the loaded CLI config.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	flags := &GlobalFlags{
		Agent:   c.String("agent"),
		Socket:  c.String("socket"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
	if cfg := GetConfig(c); cfg != nil && flags.Output == "" {
		flags.Output = cfg.DefaultOutput
	}
	if flags.Output == "" {
		flags.Output = "table"
	}
	return flags
}

// GetConfig retrieves the loaded CLI config from app metadata.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata["config"].(*config.CLIConfig); ok {
		return cfg
	}
	return nil
}

// EnsureConnected resolves the target agent and returns an HTTP
// client for it. The --agent flag may be an address or the name of a
// saved agent from the CLI config.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	cfg := GetConfig(c)

	target := flags.Agent
	if target != "" && !strings.Contains(target, ":") && cfg != nil {
		if agent, ok := cfg.Resolve(target); ok {
			target = agent.Addr
		}
	}
	if target == "" && cfg != nil {
		if agent, ok := cfg.Resolve(""); ok {
			target = agent.Addr
		}
	}
	if target == "" {
		return nil, fmt.Errorf("no agent configured, use --agent or save one with config use")
	}

	var opts []connection.ClientOption
	if caCert := c.String("ca-cert"); caCert != "" {
		pool, err := tlsroots.NewPool()
		if err != nil {
			return nil, fmt.Errorf("load system roots: %w", err)
		}
		if err := pool.AddCertFile(caCert); err != nil {
			return nil, err
		}
		opts = append(opts, connection.WithTLSConfig(pool.TLSConfig()))
	}

	return connection.NewHTTPClient(target, opts...), nil
}

// ResolveSocket resolves the local management socket path from flags
// or the saved agent config.
func ResolveSocket(c *cli.Context) (string, error) {
	flags := ParseGlobalFlags(c)
	if flags.Socket != "" {
		return flags.Socket, nil
	}
	if cfg := GetConfig(c); cfg != nil {
		if agent, ok := cfg.Resolve(flags.Agent); ok && agent.Socket != "" {
			return agent.Socket, nil
		}
	}
	return "", fmt.Errorf("no socket path configured, use --socket")
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
