package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/lockscope-go/internal/cli/config"
	"github.com/yndnr/lockscope-go/internal/cli/output"
)

// ConfigCommand returns the config command group for managing saved
// agent connections.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI configuration and saved agents",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the current CLI configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:      "add",
				Usage:     "Save an agent connection",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "addr",
						Usage:    "Agent HTTP address (host:port)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "agent-socket",
						Usage: "Agent local management socket path",
					},
				},
				Action: configAdd,
			},
			{
				Name:      "use",
				Usage:     "Set the default agent",
				ArgsUsage: "<name>",
				Action:    configUse,
			},
			{
				Name:      "remove",
				Usage:     "Remove a saved agent",
				ArgsUsage: "<name>",
				Action:    configRemove,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatTable:
		fmt.Printf("Default output: %s\n", cfg.DefaultOutput)
		fmt.Printf("Current agent:  %s\n\n", cfg.CurrentAgent)
		table := &output.Table{Headers: []string{"NAME", "ADDR", "SOCKET"}}
		for name, agent := range cfg.Agents {
			sock := agent.Socket
			if sock == "" {
				sock = "-"
			}
			table.AddRow(name, agent.Addr, sock)
		}
		return table.Render(os.Stdout)
	default:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, cfg)
	}
}

func configPath(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	fmt.Println(path)
	return nil
}

func configAdd(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("agent name required")
	}

	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	cfg.Agents[name] = config.AgentConfig{
		Addr:   c.String("addr"),
		Socket: c.String("agent-socket"),
	}
	if cfg.CurrentAgent == "" {
		cfg.CurrentAgent = name
	}

	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Printf("saved agent %q\n", name)
	return nil
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("agent name required")
	}

	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if _, ok := cfg.Agents[name]; !ok {
		return fmt.Errorf("unknown agent %q", name)
	}

	cfg.CurrentAgent = name
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Printf("default agent is now %q\n", name)
	return nil
}

func configRemove(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("agent name required")
	}

	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if _, ok := cfg.Agents[name]; !ok {
		return fmt.Errorf("unknown agent %q", name)
	}

	delete(cfg.Agents, name)
	if cfg.CurrentAgent == name {
		cfg.CurrentAgent = ""
	}

	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Printf("removed agent %q\n", name)
	return nil
}
