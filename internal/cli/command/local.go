package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/lockscope-go/internal/cli/connection"
	"github.com/yndnr/lockscope-go/internal/cli/output"
)

// LocalCommand returns the local command group, which talks to the
// agent over its Unix management socket instead of HTTP.
func LocalCommand() *cli.Command {
	return &cli.Command{
		Name:  "local",
		Usage: "Manage the agent over its local Unix socket",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show agent status",
				Action: localSimple("status"),
			},
			{
				Name:   "reset",
				Usage:  "Clear all tracked lock state",
				Action: localSimple("reset"),
			},
			{
				Name:   "reload",
				Usage:  "Reload the agent configuration file",
				Action: localSimple("reload"),
			},
			{
				Name:      "min-duration",
				Usage:     "Show or set the reporting threshold, e.g. 25ms",
				ArgsUsage: "[duration]",
				Action:    localMinDuration,
			},
			{
				Name:   "shutdown",
				Usage:  "Gracefully stop the agent",
				Action: localSimple("shutdown"),
			},
		},
	}
}

func localSimple(cmd string) cli.ActionFunc {
	return func(c *cli.Context) error {
		return runLocal(c, cmd)
	}
}

func localMinDuration(c *cli.Context) error {
	cmd := "min-duration"
	if c.Args().Len() > 0 {
		cmd += " " + c.Args().First()
	}
	return runLocal(c, cmd)
}

func runLocal(c *cli.Context, cmd string) error {
	sock, err := ResolveSocket(c)
	if err != nil {
		return err
	}

	client := connection.NewSocketClient(sock)
	defer client.Close()

	res, err := client.Execute(cmd)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s failed: %s", res.Command, res.Error)
	}

	if len(res.Data) == 0 {
		fmt.Printf("%s: ok\n", res.Command)
		return nil
	}

	var data any
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}

	flags := ParseGlobalFlags(c)
	if s, ok := data.(string); ok && output.Format(flags.Output) == output.FormatTable {
		fmt.Println(s)
		return nil
	}

	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, data)
}
