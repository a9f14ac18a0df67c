package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/lockscope-go/internal/cli/connection"
	"github.com/yndnr/lockscope-go/internal/cli/output"
)

// lockRow mirrors one entry of the admin locks payload.
type lockRow struct {
	LockAddress   uint64 `json:"lock_address"`
	ClassName     string `json:"class_name"`
	Kind          string `json:"kind"`
	WaitCount     int64  `json:"wait_count"`
	TotalWaitNano int64  `json:"total_wait_nanos"`
	MaxWaitNanos  int64  `json:"max_wait_nanos"`
	LastWakeNanos int64  `json:"last_wake_nanos" table:"wide"`
}

type lockList struct {
	Items []lockRow `json:"items"`
	Total int       `json:"total"`
}

// LocksCommand returns the locks command.
func LocksCommand() *cli.Command {
	return &cli.Command{
		Name:  "locks",
		Usage: "List the most contended locks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Number of locks to show, ordered by total wait time",
				Value:   20,
			},
		},
		Action: locksList,
	}
}

func locksList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, fmt.Sprintf("/admin/v1/locks?top=%d", c.Int("top")))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var list lockList
	if err := connection.ParseResponse(resp, &list); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if err := formatter.Format(os.Stdout, list.Items); err != nil {
		return err
	}

	if output.Format(flags.Output) == output.FormatTable && flags.Verbose {
		fmt.Printf("\n%d of %d tracked locks\n", len(list.Items), list.Total)
	}
	return nil
}
