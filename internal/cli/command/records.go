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

// recordRow mirrors one entry of the admin records payload.
type recordRow struct {
	ID             string `json:"id" table:"wide"`
	WrittenAt      int64  `json:"written_at"`
	LockAddress    uint64 `json:"lock_address"`
	Kind           string `json:"kind"`
	ClassName      string `json:"class_name"`
	ThreadID       int32  `json:"thread_id"`
	ThreadName     string `json:"thread_name"`
	HolderThreadID int32  `json:"holder_thread_id"`
	WaitNanos      int64  `json:"wait_nanos"`
}

type recordList struct {
	Items []recordRow `json:"items"`
	Total int         `json:"total"`
}

// RecordsCommand returns the records command.
func RecordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "List recently persisted contention records",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of records to show, newest first",
				Value:   20,
			},
		},
		Action: recordsList,
	}
}

func recordsList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, fmt.Sprintf("/admin/v1/records?limit=%d", c.Int("limit")))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var list recordList
	if err := connection.ParseResponse(resp, &list); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if err := formatter.Format(os.Stdout, list.Items); err != nil {
		return err
	}

	if output.Format(flags.Output) == output.FormatTable && flags.Verbose {
		fmt.Printf("\n%d of %d stored records\n", len(list.Items), list.Total)
	}
	return nil
}
