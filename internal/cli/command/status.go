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

// agentStatus mirrors the admin status payload.
type agentStatus struct {
	HeldLocks        int   `json:"held_locks"`
	PendingWaits     int   `json:"pending_waits"`
	ContendedLocks   int   `json:"contended_locks"`
	TrackedLocks     int   `json:"tracked_locks"`
	StoredRecords    int   `json:"stored_records"`
	MinDurationNanos int64 `json:"min_duration_nanos"`
	UptimeSeconds    int64 `json:"uptime_seconds"`
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show agent status summary",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check agent liveness",
				Action: statusHealth,
			},
		},
		Action: statusShow,
	}
}

func statusShow(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var status agentStatus
	if err := connection.ParseResponse(resp, &status); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatTable:
		fmt.Printf("Agent Status\n")
		fmt.Printf("============\n\n")
		fmt.Printf("Target:          %s\n", client.BaseURL())
		fmt.Printf("Uptime:          %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
		fmt.Printf("Held locks:      %d\n", status.HeldLocks)
		fmt.Printf("Pending waits:   %d\n", status.PendingWaits)
		fmt.Printf("Contended locks: %d\n", status.ContendedLocks)
		fmt.Printf("Tracked locks:   %d\n", status.TrackedLocks)
		fmt.Printf("Stored records:  %d\n", status.StoredRecords)
		fmt.Printf("Min duration:    %s\n", time.Duration(status.MinDurationNanos).String())
		return nil
	default:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, status)
	}
}

func statusHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		PrintError("health check failed: %v", err)
		return fmt.Errorf("agent unreachable")
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatTable:
		if result.Status == "healthy" {
			fmt.Printf("agent is healthy (%s)\n", client.BaseURL())
		} else {
			fmt.Printf("agent is unhealthy: %s\n", result.Status)
		}
		return nil
	default:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result)
	}
}
