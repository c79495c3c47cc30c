package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewSchedulerCmd создаёт группу команд для планировщика.
func NewSchedulerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect the scheduler",
	}

	cmd.AddCommand(newSchedulerStatusCmd(clientFn, outputFn))

	return cmd
}

func newSchedulerStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler lease status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.SchedulerStatus()
			if err != nil {
				return err
			}

			expiresIn := ""
			if status.LeaderHeld {
				expiresIn = strconv.FormatInt(status.ExpiresInSec, 10) + "s"
			}

			out.Print(
				[]string{"LEADER_HELD", "HOLDER", "EXPIRES_IN", "POLL_INTERVAL"},
				[][]string{{
					strconv.FormatBool(status.LeaderHeld),
					status.Holder,
					expiresIn,
					strconv.FormatInt(status.PollIntervalSec, 10) + "s",
				}},
				status,
			)
			return nil
		},
	}
}
