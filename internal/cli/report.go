package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReportCmd создаёт группу команд для управления reports.
func NewReportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage reports",
	}

	cmd.AddCommand(
		newReportListCmd(clientFn, outputFn),
		newReportCreateCmd(clientFn, outputFn),
		newReportShowCmd(clientFn, outputFn),
		newReportUpdateCmd(clientFn, outputFn),
		newReportDeleteCmd(clientFn, outputFn),
		newReportEnableCmd(clientFn, outputFn),
		newReportDisableCmd(clientFn, outputFn),
		newReportTriggerCmd(clientFn, outputFn),
		newReportRunsCmd(clientFn, outputFn),
	)

	return cmd
}

func newReportListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var enabledOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts := ListReportsOpts{Limit: limit}
			if enabledOnly {
				enabled := true
				opts.Enabled = &enabled
			}

			reports, err := client.ListReports(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(reports))
			for i := range reports {
				rows[i] = reportRow(&reports[i])
			}

			out.Print(reportHeaders, rows, reports)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Show only enabled reports")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of reports")

	return cmd
}

func newReportCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var query string
	var format string
	var intervalHours int
	var cronExpr string
	var timezone string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateReportRequest{
				Name:          name,
				Query:         query,
				Format:        format,
				IntervalHours: intervalHours,
				CronExpr:      cronExpr,
				Timezone:      timezone,
				Enabled:       true,
			}

			report, err := client.CreateReport(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Report created: %s", report.ID))
			out.Print(reportHeaders, [][]string{reportRow(report)}, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Report name (required)")
	cmd.Flags().StringVar(&query, "query", "", "Data selection query")
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().IntVar(&intervalHours, "interval", 0, "Interval in hours")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (e.g. '0 9 * * *')")
	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone (e.g. 'Europe/Moscow')")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newReportShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show report details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			report, err := client.GetReport(args[0])
			if err != nil {
				return err
			}

			out.Print(reportDetailHeaders, [][]string{reportDetailRow(report)}, report)
			return nil
		},
	}
}

func newReportUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var query string
	var format string
	var intervalHours int
	var cronExpr string
	var timezone string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateReportRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("query") {
				req.Query = &query
			}
			if cmd.Flags().Changed("format") {
				req.Format = &format
			}
			if cmd.Flags().Changed("interval") {
				req.IntervalHours = &intervalHours
			}
			if cmd.Flags().Changed("cron") {
				req.CronExpr = &cronExpr
			}
			if cmd.Flags().Changed("timezone") {
				req.Timezone = &timezone
			}

			report, err := client.UpdateReport(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Report updated")
			out.Print(reportHeaders, [][]string{reportRow(report)}, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New report name")
	cmd.Flags().StringVar(&query, "query", "", "New data selection query")
	cmd.Flags().StringVar(&format, "format", "", "New export format")
	cmd.Flags().IntVar(&intervalHours, "interval", 0, "New interval in hours")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "New cron expression")
	cmd.Flags().StringVar(&timezone, "timezone", "", "New timezone")

	return cmd
}

func newReportDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteReport(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Report deleted: %s", args[0]))
			return nil
		},
	}
}

func newReportEnableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a report schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.EnableReport(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Report enabled: %s", args[0]))
			return nil
		},
	}
}

func newReportDisableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a report schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.DisableReport(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Report disabled: %s", args[0]))
			return nil
		},
	}
}

func newReportTriggerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger ID",
		Short: "Trigger report generation manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			trigger, err := client.TriggerReport(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Report dispatched: %s", trigger.DispatchID))
			out.Print(
				[]string{"REPORT_ID", "DISPATCH_ID", "TRIGGER"},
				[][]string{{trigger.ReportID, trigger.DispatchID, trigger.Trigger}},
				trigger,
			)
			return nil
		},
	}
}

func newReportRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs ID",
		Short: "Show report generation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(args[0], limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i := range runs {
				rows[i] = runRow(&runs[i])
			}

			out.Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of runs")

	return cmd
}
