// Metronome CLI — инструмент командной строки для управления
// reports и наблюдения за планировщиком через HTTP API.
//
// Использование:
//
//	metronome [--api-url URL] [--user ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	report     Управление reports
//	scheduler  Состояние планировщика
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Metronome/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var userID string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "metronome",
		Short:         "Metronome CLI — recurring report scheduler tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "Owner ID sent as X-User-ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, userID) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewReportCmd(clientFn, outputFn),
		cli.NewSchedulerCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
