package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Output управляет форматированием вывода CLI: таблицы reports/runs
// для людей, JSON для скриптов. Данные идут в stdout, сообщения —
// в stderr, поэтому вывод можно передавать в pipe.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
// Пустые значения (нет next_run_at, нет ошибки) заменяются прочерком,
// чтобы колонки не схлопывались.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == "" {
				cell = "-"
			}
			cells[i] = cell
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// --- Report/Run rendering ---

var reportHeaders = []string{"ID", "NAME", "FORMAT", "SCHEDULE", "ENABLED", "NEXT_RUN"}

// reportRow собирает табличную строку report для списков.
func reportRow(rep *ReportResponse) []string {
	return []string{
		rep.ID,
		rep.Name,
		rep.Format,
		formatSchedule(rep.CronExpr, rep.IntervalHours),
		strconv.FormatBool(rep.Enabled),
		rep.NextRunAt,
	}
}

var reportDetailHeaders = []string{"ID", "NAME", "FORMAT", "SCHEDULE", "TIMEZONE", "ENABLED", "NEXT_RUN", "LAST_RUN"}

// reportDetailRow собирает расширенную строку report для show.
func reportDetailRow(rep *ReportResponse) []string {
	return []string{
		rep.ID,
		rep.Name,
		rep.Format,
		formatSchedule(rep.CronExpr, rep.IntervalHours),
		rep.Timezone,
		strconv.FormatBool(rep.Enabled),
		rep.NextRunAt,
		rep.LastRunAt,
	}
}

var runHeaders = []string{"ID", "TRIGGER", "STATUS", "ROWS", "STARTED", "FINISHED", "ERROR"}

// runRow собирает табличную строку генерации из истории.
func runRow(run *RunResponse) []string {
	return []string{
		run.ID,
		run.Trigger,
		run.Status,
		strconv.Itoa(run.RowCount),
		run.StartedAt,
		run.FinishedAt,
		run.Error,
	}
}

// formatSchedule форматирует расписание отчёта: cron-выражение имеет
// приоритет над интервалом, интервал показывается как "Nh".
func formatSchedule(cronExpr string, intervalHours int) string {
	if cronExpr != "" {
		return cronExpr
	}
	if intervalHours > 0 {
		return strconv.Itoa(intervalHours) + "h"
	}
	return ""
}
