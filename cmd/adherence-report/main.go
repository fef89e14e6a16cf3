// Command adherence-report prints an adherence report for a CSV export of dose logs and
// optionally writes the same report as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"medadherence/internal/adherence"
	"medadherence/internal/ingest"
	"medadherence/internal/logging"
)

func main() {
	_ = godotenv.Load()

	inputPath := flag.String("input", "adherence_logs.csv", "CSV file of dose logs")
	jsonOut := flag.String("json", "", "optional path to write the report as JSON")
	trendWindow := flag.Int("trend-window", adherence.DefaultTrendWindow, "number of weeks in the weekly trend")
	trendMode := flag.String("trend-mode", string(adherence.WindowInsertionOrder), "weekly trend selection: insertion or chronological")
	topUsers := flag.Int("top-users", adherence.ReportTopUsers, "number of users in the ranking")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: "console", Output: os.Stderr})

	events, err := readEvents(*inputPath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", *inputPath).Msg("failed to read dose logs")
	}

	asm := adherence.Assembler{
		TopUsers:    *topUsers,
		TrendWindow: *trendWindow,
		TrendMode:   adherence.ParseWindowMode(*trendMode),
	}
	report, err := asm.Assemble(context.Background(), events)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build report")
	}

	printReport(os.Stdout, report)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, report); err != nil {
			logging.Fatal().Err(err).Str("path", *jsonOut).Msg("failed to write report")
		}
		fmt.Printf("Report exported to %s\n", *jsonOut)
	}
}

func readEvents(path string) ([]adherence.DoseEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, res, err := ingest.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logging.Warn().Msg(w)
	}
	for _, e := range res.Errors {
		logging.Error().Msg(e)
	}
	logging.Info().Int("total", res.Total).Int("loaded", res.Loaded).Int("failed", res.Failed).Msg("dose logs loaded")
	return events, nil
}

func writeJSON(path string, report *adherence.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printReport(w io.Writer, r *adherence.Report) {
	rule := strings.Repeat("=", 60)
	section := func(title string) {
		fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", 40))
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "MEDICATION ADHERENCE ANALYSIS REPORT")
	fmt.Fprintln(w, rule)

	section("1. OVERALL ADHERENCE")
	o := r.OverallAdherence
	fmt.Fprintf(w, "Total Doses: %d\n", o.TotalDoses)
	fmt.Fprintf(w, "Taken: %d\n", o.Taken)
	fmt.Fprintf(w, "Missed: %d\n", o.Missed)
	fmt.Fprintf(w, "Adherence Rate: %v%%\n", o.AdherenceRate)

	section("2. ADHERENCE BY TIME OF DAY")
	for _, g := range r.ByTimeOfDay {
		fmt.Fprintf(w, "%s: %v%% (%d/%d)\n", g.Key, g.Rate, g.Taken, g.Total)
	}

	section("3. ADHERENCE BY DAY OF WEEK")
	for _, g := range r.ByDayOfWeek {
		fmt.Fprintf(w, "%s: %v%% (%d/%d)\n", g.Key, g.Rate, g.Taken, g.Total)
	}

	section("4. TOP PERFORMING USERS")
	for i, u := range r.TopUsers {
		fmt.Fprintf(w, "%d. %s: %v%%\n", i+1, u.UserID, u.AdherenceRate)
	}

	section("5. MEDICATION COMPARISON")
	for _, m := range r.MedicationComparison {
		fmt.Fprintf(w, "%s: %v%%\n", m.MedicationID, m.AdherenceRate)
	}

	section("6. WEEKLY TRENDS")
	for _, wk := range r.WeeklyTrends {
		fmt.Fprintf(w, "Week %d: %v%%\n", wk.Week, wk.Rate)
	}

	fmt.Fprintf(w, "\n%s\n", rule)
}
