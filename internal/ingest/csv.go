package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"medadherence/internal/adherence"
)

// Result summarises one ingestion run. Errors are rows that were dropped; Warnings are
// rows kept with a degraded field (for example an unparseable timestamp).
type Result struct {
	Total    int      `json:"total"`
	Loaded   int      `json:"loaded"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// CSV columns. day_of_week and hour_of_day are optional overrides.
const (
	colUserID        = "user_id"
	colMedicationID  = "medication_id"
	colScheduledTime = "scheduled_time"
	colTakenTime     = "taken_time"
	colStatus        = "status"
	colDayOfWeek     = "day_of_week"
	colHourOfDay     = "hour_of_day"
)

var requiredColumns = []string{colUserID, colMedicationID, colScheduledTime, colStatus}

// ReadCSV reads a dose log export with a header row. A missing required column fails the
// whole read with adherence.ErrMissingField; bad rows, including taken doses without a
// usable taken_time, are skipped and reported in the Result.
func ReadCSV(r io.Reader) ([]adherence.DoseEvent, *Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &Result{}

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, result, nil
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, nil, fmt.Errorf("%w: csv column %s", adherence.ErrMissingField, col)
		}
	}

	var events []adherence.DoseEvent
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.Total++
		line := result.Total + 1
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		ev, warnings, err := parseRecord(record, headerMap)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: %s", line, w))
		}
		events = append(events, ev)
		result.Loaded++
	}
	return events, result, nil
}

func parseRecord(record []string, headerMap map[string]int) (adherence.DoseEvent, []string, error) {
	get := func(col string) string {
		if idx, ok := headerMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	status, err := adherence.ParseStatus(strings.ToLower(get(colStatus)))
	if err != nil {
		return adherence.DoseEvent{}, nil, err
	}

	var warnings []string
	ev := adherence.DoseEvent{
		UserID:       get(colUserID),
		MedicationID: get(colMedicationID),
		Status:       status,
	}

	// An unparseable scheduled time keeps the row for overall, user and medication
	// stats; it just has no clock position.
	if ts, err := ParseTime(get(colScheduledTime)); err == nil {
		ev.ScheduledTime = ts
	} else {
		warnings = append(warnings, "scheduled_time: "+err.Error())
	}

	if raw := get(colTakenTime); raw != "" {
		if ts, err := ParseTime(raw); err == nil {
			ev.TakenTime = &ts
		} else {
			warnings = append(warnings, "taken_time: "+err.Error())
		}
	}

	dropped, err := checkDose(&ev)
	if err != nil {
		return adherence.DoseEvent{}, nil, err
	}
	if dropped {
		warnings = append(warnings, "taken_time: ignored for missed dose")
	}

	if v, ok, err := optionalInt(get(colHourOfDay), 0, 23); err != nil {
		warnings = append(warnings, "hour_of_day: "+err.Error())
	} else if ok {
		ev.Hour = &v
	}
	if v, ok, err := optionalInt(get(colDayOfWeek), 0, 6); err != nil {
		warnings = append(warnings, "day_of_week: "+err.Error())
	} else if ok {
		ev.Day = &v
	}

	return ev, warnings, nil
}

func optionalInt(s string, lo, hi int) (int, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	// Exports written through a dataframe can carry integral floats ("3.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false, fmt.Errorf("not an integer: %s", s)
	}
	v := int(f)
	if v < lo || v > hi {
		return 0, false, fmt.Errorf("%d outside [%d,%d]", v, lo, hi)
	}
	return v, true, nil
}
