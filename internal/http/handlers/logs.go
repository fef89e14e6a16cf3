package handlers

import (
	"time"

	"github.com/valyala/fasthttp"

	"medadherence/internal/adherence"
	dbpkg "medadherence/internal/db"
	"medadherence/internal/ingest"
)

// IngestLogs stores one dose log. A taken dose without taken_time is stamped with the
// current time.
func IngestLogs(store *dbpkg.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if store == nil {
			storeUnavailable(ctx)
			return
		}
		var rec ingest.LogRecord
		if !decodeBody(ctx, &rec) {
			return
		}
		ev, err := ingest.NewDose(rec, time.Now().UTC())
		if err != nil {
			errorResponse(ctx, err)
			return
		}

		var attrs map[string]any
		if rec.Notes != "" {
			attrs = map[string]any{"notes": rec.Notes}
		}
		row, err := store.InsertDose(ctx, ev, attrs)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		dosesIngestedTotal.WithLabelValues(string(ev.Status)).Inc()

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"success": true, "data": row})
	}
}

// Stats returns overall adherence over stored logs, narrowed by user_id, start, end and
// limit.
func Stats(store *dbpkg.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if store == nil {
			storeUnavailable(ctx)
			return
		}
		f, ok := filterFromQuery(ctx, 0)
		if !ok {
			return
		}
		events, err := store.ListDoses(ctx, f)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("stats").Inc()
		o := adherence.Overall(events)
		jsonResponse(ctx, map[string]any{
			"success": true,
			"data": map[string]any{
				"total":          o.TotalDoses,
				"taken":          o.Taken,
				"missed":         o.Missed,
				"adherence_rate": o.AdherenceRate,
			},
		})
	}
}
