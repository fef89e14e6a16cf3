package handlers

import (
	"errors"

	"github.com/valyala/fasthttp"

	"medadherence/internal/adherence"
	dbpkg "medadherence/internal/db"
	"medadherence/internal/ingest"
)

type logsRequest struct {
	Logs []ingest.LogRecord `json:"logs"`
}

type analyticsRequest struct {
	Logs []ingest.AnalyticsLog `json:"logs"`
}

// eventsFromBody decodes {"logs":[...]} into dose events, answering 400 on bad input.
func eventsFromBody(ctx *fasthttp.RequestCtx) ([]adherence.DoseEvent, bool) {
	var req logsRequest
	if !decodeBody(ctx, &req) {
		return nil, false
	}
	events, err := ingest.Events(req.Logs)
	if err != nil {
		errorResponse(ctx, err)
		return nil, false
	}
	return events, true
}

// Report assembles a report from the posted logs.
func Report(asm adherence.Assembler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		events, ok := eventsFromBody(ctx)
		if !ok {
			return
		}
		r, err := asm.Assemble(ctx, events)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("report").Inc()
		reportEvents.Observe(float64(len(events)))
		jsonResponse(ctx, r)
	}
}

// StoredReport assembles a report from stored logs, optionally narrowed by the user_id,
// start, end and limit query arguments.
func StoredReport(store *dbpkg.Store, asm adherence.Assembler) fasthttp.RequestHandler {
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
		r, err := asm.Assemble(ctx, events)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("report").Inc()
		reportEvents.Observe(float64(len(events)))
		jsonResponse(ctx, r)
	}
}

// PatternLimit is how many of the most recent logs Patterns looks at by default.
const PatternLimit = 100

// Patterns returns the adherence rate per weekday over the most recent stored logs.
func Patterns(store *dbpkg.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if store == nil {
			storeUnavailable(ctx)
			return
		}
		f, ok := filterFromQuery(ctx, PatternLimit)
		if !ok {
			return
		}
		events, err := store.ListDoses(ctx, f)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("patterns").Inc()
		jsonResponse(ctx, map[string]any{"success": true, "data": adherence.WeekdayPattern(events)})
	}
}

// LatestReport serves the newest snapshot written by the snapshot worker.
func LatestReport(store *dbpkg.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if store == nil {
			storeUnavailable(ctx)
			return
		}
		userID := string(ctx.QueryArgs().Peek("user_id"))
		snap, err := store.LatestSnapshot(ctx, userID)
		if errors.Is(err, dbpkg.ErrNoSnapshot) {
			errResponse(ctx, fasthttp.StatusNotFound, "no report snapshot yet")
			return
		}
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		jsonResponse(ctx, map[string]any{
			"snapshot_id": snap.ID,
			"created_at":  snap.CreatedAt,
			"user_id":     snap.UserID,
			"report":      snap.Payload,
		})
	}
}

// Analyze returns chart data for the posted logs.
func Analyze() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req analyticsRequest
		if !decodeBody(ctx, &req) {
			return
		}
		events, err := ingest.AnalyticsEvents(req.Logs)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("analytics").Inc()
		jsonResponse(ctx, adherence.Analyze(events))
	}
}

// Dashboard returns the dashboard view for the posted logs.
func Dashboard(asm adherence.Assembler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		events, ok := eventsFromBody(ctx)
		if !ok {
			return
		}
		r, err := asm.Assemble(ctx, events)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		reportsTotal.WithLabelValues("dashboard").Inc()
		jsonResponse(ctx, adherence.BuildDashboard(r, events))
	}
}

// maxListLimit caps the limit query argument.
const maxListLimit = 10000

// filterFromQuery reads user_id, start, end and limit. defaultLimit applies when limit
// is absent; zero means unbounded.
func filterFromQuery(ctx *fasthttp.RequestCtx, defaultLimit int) (dbpkg.Filter, bool) {
	limit := defaultLimit
	if ctx.QueryArgs().Has("limit") {
		n, err := ctx.QueryArgs().GetUint("limit")
		if err != nil || n == 0 || n > maxListLimit {
			errResponse(ctx, fasthttp.StatusBadRequest, "limit must be an integer between 1 and 10000")
			return dbpkg.Filter{}, false
		}
		limit = n
	}
	from, ok := timeArg(ctx, "start")
	if !ok {
		return dbpkg.Filter{}, false
	}
	to, ok := timeArg(ctx, "end")
	if !ok {
		return dbpkg.Filter{}, false
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		errResponse(ctx, fasthttp.StatusBadRequest, "end is before start")
		return dbpkg.Filter{}, false
	}
	return dbpkg.Filter{
		UserID: string(ctx.QueryArgs().Peek("user_id")),
		From:   from,
		To:     to,
		Limit:  limit,
	}, true
}
