package handlers

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"medadherence/internal/adherence"
	"medadherence/internal/features"
	httpctx "medadherence/internal/http/ctx"
	"medadherence/internal/ingest"
	"medadherence/internal/logging"
	"medadherence/internal/risk"
)

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		status := ctx.Response.StatusCode()
		httpRequestsTotal.WithLabelValues(string(ctx.Method()), statusClass(status)).Inc()

		ev := logging.Info()
		if status >= fasthttp.StatusInternalServerError {
			ev = logging.Error()
		}
		if id, ok := httpctx.RequestIDFromCtx(ctx); ok {
			ev = ev.Str("request_id", id)
		}
		ev.Bytes("method", ctx.Method()).
			Bytes("path", ctx.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("ip", ctx.RemoteIP().String()).
			Msg("request")
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// errResponse writes {"success":false,"error":msg}.
func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	body, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// errorResponse maps err to 400 when the caller sent bad input and 500 otherwise.
func errorResponse(ctx *fasthttp.RequestCtx, err error) {
	if isClientError(err) {
		errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	logging.Error().Err(err).Bytes("path", ctx.Path()).Msg("request failed")
	errResponse(ctx, fasthttp.StatusInternalServerError, "internal error")
}

func isClientError(err error) bool {
	for _, target := range []error{
		adherence.ErrMissingField,
		adherence.ErrInvalidStatus,
		ingest.ErrInvalidRecord,
		ingest.ErrInvalidTime,
		features.ErrOutOfRange,
		risk.ErrFeatureContractMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decodeBody unmarshals the request body into v, answering 400 on failure.
func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		errResponse(ctx, fasthttp.StatusBadRequest, "empty request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// timeArg reads an optional timestamp query argument, answering 400 when it is present
// but unparseable.
func timeArg(ctx *fasthttp.RequestCtx, name string) (time.Time, bool) {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return time.Time{}, true
	}
	t, err := ingest.ParseTime(raw)
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid "+name+": "+err.Error())
		return time.Time{}, false
	}
	return t, true
}

func storeUnavailable(ctx *fasthttp.RequestCtx) {
	errResponse(ctx, fasthttp.StatusServiceUnavailable, "database not configured")
}
