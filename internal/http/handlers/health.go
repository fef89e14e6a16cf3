package handlers

import (
	"github.com/valyala/fasthttp"

	"medadherence/internal/risk"
)

// Healthz is the liveness probe.
func Healthz(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("ok")
}

// Health reports whether a model is loaded and which one.
func Health(scorer *risk.Scorer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		body := map[string]any{
			"status":       "OK",
			"model_loaded": scorer != nil,
		}
		if scorer != nil {
			switch m := scorer.Model().(type) {
			case *risk.LogisticModel:
				body["model_version"] = m.Version
			case *risk.ForestModel:
				body["model_version"] = m.Version
			}
		}
		jsonResponse(ctx, body)
	}
}
