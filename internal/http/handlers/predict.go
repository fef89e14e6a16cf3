package handlers

import (
	"github.com/valyala/fasthttp"

	"medadherence/internal/features"
	"medadherence/internal/risk"
)

type suggestRequest struct {
	NumDailyMeds      *int     `json:"num_daily_meds"`
	PastAdherenceRate *float64 `json:"past_adherence_rate"`
}

// Predict scores one dose context. A nil scorer means the model failed to load.
func Predict(scorer *risk.Scorer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if scorer == nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "Model not loaded")
			return
		}
		var raw features.Raw
		if !decodeBody(ctx, &raw) {
			return
		}
		res, err := scorer.Predict(raw)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		predictionsTotal.WithLabelValues(string(res.RiskLevel)).Inc()
		adherenceProbability.Observe(res.AdherenceProbability)
		jsonResponse(ctx, map[string]any{"success": true, "prediction": res})
	}
}

// SuggestTimes returns the three best reminder hours.
func SuggestTimes(scorer *risk.Scorer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if scorer == nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "Model not loaded")
			return
		}
		var req suggestRequest
		if !decodeBody(ctx, &req) {
			return
		}
		meds := features.DefaultNumDailyMeds
		if req.NumDailyMeds != nil {
			meds = *req.NumDailyMeds
		}
		rate := features.DefaultPastAdherenceRate
		if req.PastAdherenceRate != nil {
			rate = *req.PastAdherenceRate
		}
		suggestions, err := scorer.Suggest(meds, rate)
		if err != nil {
			errorResponse(ctx, err)
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "suggested_times": suggestions})
	}
}
