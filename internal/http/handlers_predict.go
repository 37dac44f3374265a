package http

import (
	"html/template"
	"net/http"

	"stima/internal/estimator"
	applog "stima/internal/log"
)

type predictionJSON struct {
	Estimate    float64 `json:"estimate"`
	EstimateUSD float64 `json:"estimate_usd"`
}

// handlePredict reads one value per model feature from a form or JSON body
// and answers with the forest estimate.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	parser := NewRequestBodyParser(w, r)
	if resp := parser.ParseOrFail(); resp != nil {
		s.logger.WarnContext(ctx, "Parse predict body error", "error", parser.Parse())
		resp.Write(w)
		return
	}
	asJSON := WantsJSON(r, parser)

	names := s.estimator.FeatureNames()
	raw := make(map[string]string, len(names))
	for _, name := range names {
		raw[name] = parser.Get(name)
	}

	row, err := estimator.ParseFeatures(raw)
	if err == nil {
		var estimate float64
		estimate, err = s.estimator.Predict(row)
		if err == nil {
			s.appMetrics.predictions.Add(1)
			s.structured.LogPrediction(ctx, estimate, len(row))
			s.writeEstimate(w, estimate, asJSON)
			return
		}
	}

	s.appMetrics.predictionErrors.Add(1)
	s.structured.LogError(ctx, "Prediction failed", err, applog.OpPredict, nil)
	errorResponse(err, asJSON).Write(w)
}

func (s *Server) writeEstimate(w http.ResponseWriter, estimate float64, asJSON bool) {
	if asJSON {
		NewHTMXResponse().JSON(predictionJSON{
			Estimate:    estimate,
			EstimateUSD: estimate * estimateUnit,
		}).Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(`<div class="success estimate">Estimated median house value: <strong>` +
		template.HTMLEscapeString(formatUSD(estimate)) + `</strong></div>`).Write(w)
}
