package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"stima/internal/core"
	applog "stima/internal/log"
)

// handleCreateObservation validates and stores one observation. On success
// htmx clients receive observation:created, report:refresh, form:reset and a
// notification.
func (s *Server) handleCreateObservation(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	parser := NewRequestBodyParser(w, r)
	if resp := parser.ParseOrFail(); resp != nil {
		s.logger.WarnContext(ctx, "Parse observation body error", "error", parser.Parse())
		resp.Write(w)
		return
	}
	asJSON := WantsJSON(r, parser)

	in, err := observationFromRequest(parser)
	var o core.Observation
	if err == nil {
		o, err = s.store.Append(ctx, in)
	}
	if err != nil {
		if kind, _ := core.KindOf(err); kind == core.KindValidation {
			s.logger.WarnContext(ctx, "Rejected observation", "error", err)
		} else {
			s.structured.LogError(ctx, "Failed to save observation", err, applog.OpCreate,
				applog.NewFields().WithObservation(in))
		}
		errorResponse(err, asJSON).Write(w)
		return
	}

	s.reports.Invalidate()
	s.appMetrics.observationsCreated.Add(1)
	s.structured.LogObservationCreated(ctx, o)

	if asJSON {
		NewHTMXResponse().Status(http.StatusCreated).JSON(toJSON(o)).Write(w)
		return
	}
	msg := fmt.Sprintf("Data added successfully (#%d): %s %s on %s", o.ID, o.Category, formatValue(o.Value), o.Date)
	NewHTMXResponse().
		TriggerObservationCreated(o.ID).
		TriggerReportRefresh().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// observationFromRequest builds an observation from the date, value,
// category and notes fields. Parse failures are validation errors.
func observationFromRequest(p *RequestBodyParser) (core.Observation, error) {
	dateStr := p.Get("date")
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Observation{}, core.NewError(core.KindValidation, "parse observation", dateStr,
			errors.New("date must be YYYY-MM-DD"))
	}

	valueStr := p.Get("value")
	value, err := parseValue(valueStr)
	if err != nil {
		return core.Observation{}, core.NewError(core.KindValidation, "parse observation", valueStr, err)
	}

	return core.Observation{
		Date:     date,
		Value:    value,
		Category: core.Category(p.Get("category")),
		Notes:    p.Get("notes"),
	}, nil
}
