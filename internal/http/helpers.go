package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"stima/internal/core"
)

// estimateUnit is the dataset's target unit, in USD.
const estimateUnit = 100000

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// apiError is the JSON error body.
type apiError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
	Input   string `json:"input,omitempty"`
}

// classifyError maps an error kind to its status code and a message safe to
// show users. Persistence details stay in the logs.
func classifyError(err error) (int, apiError) {
	kind, ok := core.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, apiError{Kind: "internal", Message: "Internal error"}
	}
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity, apiError{
			Kind:    string(kind),
			Message: "Invalid data: " + causeOf(err),
			Input:   core.InputOf(err),
		}
	case core.KindPrediction:
		return http.StatusUnprocessableEntity, apiError{
			Kind:    string(kind),
			Message: "Invalid prediction input: " + causeOf(err),
			Input:   core.InputOf(err),
		}
	case core.KindModelLoad:
		return http.StatusServiceUnavailable, apiError{
			Kind:    string(kind),
			Message: "Prediction model unavailable",
		}
	default:
		return http.StatusInternalServerError, apiError{
			Kind:    string(kind),
			Message: "Error accessing stored data, please try again",
		}
	}
}

func causeOf(err error) string {
	var e *core.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

// errorResponse renders err as JSON or as an htmx error fragment.
func errorResponse(err error, asJSON bool) *HTMXResponseBuilder {
	status, body := classifyError(err)
	if asJSON {
		return NewHTMXResponse().Status(status).JSON(body)
	}
	msg := body.Message
	if body.Input != "" {
		msg += " (input: " + body.Input + ")"
	}
	var resp *HTMXResponseBuilder
	switch status {
	case http.StatusUnprocessableEntity:
		resp = UnprocessableEntityError(msg)
	case http.StatusServiceUnavailable:
		resp = ServiceUnavailableError(msg)
	default:
		resp = InternalServerError(msg)
	}
	return resp.TriggerErrorNotification(body.Message)
}

// formatValue prints v with two decimals.
func formatValue(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// formatUSD converts an estimate in dataset units to whole dollars with
// thousands separators, e.g. 2.5 -> "$250,000".
func formatUSD(estimate float64) string {
	d := decimal.NewFromFloat(estimate).Mul(decimal.NewFromInt(estimateUnit)).Round(0)
	neg := d.IsNegative()
	digits := d.Abs().String()

	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// parseValue parses a non-empty numeric form value.
func parseValue(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("value is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("value must be a number")
	}
	return v, nil
}
