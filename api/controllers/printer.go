package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/api/validators"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/printer"
)

// PouchLabelPrinter is the printer surface the HTTP layer needs.
type PouchLabelPrinter interface {
	PrintPouchLabel(ctx context.Context, label printer.Label) error
	TestConnection(ctx context.Context) error
}

type printRequest struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName" validate:"required,min=1"`
	Date      string `json:"date,omitempty"`
}

// PrinterPrint sends one pouch label job to the Videojet.
func PrinterPrint(client PouchLabelPrinter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "printer unavailable"))
			return
		}

		var body printRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		label := printer.Label{FirstName: body.FirstName, LastName: body.LastName}
		if body.Date != "" {
			parsed, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date, expected YYYY-MM-DD"))
				return
			}
			label.Date = parsed
		}

		if err := client.PrintPouchLabel(r.Context(), label); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"printed": true})
	}
}

// PrinterTest exercises the printer's status port.
func PrinterTest(client PouchLabelPrinter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "printer unavailable"))
			return
		}

		if err := client.TestConnection(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"connected": true})
	}
}
