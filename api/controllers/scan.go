package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/api/validators"
	"github.com/vincentbui21/SmartJuiceSystem/internal/orders"
	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

// BoxScanInfo resolves a scanned box label to its order, customer and the
// rest of the order's boxes.
func BoxScanInfo(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		result, err := svc.ScanInfo(r.Context(), chi.URLParam(r, "boxId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type scanClassifyRequest struct {
	Token             string `json:"token" validate:"required"`
	PalletEstablished bool   `json:"palletEstablished"`
}

type scanClassifyResponse struct {
	Class       token.Class    `json:"class"`
	ContainerID string         `json:"containerId,omitempty"`
	Box         *scanBoxDetail `json:"box,omitempty"`
}

type scanBoxDetail struct {
	OrderID   string `json:"orderId"`
	Sequence  int    `json:"sequence"`
	Canonical string `json:"canonical"`
}

// ScanClassify tells the scanner UI what a raw read refers to: a shelf, a
// pallet, a box or nothing it knows.
func ScanClassify(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body scanClassifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scan := token.Classify(body.Token, body.PalletEstablished)
		resp := scanClassifyResponse{Class: scan.Class}
		switch scan.Class {
		case token.ClassPallet, token.ClassShelf:
			resp.ContainerID = scan.ContainerID.String()
		case token.ClassBox:
			resp.Box = &scanBoxDetail{
				OrderID:   scan.Box.OrderID.String(),
				Sequence:  scan.Box.Ordinal,
				Canonical: scan.Canonical,
			}
		}

		responses.WriteSuccess(w, resp)
	}
}
