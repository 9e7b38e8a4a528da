package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/api/validators"
	"github.com/vincentbui21/SmartJuiceSystem/internal/assignment"
	"github.com/vincentbui21/SmartJuiceSystem/internal/containers"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

type palletCreateRequest struct {
	Location string `json:"location,omitempty"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=1000"`
}

// PalletCreate registers a new floor pallet.
func PalletCreate(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		var body palletCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pallet, err := svc.CreatePallet(r.Context(), body.Location, body.Capacity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pallet)
	}
}

// PalletList returns all pallets with their boxes.
func PalletList(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		pallets, err := svc.ListPallets(r.Context(), strings.TrimSpace(r.URL.Query().Get("location")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": pallets})
	}
}

// PalletDelete removes a pallet and releases its boxes.
func PalletDelete(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		id, err := pathUUID(r, "palletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePallet(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// PalletContents lists the boxes on a pallet joined with their orders.
func PalletContents(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		id, err := pathUUID(r, "palletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Contents(r.Context(), containers.Target{Kind: enums.ContainerKindPallet, ID: id})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

type shelfCreateRequest struct {
	Label    string `json:"label" validate:"required,min=1"`
	Location string `json:"location" validate:"required,min=1"`
	Capacity int    `json:"capacity" validate:"required,gt=0,lte=1000"`
}

// ShelfCreate registers a new pickup shelf at a location.
func ShelfCreate(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		var body shelfCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shelf, err := svc.CreateShelf(r.Context(), body.Label, body.Location, body.Capacity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, shelf)
	}
}

// ShelfList returns shelves, optionally filtered by location.
func ShelfList(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		shelves, err := svc.ListShelves(r.Context(), r.URL.Query().Get("location"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": shelves})
	}
}

// ShelfLocations returns the distinct shelf locations.
func ShelfLocations(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		locations, err := svc.Locations(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": locations})
	}
}

// ShelfDelete removes a shelf and releases its boxes.
func ShelfDelete(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		id, err := pathUUID(r, "shelfId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteShelf(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// ShelfContents lists the boxes on a shelf joined with their orders.
func ShelfContents(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		id, err := pathUUID(r, "shelfId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Contents(r.Context(), containers.Target{Kind: enums.ContainerKindShelf, ID: id})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

type loadBoxesRequest struct {
	Boxes  []string `json:"boxes" validate:"omitempty,dive,required"`
	Notify bool     `json:"notify,omitempty"`
}

// ShelfLoadBoxes assigns a scanned batch of boxes onto a shelf. When notify
// is set the affected customers get their pickup SMS.
func ShelfLoadBoxes(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		id, err := pathUUID(r, "shelfId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loadBoxesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignBatch(r.Context(), assignment.AssignRequest{
			TargetKind: enums.ContainerKindShelf,
			TargetID:   id,
			BoxTokens:  body.Boxes,
			Notify:     body.Notify,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PalletLoadBoxes assigns a scanned batch of boxes onto a pallet.
func PalletLoadBoxes(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		id, err := pathUUID(r, "palletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loadBoxesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignBatch(r.Context(), assignment.AssignRequest{
			TargetKind: enums.ContainerKindPallet,
			TargetID:   id,
			BoxTokens:  body.Boxes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type palletShelveRequest struct {
	ShelfID uuid.UUID `json:"shelfId" validate:"required"`
	Notify  bool      `json:"notify,omitempty"`
}

// PalletShelve moves every box on a pallet onto a shelf in one step.
func PalletShelve(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		palletID, err := pathUUID(r, "palletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body palletShelveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignPalletToShelf(r.Context(), palletID, body.ShelfID, body.Notify)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type boxMoveRequest struct {
	Box  string `json:"box" validate:"required"`
	Kind string `json:"kind" validate:"required"`
	ID   string `json:"id" validate:"required,uuid"`
}

// BoxMove relocates a single scanned box onto a pallet or shelf.
func BoxMove(svc containers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "container service unavailable"))
			return
		}

		var body boxMoveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseContainerKind(strings.ToLower(body.Kind))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid container kind"))
			return
		}
		targetID, err := uuid.Parse(body.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid container id"))
			return
		}

		state, err := svc.MoveBox(r.Context(), body.Box, containers.Target{Kind: kind, ID: targetID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"holding": state.Holding,
			"status":  state.Status,
		})
	}
}
