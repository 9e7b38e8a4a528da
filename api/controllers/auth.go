package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/api/middleware"
	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/api/validators"
	"github.com/vincentbui21/SmartJuiceSystem/internal/staffauth"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StaffLogin wires the staff login endpoint into the HTTP layer.
func StaffLogin(svc staffauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Username, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role,omitempty"`
}

// StaffRegister creates a staff account. The router restricts it to admins.
func StaffRegister(svc staffauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.StaffRoleEmployee
		if body.Role != "" {
			parsed, err := enums.ParseStaffRole(body.Role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			role = parsed
		}

		account, err := svc.CreateAccount(r.Context(), staffauth.CreateAccountInput{
			Username: body.Username,
			Password: body.Password,
			Role:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// CurrentAccount returns the acting staff account from the request token.
func CurrentAccount(svc staffauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(r.Context())
		if accountID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}
		id, err := uuid.Parse(accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := svc.Account(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}
