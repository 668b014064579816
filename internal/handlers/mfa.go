package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// MFAServiceInterface defines the TOTP enrollment operations
type MFAServiceInterface interface {
	Status(ctx context.Context, userID int64) (*models.MFAStatus, error)
	BeginEnrollment(ctx context.Context, userID int64) (*models.MFASetupResponse, error)
	ConfirmEnrollment(ctx context.Context, userID int64, code string) (*models.MFAConfirmResponse, error)
	Disable(ctx context.Context, userID int64, code string) error
	RegenerateRecoveryCodes(ctx context.Context, userID int64, code string) ([]string, error)
}

// MFAHandler handles MFA-related HTTP requests
type MFAHandler struct {
	mfaService MFAServiceInterface
	logger     *slog.Logger
}

// NewMFAHandler creates a new MFA handler
func NewMFAHandler(mfaService MFAServiceInterface, logger *slog.Logger) *MFAHandler {
	return &MFAHandler{
		mfaService: mfaService,
		logger:     logger,
	}
}

// Status handles GET /mfa/status
func (h *MFAHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	status, err := h.mfaService.Status(r.Context(), user.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// Enable handles POST /mfa/enable. It provisions a pending secret and returns
// the otpauth URI and QR code; MFA is not active until Confirm succeeds.
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	setup, err := h.mfaService.BeginEnrollment(r.Context(), user.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, setup)
}

// Confirm handles POST /mfa/confirm
func (h *MFAHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ConfirmMFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.mfaService.ConfirmEnrollment(r.Context(), user.UserID, req.Code)
	if err != nil {
		h.logger.Warn("MFA confirmation failed", slog.Int64("user_id", user.UserID), slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Disable handles POST /mfa/disable
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req MFACodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.mfaService.Disable(r.Context(), user.UserID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DisableMFAResponse{
		MFAEnabled: false,
		Message:    "MFA has been disabled",
	})
}

// RegenerateRecoveryCodes handles POST /mfa/recovery-codes
func (h *MFAHandler) RegenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req MFACodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	codes, err := h.mfaService.RegenerateRecoveryCodes(r.Context(), user.UserID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RecoveryCodesResponse{RecoveryCodes: codes})
}
