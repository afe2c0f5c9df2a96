package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
	"github.com/mmeshcher/marketplace-system/internal/token"
)

// Виды ошибок, отдаваемые клиенту в поле error.kind.
const (
	kindValidation = "validation_error"
	kindAuth       = "auth_error"
	kindPermission = "permission_error"
	kindNotFound   = "not_found"
	kindConflict   = "conflict"
	kindState      = "state_error"
	kindInternal   = "internal_error"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// handleError переводит ошибки бизнес-логики и хранилища в HTTP-ответы
// согласно таксономии ошибок. Неожиданные ошибки логируются и отдаются
// клиенту обезличенным ответом 500.
func (h *Handler) handleError(w http.ResponseWriter, err error, action string, fields ...zap.Field) {
	switch {
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrInvalidTierSet),
		errors.Is(err, service.ErrInvalidTierValues),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrNotBusinessUser):
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, kindAuth, err.Error())

	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, kindPermission, err.Error())

	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrOfferNotFound),
		errors.Is(err, repository.ErrTierNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, err.Error())

	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrReviewExists):
		writeError(w, http.StatusConflict, kindConflict, err.Error())

	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, kindState, err.Error())

	default:
		h.logger.Error(action, append(fields, zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, kindInternal, "internal server error")
	}
}
