package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/internal/repository"
	"github.com/vaidashi/order-admin/internal/service"
	apperrors "github.com/vaidashi/order-admin/pkg/errors"
)

const msgSaveFailed = "Failed to save setting"

// SettingResponse is returned for a settings read. Found is false when the
// key was never saved.
type SettingResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Found       bool   `json:"found"`
	Description string `json:"description,omitempty"`
}

// SaveSettingRequest is the body of a settings write
type SaveSettingRequest struct {
	Value *string `json:"value"`
}

func (s *Server) getSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if err := service.ValidateKey(key); err != nil {
		s.respondWithAppError(w, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	value, found := s.settings.Load(r.Context(), key)

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: SettingResponse{
			Key:         key,
			Value:       value,
			Found:       found,
			Description: models.DescriptionFor(key),
		},
	})
}

func (s *Server) saveSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req SaveSettingRequest
	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := decoder.Decode(&req); err != nil || req.Value == nil {
		s.respondWithAppError(w, apperrors.NewInvalidInputError("Invalid request payload"))
		return
	}

	if err := s.settings.Save(r.Context(), key, *req.Value); err != nil {
		if errors.Is(err, service.ErrInvalidSettingKey) {
			s.respondWithAppError(w, apperrors.NewInvalidInputError(err.Error()))
			return
		}

		if errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("Setting save conflicted, admin may resubmit", "key", key, "error", err)
			s.respondWithAppError(w, apperrors.NewConflictError(msgSaveFailed).WithContext("key", key).Wrap(err))
			return
		}

		s.logger.Error("Failed to save setting", "key", key, "error", err)
		s.respondWithAppError(w, apperrors.NewInternalError(msgSaveFailed).WithContext("key", key))
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: SettingResponse{
			Key:         key,
			Value:       *req.Value,
			Found:       true,
			Description: models.DescriptionFor(key),
		},
	})
}
