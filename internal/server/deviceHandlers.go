package server

import (
	"encoding/json"
	"net/http"

	"marketnotify/internal/database"
	"marketnotify/internal/model"

	"github.com/pkg/errors"
)

func (s Server) deviceRegister() http.HandlerFunc {
	type request struct {
		DeviceToken string `json:"device_token"`
		Platform    string `json:"platform"`
	}
	type response struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("deviceRegister: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		req := request{}
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("deviceRegister: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DeviceToken == "" {
			http.Error(w, "device_token is required", http.StatusBadRequest)
			return
		}
		if !model.ValidPlatform(req.Platform) {
			http.Error(w, "platform must be one of: ios, web", http.StatusBadRequest)
			return
		}

		d, err := s.DB.DeviceRegistrationUpsert(r.Context(), uc.user.ID.Hex(), req.DeviceToken, req.Platform)
		if err != nil {
			s.Logger.Errorf("deviceRegister: Error upserting DeviceRegistration, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true, ID: d.ID.Hex()}, http.StatusOK)
	}
}

func (s Server) deviceUnregister() http.HandlerFunc {
	type request struct {
		DeviceToken string `json:"device_token"`
	}
	type response struct {
		Success bool `json:"success"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("deviceUnregister: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DeviceToken == "" {
			http.Error(w, "device_token is required", http.StatusBadRequest)
			return
		}

		if err := s.DB.DeviceRegistrationDelete(r.Context(), req.DeviceToken); err != nil {
			if errors.Is(err, database.ErrNoDocumentsModified) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("deviceUnregister: Error deleting DeviceRegistration, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{Success: true}, http.StatusOK)
	}
}
