package server

import (
	"encoding/json"
	"net/http"

	"marketnotify/internal/database"
	"marketnotify/internal/model"
)

func (s Server) preferencesGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("preferencesGet: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		p, err := s.DB.PreferenceFind(r.Context(), uc.user.ID.Hex())
		if err != nil {
			s.Logger.Errorf("preferencesGet: Error finding Preference, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, model.ResolvePreference(uc.user.ID.Hex(), p), http.StatusOK)
	}
}

func (s Server) preferencesUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("preferencesUpdate: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var pu database.PreferenceUpdate
		if err = json.NewDecoder(r.Body).Decode(&pu); err != nil {
			s.Logger.Debugf("preferencesUpdate: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if pu.Empty() {
			http.Error(w, "no preference fields provided", http.StatusBadRequest)
			return
		}
		if pu.PriceAlertThreshold != nil && (*pu.PriceAlertThreshold <= 0 || *pu.PriceAlertThreshold > 1) {
			http.Error(w, "price_alert_threshold must be a fraction in (0, 1]", http.StatusBadRequest)
			return
		}

		p, err := s.DB.PreferenceUpsert(r.Context(), uc.user.ID.Hex(), pu)
		if err != nil {
			s.Logger.Errorf("preferencesUpdate: Error upserting Preference, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, model.ResolvePreference(uc.user.ID.Hex(), &p), http.StatusOK)
	}
}
