package server

import (
	"encoding/json"
	"net/http"
	"time"

	"marketnotify/internal/dispatch"
	"marketnotify/internal/model"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	watchlistTargetsCacheKey = "watchlist-targets"
	watchlistTargetsCacheTTL = 60 * time.Second
)

// watchlistTargets serves the resolved target set to the price-evaluation
// job. The job polls every cycle, so the result is cached briefly in Redis.
func (s Server) watchlistTargets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cached, err := s.Redis.Get(r.Context(), watchlistTargetsCacheKey).Result()
		if err == nil {
			var targets []model.WatchlistTarget
			if err = json.Unmarshal([]byte(cached), &targets); err == nil {
				s.Logger.Debugf("watchlistTargets: Serving %d target(s) from cache", len(targets))
				s.writeJsonResponse(w, targets, http.StatusOK)
				return
			}
			s.Logger.Errorf("watchlistTargets: Error unmarshalling cache, err: %v", err)
		} else if err != redis.Nil {
			s.Logger.Errorf("watchlistTargets: Error getting Redis cache, err: %v", err)
		}

		targets, err := s.Dispatcher.ResolveWatchlistTargets(r.Context())
		if err != nil {
			s.Logger.Errorf("watchlistTargets: Error resolving targets, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if encoded, err := json.Marshal(targets); err != nil {
			s.Logger.Errorf("watchlistTargets: Error marshalling targets for cache, err: %v", err)
		} else if err = s.Redis.Set(r.Context(), watchlistTargetsCacheKey, encoded, watchlistTargetsCacheTTL).Err(); err != nil {
			s.Logger.Errorf("watchlistTargets: Error setting Redis cache, err: %v", err)
		}
		s.writeJsonResponse(w, targets, http.StatusOK)
	}
}

func (s Server) notifyPriceAlert() http.HandlerFunc {
	type request struct {
		Symbol        string   `json:"symbol"`
		CurrentPrice  float64  `json:"current_price"`
		PreviousClose float64  `json:"previous_close"`
		ChangePercent float64  `json:"change_percent"`
		Direction     string   `json:"direction"`
		UserIDs       []string `json:"user_ids"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("notifyPriceAlert: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}
		if req.Direction != dispatch.DirectionUp && req.Direction != dispatch.DirectionDown {
			http.Error(w, "direction must be one of: up, down", http.StatusBadRequest)
			return
		}

		result, err := s.Dispatcher.DispatchPriceAlert(r.Context(), dispatch.PriceAlert{
			Symbol:        req.Symbol,
			CurrentPrice:  req.CurrentPrice,
			PreviousClose: req.PreviousClose,
			ChangePercent: req.ChangePercent,
			Direction:     req.Direction,
			UserIDs:       req.UserIDs,
		})
		if err != nil {
			s.Logger.Errorf("notifyPriceAlert: Error dispatching, symbol: %s, err: %v", req.Symbol, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, result, http.StatusOK)
	}
}

func (s Server) notifySummary() http.HandlerFunc {
	type request struct {
		SummaryType string `json:"summary_type"`
		SummaryID   string `json:"summary_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("notifySummary: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := dispatch.MarketByID(req.SummaryType); !ok {
			http.Error(w, "summary_type must be one of: usa, asx, europe", http.StatusBadRequest)
			return
		}
		if req.SummaryID == "" {
			http.Error(w, "summary_id is required", http.StatusBadRequest)
			return
		}

		result, err := s.Dispatcher.DispatchMarketSummary(r.Context(), req.SummaryType, req.SummaryID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				http.Error(w, "summary not found", http.StatusNotFound)
				return
			}
			s.Logger.Errorf("notifySummary: Error dispatching, type: %s, ID: %s, err: %v", req.SummaryType, req.SummaryID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, result, http.StatusOK)
	}
}

func (s Server) notifyWelcome() http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("notifyWelcome: Error decoding JSON, err: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		result, err := s.Dispatcher.DispatchWelcomeEmail(r.Context(), req.UserID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			s.Logger.Errorf("notifyWelcome: Error dispatching, UserID: %s, err: %v", req.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, result, http.StatusOK)
	}
}
