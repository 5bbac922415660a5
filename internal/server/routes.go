package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMw, s.maxBytesMw)

	internalAPI := api.PathPrefix("/internal").Subrouter()
	internalAPI.Use(s.internalAuthMw)
	internalAPI.HandleFunc("/watchlist-targets", s.watchlistTargets()).Methods(http.MethodGet)
	internalAPI.HandleFunc("/notify-price-alert", s.notifyPriceAlert()).Methods(http.MethodPost)
	internalAPI.HandleFunc("/notify-summary", s.notifySummary()).Methods(http.MethodPost)
	internalAPI.HandleFunc("/notify-welcome", s.notifyWelcome()).Methods(http.MethodPost)
	internalAPI.PathPrefix("").Handler(http.NotFoundHandler())

	userAPI := api.NewRoute().Subrouter()
	userAPI.Use(s.authMw)
	userAPI.HandleFunc("/register-device", s.deviceRegister()).Methods(http.MethodPost)
	userAPI.HandleFunc("/unregister-device", s.deviceUnregister()).Methods(http.MethodDelete)
	userAPI.HandleFunc("/preferences", s.preferencesGet()).Methods(http.MethodGet)
	userAPI.HandleFunc("/preferences", s.preferencesUpdate()).Methods(http.MethodPut)
	userAPI.PathPrefix("").Handler(http.NotFoundHandler())

	return r
}
