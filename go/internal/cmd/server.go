package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mcdev12/chessclock/go/internal/game"
	"github.com/mcdev12/chessclock/go/internal/gateway"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type timeControlResponse struct {
	TimeControl           string `json:"time_control"`
	Label                 string `json:"label"`
	Berserkable           bool   `json:"berserkable"`
	EstimatedTotalSeconds int    `json:"estimated_total_seconds"`
}

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services)
	setupTimeControls(mux, services)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	game.NewService(services.Games).RegisterRoutes(mux)
	gateway.NewWebSocketHandler(services.Gateway, services.Games).RegisterRoutes(mux)
}

func setupTimeControls(mux *http.ServeMux, services *Services) {
	controls := make([]timeControlResponse, 0, len(services.Controls))
	for _, control := range services.Controls {
		controls = append(controls, timeControlResponse{
			TimeControl:           control.String(),
			Label:                 control.Label(),
			Berserkable:           control.Berserkable(),
			EstimatedTotalSeconds: control.EstimatedTotalSeconds(),
		})
	}

	mux.HandleFunc("GET /time-controls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(controls); err != nil {
			log.Error().Err(err).Msg("failed to write time controls")
		}
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
