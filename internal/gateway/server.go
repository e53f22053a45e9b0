package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/recovery"
)

// Server is the gateway's HTTP surface: the WebSocket attach point, the
// session recovery endpoints, plus health and stats.
type Server struct {
	manager  *ConnectionManager
	recovery *recovery.Cache
	httpSrv  *http.Server
}

// NewServer builds the gateway HTTP server on the given address. The
// recovery cache is optional; without it the session endpoints 404.
func NewServer(addr string, manager *ConnectionManager, cache *recovery.Cache) *Server {
	s := &Server{manager: manager, recovery: cache}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{gameID}", s.handleConnect)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /stats", s.handleStats)
	if cache != nil {
		mux.HandleFunc("GET /session/{playerID}", s.handleSessionLoad)
		mux.HandleFunc("PUT /session/{playerID}", s.handleSessionSave)
		mux.HandleFunc("DELETE /session/{playerID}", s.handleSessionClear)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(mux)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpSrv.Addr).Msg("gateway server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown failed: %w", err)
	}
	log.Info().Msg("gateway server stopped")
	return nil
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = "anonymous"
	}

	if err := s.manager.UpgradeConnection(w, r, playerID, gameID); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("player_id", playerID).
			Msg("failed to upgrade WebSocket connection")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	connections, games := s.manager.Stats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"total_connections":%d,"active_games":%d}`, connections, games)
}

func (s *Server) handleSessionLoad(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("playerID"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	state, err := s.recovery.Load(r.Context(), playerID)
	if err != nil {
		if errors.Is(err, recovery.ErrNoActiveSession) {
			http.Error(w, "no active session", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to load recovery session")
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("playerID"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	var state recovery.SessionState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		http.Error(w, "invalid session body", http.StatusBadRequest)
		return
	}
	state.PlayerID = playerID

	if err := s.recovery.Save(r.Context(), state); err != nil {
		log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to save recovery session")
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("playerID"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	if err := s.recovery.Clear(r.Context(), playerID); err != nil {
		log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to clear recovery session")
		http.Error(w, "failed to clear session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
