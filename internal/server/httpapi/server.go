// Package httpapi serves the plain HTTP surface of the server: the realtime
// websocket endpoint, the push relay function and health checks.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	maxRelayBody    = 64 * 1024
	shutdownTimeout = 5 * time.Second
)

// Relayer is the push relay the function endpoint forwards to.
type Relayer interface {
	Relay(ctx context.Context, p services.PushPayload) (*services.RelayResult, error)
}

// Realtime is the websocket side of the hub.
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Online(topic string) []string
}

// Pinger reports storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPServer struct {
	address      string
	logger       logging.Logger
	realtime     Realtime
	relay        Relayer
	db           Pinger
	functionKey  []byte
	authenticate func(token string) (string, error)
}

func NewHTTPServer(a string, l logging.Logger, rt Realtime, relay Relayer, db Pinger, functionKey string, auth func(string) (string, error)) *HTTPServer {
	return &HTTPServer{
		address:      a,
		logger:       l.With("module", "http_server"),
		realtime:     rt,
		relay:        relay,
		db:           db,
		functionKey:  []byte(functionKey),
		authenticate: auth,
	}
}

// Router builds the route table.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/realtime/v1/websocket", s.realtime.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/realtime/v1/presence/{topic}", s.withUser(s.handlePresence)).Methods(http.MethodGet)
	r.HandleFunc("/functions/v1/push-relay", s.withFunctionKey(s.handlePushRelay)).Methods(http.MethodPost)
	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *HTTPServer) withFunctionKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := bearer(r)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), s.functionKey) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

type userKey struct{}

func (s *HTTPServer) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(bearer(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	online := s.realtime.Online(topic)
	if online == nil {
		online = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"online": online})
}

func (s *HTTPServer) handlePushRelay(w http.ResponseWriter, r *http.Request) {
	var p services.PushPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRelayBody)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := s.relay.Relay(r.Context(), p)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		s.logger.Error(r.Context(), "push relay failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
