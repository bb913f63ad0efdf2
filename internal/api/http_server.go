package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"priyom/internal/config"
	"priyom/internal/metrics"
	"priyom/internal/service"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the operations exposed over HTTP.
type Services struct {
	Owners       *service.OwnerService
	Slots        *service.SlotService
	Booking      *service.BookingService
	Status       *service.StatusService
	Availability *service.AvailabilityService
	Health       Pinger
}

// HTTPServer is the JSON API of the booking service.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	router   *httprouter.Router
	limiter  *rateLimiter
	server   *http.Server
	handler  http.Handler
	logger   *zerolog.Logger
	tokenHdr string
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		router:   httprouter.New(),
		limiter:  newRateLimiter(cfg.RateLimit),
		logger:   logger,
		tokenHdr: cfg.Auth.HeaderManagementToken,
	}
	if srv.tokenHdr == "" {
		srv.tokenHdr = "X-Management-Token"
	}

	srv.routes()

	srv.handler = srv.router
	if len(cfg.CORS.AllowedOrigins) > 0 {
		srv.handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowedHeaders:   []string{"Content-Type", srv.tokenHdr, headerRequestID},
			ExposedHeaders:   []string{headerRequestID, "Content-Disposition"},
			AllowCredentials: false,
		}).Handler(srv.router)
	}

	readTimeout := time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	writeTimeout := time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	return srv
}

func (s *HTTPServer) routes() {
	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.handle(http.MethodGet, "/api/v1/owners", s.handleListOwners)
	s.handle(http.MethodPost, "/api/v1/owners", s.handleRegisterOwner)
	s.handle(http.MethodGet, "/api/v1/owners/:ownerID/slots", s.handleSlots)
	s.handle(http.MethodGet, "/api/v1/owners/:ownerID/windows", s.handleOwnerWindows)

	s.handle(http.MethodPost, "/api/v1/reservations", s.handleReserve)
	s.handle(http.MethodGet, "/api/v1/reservations/:id", s.handleGetReservation)
	s.handle(http.MethodPut, "/api/v1/reservations/:id/status", s.handleSetStatus)
	s.handle(http.MethodDelete, "/api/v1/reservations/cancel/:secret", s.handleCancelBySecret)

	s.handle(http.MethodGet, "/api/v1/manage/windows", s.handleOwnWindows)
	s.handle(http.MethodPost, "/api/v1/manage/windows", s.handleAddWindow)
	s.handle(http.MethodDelete, "/api/v1/manage/windows/:windowID", s.handleRemoveWindow)
	s.handle(http.MethodPatch, "/api/v1/manage/profile", s.handleUpdateProfile)
	s.handle(http.MethodGet, "/api/v1/manage/reservations", s.handleOwnerReservations)
	s.handle(http.MethodGet, "/api/v1/manage/reservations/export", s.handleExport)

	s.handle(http.MethodGet, "/healthz", s.handleHealth)
	metricsHandler := promhttp.Handler()
	s.router.GET("/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		metricsHandler.ServeHTTP(w, r)
	})
}

// handle registers h behind the rate limiter and the request log.
func (s *HTTPServer) handle(method, path string, h httprouter.Handle) {
	s.router.Handle(method, path, s.instrument(method+" "+path, s.limiter.Limit(h)))
}

// instrument tags the request with an id, logs it and records metrics under route.
func (s *HTTPServer) instrument(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()

		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		reqLogger := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r, ps)

		elapsed := time.Since(start)
		metrics.ObserveHTTP(route, recorder.status, elapsed)
		reqLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", elapsed).
			Msg("http request")
	}
}

// Handler returns the full handler chain, CORS included.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
