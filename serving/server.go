package serving

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/YuminosukeSato/housecast/artifact"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
)

// maxBodyBytes bounds a /predict request body.
const maxBodyBytes = 1 << 16

// PredictResponse is the body of a successful /predict call.
type PredictResponse struct {
	Prediction float64 `json:"prediction"`
}

// ErrorResponse is the body of every failed call. Field names the offending
// request field for validation failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// SchemaResponse describes the accepted request fields.
type SchemaResponse struct {
	Features   []string                 `json:"features"`
	Ranges     map[string]housing.Range `json:"ranges"`
	Localities []string                 `json:"localities"`
}

// Server exposes a Predictor over HTTP.
type Server struct {
	predictor *Predictor
	store     *artifact.Store
	logger    log.Logger
	router    *mux.Router
}

// NewServer builds the routes. store is used for /metrics and may be nil.
func NewServer(predictor *Predictor, store *artifact.Store, logger log.Logger) *Server {
	if logger == nil {
		logger = log.GetLoggerWithName("server")
	}
	s := &Server{
		predictor: predictor,
		store:     store,
		logger:    logger,
		router:    mux.NewRouter().StrictSlash(true),
	}
	s.router.Handle("/predict", handlers.ContentTypeHandler(http.HandlerFunc(s.handlePredict), "application/json")).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	return s
}

// Handler returns the router wrapped with CORS, panic recovery and access
// logging.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedOrigins([]string{"*"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))
	return handlers.CustomLoggingHandler(io.Discard, recovery(cors(s.router)), s.logAccess)
}

// HTTPServer returns an http.Server for addr with the given timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) logAccess(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("HTTP request",
		log.HTTPMethodKey, p.Request.Method,
		log.HTTPPathKey, p.URL.Path,
		log.HTTPStatusKey, p.StatusCode,
		log.HTTPSizeKey, p.Size,
		log.DurationMsKey, time.Since(p.TimeStamp).Milliseconds(),
	)
}

type recoveryLogger struct{ logger log.Logger }

func (r recoveryLogger) Println(v ...interface{}) {
	r.logger.Error("Recovered from panic in handler", "panic", fmt.Sprint(v...))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var rec housing.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		s.writeError(w, errors.NewValidationError("body", "malformed request body", err.Error()))
		return
	}

	price, err := s.predictor.Predict(rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PredictResponse{Prediction: price})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "metrics not available"})
		return
	}
	m, err := s.store.LoadMetrics()
	if artifact.IsNotExist(err) {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "metrics not available"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	schema := s.predictor.Schema()
	s.writeJSON(w, http.StatusOK, SchemaResponse{
		Features:   schema.Features,
		Ranges:     schema.Ranges,
		Localities: schema.Localities(),
	})
}

// writeError maps client errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.IsClientError(err) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: errors.InvalidParam(err)})
		return
	}
	s.logger.Error("Request failed", err, log.ErrorCodeKey, log.ErrorInternal)
	s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", err)
	}
}
