package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"unisync/internal/app"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

// Deps are the services the API exposes.
type Deps struct {
	Recorder  *app.AttendanceRecorder
	Reports   *app.ReportService
	Sessions  session.Repository
	Roster    roster.Provider
	JWTSecret string
	JWTIssuer string
	Logger    *logrus.Entry
	// Now defaults to time.Now.
	Now func() time.Time
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

type Server struct {
	recorder  *app.AttendanceRecorder
	reports   *app.ReportService
	sessions  session.Repository
	roster    roster.Provider
	jwtSecret string
	jwtIssuer string
	validate  *validator.Validate
	logger    *logrus.Entry
	now       func() time.Time
	metrics   http.Handler
}

func NewServer(d Deps) *Server {
	s := &Server{
		recorder:  d.Recorder,
		reports:   d.Reports,
		sessions:  d.Sessions,
		roster:    d.Roster,
		jwtSecret: d.JWTSecret,
		jwtIssuer: d.JWTIssuer,
		validate:  validator.New(),
		logger:    d.Logger,
		now:       d.Now,
		metrics:   d.MetricsHandler,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics)

	r.Route("/v1/courses/{courseId}", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(requireUserType(UserTypeInstructor)).Get("/roll-call", s.handleGetRollCall)
		r.With(requireUserType(UserTypeInstructor)).Post("/attendance", s.handlePostAttendance)
		r.With(requireUserType(UserTypeInstructor)).Get("/sessions/week", s.handleGetWeeklySessions)
		r.With(requireUserType(UserTypeInstructor, UserTypeStudent, UserTypeAdmin)).Get("/students/{studentId}/attendance", s.handleGetStudentAttendance)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
