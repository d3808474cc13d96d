package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/roach88/beehere/internal/api"
)

// Rejection messages, matching the real service.
const (
	DetailNoCredentials   = "Authentication credentials were not provided."
	DetailExpired         = "Signature has expired."
	DetailInvalidToken    = "Error decoding signature."
	MsgUniqueTogether     = "The fields session, student must make a unique set."
	MsgStudentNotEnrolled = "Student is not on the roster for this class."
)

type ctxKey struct{}

// Server is an in-memory fake of the attendance service.
//
// Thread-safety: all methods and handlers are safe for concurrent use.
type Server struct {
	secret []byte
	seed   Seed
	now    func() time.Time
	logger *slog.Logger
	codes  bool

	mu         sync.Mutex
	attendance []api.Attendance
	nextID     int64
}

// Option configures a Server.
type Option func(*Server)

// WithSeed replaces the default seed data.
func WithSeed(seed Seed) Option {
	return func(s *Server) { s.seed = seed }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithErrorCodes makes rejections carry a structured "code" field alongside
// the legacy body shape.
func WithErrorCodes(enabled bool) Option {
	return func(s *Server) { s.codes = enabled }
}

// New creates a mock service that signs and verifies tokens with secret.
func New(secret []byte, opts ...Option) *Server {
	s := &Server{
		secret: secret,
		seed:   DefaultSeed(),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		nextID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token issues a token for username valid for ttl from the server clock.
func (s *Server) Token(username string, ttl time.Duration) (string, error) {
	now := s.now()
	return IssueToken(s.secret, username, now, now.Add(ttl))
}

// Attendance returns the attendance records created so far.
func (s *Server) Attendance() []api.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Attendance(nil), s.attendance...)
}

// Handler returns the HTTP routes. Resources are served both with and
// without a trailing slash.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.authenticate)
	for _, p := range []string{"/student", "/student/"} {
		r.HandleFunc(p, s.listStudents).Methods(http.MethodGet)
	}
	for _, p := range []string{"/session", "/session/"} {
		r.HandleFunc(p, s.listSessions).Methods(http.MethodGet)
	}
	for _, p := range []string{"/attendance", "/attendance/"} {
		r.HandleFunc(p, s.createAttendance).Methods(http.MethodPost)
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("mock request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// authenticate requires "Authorization: JWT <token>" and stores the
// username in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != api.AuthScheme || strings.TrimSpace(token) == "" {
			s.reject(w, http.StatusUnauthorized, "not_authenticated", DetailNoCredentials)
			return
		}

		claims, err := ValidateToken(s.secret, strings.TrimSpace(token), s.now())
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				s.reject(w, http.StatusUnauthorized, "token_not_valid", DetailExpired)
				return
			}
			s.reject(w, http.StatusUnauthorized, "token_not_valid", DetailInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	username, _ := r.Context().Value(ctxKey{}).(string)
	onlyUser := r.URL.Query().Get("is_user") == "True"

	out := []api.Student{}
	for _, st := range s.seed.Students {
		if onlyUser && st.Username != username {
			continue
		}
		out = append(out, api.Student{ID: st.ID, Name: st.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := []api.Session{}
	for _, sess := range s.seed.Sessions {
		if q.Has("class_code") && sess.ClassCode != q.Get("class_code") {
			continue
		}
		out = append(out, api.Session{ID: sess.ID, ClassCode: sess.ClassCode})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAttendance(w http.ResponseWriter, r *http.Request) {
	var req api.AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"non_field_errors": []string{"Invalid data. " + err.Error()},
		})
		return
	}

	sess, ok := s.seed.session(req.Session)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"session": []string{fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(req.Session, 10))},
		})
		return
	}
	if _, ok := s.seed.student(req.Student); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"student": []string{fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(req.Student, 10))},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attendance {
		if a.Session == req.Session && a.Student == req.Student {
			s.invalid(w, "unique", MsgUniqueTogether)
			return
		}
	}
	if !sess.enrolled(req.Student) {
		s.invalid(w, "not_on_roster", MsgStudentNotEnrolled)
		return
	}

	rec := api.Attendance{ID: s.nextID, Session: req.Session, Student: req.Student}
	s.nextID++
	s.attendance = append(s.attendance, rec)
	s.logger.Info("attendance recorded", "session", rec.Session, "student", rec.Student)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) reject(w http.ResponseWriter, status int, code, detail string) {
	body := map[string]any{"detail": detail}
	if s.codes {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

func (s *Server) invalid(w http.ResponseWriter, code, msg string) {
	body := map[string]any{"non_field_errors": []string{msg}}
	if s.codes {
		body["code"] = code
	}
	writeJSON(w, http.StatusBadRequest, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
