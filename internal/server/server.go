package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"plantscope/internal/config"
	"plantscope/internal/history"
	"plantscope/internal/imagefile"
	"plantscope/internal/language"
	"plantscope/internal/logging"
	"plantscope/internal/messages"
	"plantscope/internal/services"
	"plantscope/internal/session"
)

const (
	component           = "api-server"
	defaultHistoryLimit = 20
)

// HistoryLister is the read side of the history store.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]*history.Record, error)
}

// Server serves the JSON API for one Session.
type Server struct {
	bind      string
	token     string
	maxUpload int64
	logger    *slog.Logger
	session   *session.Session
	history   HistoryLister
	catalog   *messages.Catalog

	listener net.Listener
	server   *http.Server
}

// New builds a Server. hist may be nil when history is disabled.
func New(cfg *config.Config, sess *session.Session, hist HistoryLister, catalog *messages.Catalog, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if sess == nil {
		return nil, errors.New("session is nil")
	}
	if catalog == nil {
		return nil, errors.New("message catalog is nil")
	}
	srv := &Server{
		bind:      strings.TrimSpace(cfg.Server.Bind),
		token:     cfg.Server.APIToken,
		maxUpload: cfg.MaxUploadBytes(),
		logger:    logging.NewComponentLogger(logger, component),
		session:   sess,
		history:   hist,
		catalog:   catalog,
	}
	if srv.bind == "" {
		return nil, errors.New("server bind address is empty")
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler returns the routed handler with auth and request IDs applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/identify", authMiddleware(s.token, s.handleIdentify))
	mux.HandleFunc("/api/select", authMiddleware(s.token, s.handleSelect))
	mux.HandleFunc("/api/session", authMiddleware(s.token, s.handleSession))
	mux.HandleFunc("/api/history", authMiddleware(s.token, s.handleHistory))
	return s.withRequestID(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	img, present, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, statusForError(err), err)
		return
	}
	if present {
		if err := s.session.SelectImage(img); err != nil {
			s.writeError(w, r, statusForError(err), err)
			return
		}
	}
	if value := r.FormValue("debug"); value != "" {
		debug, parseErr := strconv.ParseBool(value)
		if parseErr != nil {
			s.writeError(w, r, http.StatusBadRequest, services.Wrap(services.ErrValidation, component, "identify", "invalid debug flag", parseErr))
			return
		}
		s.session.SetDebug(debug)
	}
	s.session.SetLanguage(s.requestLanguage(r))

	snap, err := s.session.Identify(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrSuperseded) {
			s.writeError(w, r, http.StatusConflict, err)
			return
		}
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		// Identification failures still return the snapshot so the caller can
		// show the message next to the selected image.
		s.writeJSON(w, statusForError(err), s.sessionResponse(r, snap, err))
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, snap, nil))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	img, _, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, statusForError(err), err)
		return
	}
	if err := s.session.SelectImage(img); err != nil {
		s.writeError(w, r, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, s.session.Snapshot(), nil))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, s.session.Snapshot(), nil))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, HistoryResponse{Records: []*history.Record{}})
		return
	}
	limit := defaultHistoryLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, services.Wrap(services.ErrValidation, component, "history", "invalid limit", err))
			return
		}
		limit = parsed
	}
	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

// readUpload reads the optional "image" part, falling back to the
// "image_data" field. present is false when the request carried neither.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*imagefile.Image, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, false, uploadError(err)
		}
		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				return nil, false, uploadError(readErr)
			}
			return imagefile.FromBytes(header.Filename, data), true, nil
		case !errors.Is(err, http.ErrMissingFile):
			return nil, false, uploadError(err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, false, uploadError(err)
	}
	return readEncodedUpload(r)
}

// readEncodedUpload accepts the image as base64 text or a data URL for
// clients that cannot send multipart bodies.
func readEncodedUpload(r *http.Request) (*imagefile.Image, bool, error) {
	encoded := strings.TrimSpace(r.FormValue("image_data"))
	if encoded == "" {
		return nil, false, nil
	}
	name := strings.TrimSpace(r.FormValue("image_name"))
	if name == "" {
		name = "upload"
	}
	img, err := imagefile.Decode(name, encoded)
	if err != nil {
		return nil, false, services.Wrap(services.ErrValidation, component, "upload", "invalid image_data", err)
	}
	return img, true, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return services.Wrap(services.ErrValidation, component, "upload", fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit), err)
	}
	return services.Wrap(services.ErrValidation, component, "upload", "invalid upload", err)
}

func (s *Server) requestLanguage(r *http.Request) string {
	if lang := strings.TrimSpace(r.FormValue("lang")); lang != "" {
		return language.Locale(lang)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		return language.FromAcceptLanguage(header)
	}
	return s.session.Language()
}

func (s *Server) sessionResponse(r *http.Request, snap session.Snapshot, err error) SessionResponse {
	loc := s.catalog.For(s.requestLanguageOr(r, snap.Language))
	resp := SessionResponse{
		Session: snap,
		Results: snap.Results(),
		Loading: snap.Loading(),
		Message: loc.Error(err),
	}
	if resp.Message == "" && snap.Error != "" {
		resp.Message = messageForKind(loc, snap.ErrorKind)
	}
	if snap.LookupError != "" {
		resp.LookupNotice = loc.Text(messages.LookupFailed, nil)
	}
	if snap.State == session.StateArticlesReady && snap.LookupError == "" {
		for _, result := range resp.Results {
			if len(result.Articles) == 0 {
				resp.EmptyNotice = loc.NoneInLanguage()
				break
			}
		}
	}
	return resp
}

func (s *Server) requestLanguageOr(r *http.Request, fallback string) string {
	if lang := strings.TrimSpace(r.Form.Get("lang")); lang != "" {
		return lang
	}
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		return language.FromAcceptLanguage(header)
	}
	return fallback
}

func messageForKind(loc *messages.Localizer, kind string) string {
	switch kind {
	case "validation":
		return loc.Text(messages.NotImage, nil)
	case "config":
		return loc.Text(messages.ConfigMissing, nil)
	case "load":
		return loc.Text(messages.SampleFailed, nil)
	case "encoding":
		return loc.Text(messages.EncodingFailed, nil)
	default:
		return loc.Text(messages.UnknownError, nil)
	}
}

func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	loc := s.catalog.For(s.requestLanguageOr(r, s.session.Language()))
	resp := ErrorResponse{Error: err.Error(), Kind: services.Kind(err)}
	if status != http.StatusMethodNotAllowed {
		resp.Message = loc.Error(err)
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
		)
	}
	s.writeJSON(w, status, resp)
}
