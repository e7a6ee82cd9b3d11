package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"plantscope/internal/imagefile"
	"plantscope/internal/language"
	"plantscope/internal/logging"
	"plantscope/internal/services"
	"plantscope/internal/services/plantid"
	"plantscope/internal/services/wikimedia"
)

const component = "session"

// ErrSuperseded is returned to the caller of an attempt that was replaced by
// a newer one before it finished. Its results are discarded.
var ErrSuperseded = errors.New("identification superseded by a newer request")

// ErrNoSelection is the cause when Identify runs with no image outside debug mode.
var ErrNoSelection = errors.New("no image selected")

// Recorder persists finished attempts.
type Recorder interface {
	Record(ctx context.Context, attempt Attempt) error
}

// Observer is notified with a snapshot after every state change.
type Observer func(Snapshot)

// Option configures a Session.
type Option func(*Session)

// WithRecorder stores every finished attempt.
func WithRecorder(recorder Recorder) Option {
	return func(s *Session) {
		s.recorder = recorder
	}
}

// WithObserver registers a snapshot callback. Callbacks run synchronously
// outside the session lock.
func WithObserver(observer Observer) Option {
	return func(s *Session) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logging.NewComponentLogger(logger, component)
	}
}

// WithLanguage sets the article locale. Lookups use its base language;
// display filtering prefers the full locale.
func WithLanguage(lang string) Option {
	return func(s *Session) {
		s.language = language.Locale(lang)
	}
}

// WithClock replaces time.Now for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session orchestrates identification and article lookup for one user.
type Session struct {
	identifier plantid.Identifier
	lookuper   wikimedia.Lookuper
	recorder   Recorder
	observers  []Observer
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	image      *imagefile.Image
	debug      bool
	language   string
	state      State
	sessionID  string
	cancel     context.CancelFunc
	candidates []plantid.Candidate
	articles   [][]wikimedia.Article
	errMsg     string
	errKind    string
	lookupErr  string
	raw        json.RawMessage
	startedAt  time.Time
	finishedAt time.Time
}

// New creates an idle Session.
func New(identifier plantid.Identifier, lookuper wikimedia.Lookuper, opts ...Option) (*Session, error) {
	if identifier == nil {
		return nil, errors.New("session requires an identifier")
	}
	if lookuper == nil {
		return nil, errors.New("session requires an article lookuper")
	}
	s := &Session{
		identifier: identifier,
		lookuper:   lookuper,
		logger:     logging.NewComponentLogger(nil, component),
		now:        time.Now,
		language:   language.Default,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SelectImage replaces the selected photo. A nil image clears the selection.
// A non-image is rejected with an error marked services.ErrValidation and
// leaves nothing selected. Any selection change returns the session to idle
// and abandons a running attempt.
func (s *Session) SelectImage(img *imagefile.Image) error {
	s.mu.Lock()
	if img != nil {
		if err := imagefile.Validate(img); err != nil {
			s.image = nil
			s.errMsg = err.Error()
			s.errKind = services.Kind(err)
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.logger.Info("image selection rejected",
				logging.String(logging.FieldEventType, "image_rejected"),
				logging.String("name", img.Name),
				logging.String("content_type", img.ContentType),
			)
			s.notify(snap)
			return err
		}
	}
	s.abandonLocked()
	s.resetLocked()
	s.image = img
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetDebug toggles answering identification from the sample response.
func (s *Session) SetDebug(debug bool) {
	s.mu.Lock()
	s.debug = debug
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetLanguage changes the article language for subsequent attempts.
func (s *Session) SetLanguage(lang string) {
	s.mu.Lock()
	s.language = language.Locale(lang)
	s.mu.Unlock()
}

// Language returns the article locale, such as "fr" or "pt-br".
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Snapshot returns a copy of the visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Identify runs one attempt to completion and returns the final snapshot.
// Identification failures return the error and leave the session idle with
// the message recorded. Lookup failures do not fail the call; they are
// reported in Snapshot.LookupError alongside the candidates. If a newer
// attempt starts first, ErrSuperseded is returned and nothing is committed.
func (s *Session) Identify(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.image == nil && !s.debug {
		err := services.Wrap(services.ErrValidation, component, "identify", "select an image first", ErrNoSelection)
		s.errMsg = err.Error()
		s.errKind = services.Kind(err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return snap, err
	}

	s.abandonLocked()
	s.resetLocked()
	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(services.WithSessionID(ctx, id))
	defer cancel()
	s.sessionID = id
	s.cancel = cancel
	s.state = StateIdentifying
	s.startedAt = s.now()
	img, debug, lang := s.image, s.debug, s.language
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	logger := logging.WithContext(runCtx, s.logger)
	logger.Info("identification started",
		logging.String(logging.FieldEventType, "identify_started"),
		logging.Bool("debug", debug),
		logging.String("language", lang),
	)

	resp, err := s.identifier.Identify(runCtx, img, debug)

	s.mu.Lock()
	if s.sessionID != id {
		s.mu.Unlock()
		logger.Info("stale identification result dropped", logging.String(logging.FieldEventType, "identify_superseded"))
		return Snapshot{}, ErrSuperseded
	}
	if err != nil {
		s.state = StateIdle
		s.errMsg = err.Error()
		s.errKind = services.Kind(err)
		s.finishLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logging.WarnWithContext(logger, "identification failed", "identify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldImpact, "no candidates for this photo"),
			logging.String(logging.FieldErrorHint, "check the Plant.id API key or retry"),
		)
		s.notify(snap)
		s.record(runCtx, snap, err, nil)
		return snap, err
	}

	s.candidates = resp.Candidates()
	s.raw = resp.Raw
	if len(s.candidates) == 0 {
		s.state = StateArticlesReady
		s.articles = [][]wikimedia.Article{}
		s.finishLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		logger.Info("identification returned no candidates", logging.String(logging.FieldEventType, "identify_empty"))
		s.notify(snap)
		s.record(runCtx, snap, nil, nil)
		return snap, nil
	}
	s.state = StateAwaitingArticles
	names := resp.Names()
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	articles, lookupErr := s.lookuper.LookupArticles(runCtx, names, language.Detect(lang))

	s.mu.Lock()
	if s.sessionID != id {
		s.mu.Unlock()
		logger.Info("stale article lookup dropped", logging.String(logging.FieldEventType, "lookup_superseded"))
		return Snapshot{}, ErrSuperseded
	}
	if lookupErr != nil {
		s.lookupErr = lookupErr.Error()
		s.articles = [][]wikimedia.Article{}
	} else {
		s.articles = articles
	}
	s.state = StateArticlesReady
	s.finishLocked()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if lookupErr != nil {
		logging.WarnWithContext(logger, "article lookup failed", "lookup_failed",
			logging.Error(lookupErr),
			logging.String(logging.FieldErrorKind, services.Kind(lookupErr)),
			logging.String(logging.FieldImpact, "candidates shown without articles"),
			logging.String(logging.FieldErrorHint, "check Wikimedia credentials"),
		)
	} else {
		logger.Info("identification complete",
			logging.String(logging.FieldEventType, "identify_complete"),
			logging.Int("candidates", len(snap.Candidates)),
		)
	}
	s.notify(snap)
	s.record(runCtx, snap, nil, lookupErr)
	return snap, nil
}

// abandonLocked cancels a running attempt so its results are ignored.
func (s *Session) abandonLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.sessionID = ""
}

func (s *Session) resetLocked() {
	s.state = StateIdle
	s.candidates = nil
	s.articles = nil
	s.errMsg = ""
	s.errKind = ""
	s.lookupErr = ""
	s.raw = nil
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
}

func (s *Session) finishLocked() {
	s.finishedAt = s.now()
	s.cancel = nil
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:   s.sessionID,
		State:       s.state,
		Debug:       s.debug,
		Language:    s.language,
		Candidates:  cloneCandidates(s.candidates),
		Articles:    cloneArticles(s.articles),
		Error:       s.errMsg,
		ErrorKind:   s.errKind,
		LookupError: s.lookupErr,
		RawResponse: append(json.RawMessage(nil), s.raw...),
		StartedAt:   s.startedAt,
		FinishedAt:  s.finishedAt,
	}
	if s.image != nil {
		snap.Image = &ImageInfo{Name: s.image.Name, ContentType: s.image.ContentType, Size: len(s.image.Data)}
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	for _, observer := range s.observers {
		observer(snap)
	}
}

func (s *Session) record(ctx context.Context, snap Snapshot, identifyErr, lookupErr error) {
	if s.recorder == nil {
		return
	}
	attempt := Attempt{
		SessionID:   snap.SessionID,
		StartedAt:   snap.StartedAt,
		FinishedAt:  snap.FinishedAt,
		Debug:       snap.Debug,
		Language:    snap.Language,
		Candidates:  snap.Candidates,
		Articles:    snap.Articles,
		IdentifyErr: identifyErr,
		LookupErr:   lookupErr,
		RawResponse: snap.RawResponse,
	}
	if snap.Image != nil {
		attempt.ImageName = snap.Image.Name
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), attempt); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record attempt", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt missing from history"),
		)
	}
}
