// Package session keeps one open wizard per user and form variant. It ties
// the form state to its draft, the lookups, validation, error navigation
// and submission.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"settlement-form-backend/internal/derive"
	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/model"
	"settlement-form-backend/internal/navigate"
	"settlement-form-backend/internal/store"
	"settlement-form-backend/internal/submit"
	"settlement-form-backend/internal/validate"
)

// ErrUnknownDirection is returned for a focus move that is neither next nor prev.
var ErrUnknownDirection = errors.New("unknown focus direction")

// Profiles returns the identity data of a student.
type Profiles interface {
	Profile(ctx context.Context, userID string) (form.Profile, error)
}

// Drafts persists form state between visits.
type Drafts interface {
	LoadDraft(ctx context.Context, userID, storageKey string) (*model.Draft, error)
	SaveDraft(ctx context.Context, draft *model.Draft) error
	DeleteDraft(ctx context.Context, userID, storageKey string) error
}

// Deriver runs the lookups a change triggers.
type Deriver interface {
	Derive(ctx context.Context, userID string, s form.FormState, triggers form.Trigger) (derive.Result, error)
}

// Submitter hands a finished form to the backend.
type Submitter interface {
	Submit(ctx context.Context, userID string, v form.Variant, s form.FormState) (submit.Outcome, error)
}

// Options configures a Manager.
type Options struct {
	Profiles  Profiles
	Drafts    Drafts
	Deriver   Deriver
	Submitter Submitter
	Notifier  submit.Notifier
	Logger    *zap.Logger
	// IdleTTL is how long an untouched session stays in memory. It is
	// reopened from its draft afterwards.
	IdleTTL time.Duration
	Now     func() time.Time
}

// View is what the client renders after every call.
type View struct {
	Variant      string              `json:"variant"`
	State        form.FormState      `json:"state"`
	Progress     validate.Progress   `json:"progress"`
	Page         int                 `json:"page"`
	Errors       *validate.ErrorTree `json:"errors,omitempty"`
	ErrorPaths   []string            `json:"errorPaths,omitempty"`
	Target       *navigate.Target    `json:"target,omitempty"`
	Notices      []derive.Notice     `json:"notices,omitempty"`
	ReloadGroups bool                `json:"reloadGroups,omitempty"`
}

// Session is the wizard of one user for one variant.
type Session struct {
	mu      sync.Mutex
	userID  string
	variant form.Variant
	state   form.FormState
	errors  *validate.ErrorTree
	cursor  *navigate.Cursor
	// issued counts the lookups started per derivation group.
	issued map[form.Trigger]uint64
}

var lookupGroups = []form.Trigger{form.TriggerDormitory, form.TriggerPreset, form.TriggerRoom}

// stamp records a lookup for the groups in triggers and returns its stamps.
func (s *Session) stamp(triggers form.Trigger) map[form.Trigger]uint64 {
	stamps := make(map[form.Trigger]uint64, len(lookupGroups))
	for _, g := range lookupGroups {
		if triggers.Has(g) {
			s.issued[g]++
			stamps[g] = s.issued[g]
		}
	}
	return stamps
}

// latest returns the groups for which stamps are still the newest lookup.
func (s *Session) latest(stamps map[form.Trigger]uint64) form.Trigger {
	var groups form.Trigger
	for g, n := range stamps {
		if s.issued[g] == n {
			groups |= g
		}
	}
	return groups
}

// Manager owns the open sessions.
type Manager struct {
	opts     Options
	defaults form.Defaults
	layout   *form.Layout
	focus    *navigate.FocusGraph
	sessions *cache.Cache
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	layout := form.NewLayout()
	return &Manager{
		opts:     opts,
		defaults: form.NewDefaults(),
		layout:   layout,
		focus:    navigate.NewFocusGraph(layout),
		sessions: cache.New(opts.IdleTTL, opts.IdleTTL),
	}
}

func sessionKey(userID string, v form.Variant) string {
	return userID + "/" + v.StorageKey
}

// Open returns the session of a user, opening it from the profile and the
// draft when it is not in memory.
func (m *Manager) Open(ctx context.Context, userID string, v form.Variant) (View, error) {
	s, notices, err := m.session(ctx, userID, v)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	view := m.view(s)
	view.Notices = notices
	return view, nil
}

func (m *Manager) session(ctx context.Context, userID string, v form.Variant) (*Session, []derive.Notice, error) {
	key := sessionKey(userID, v)
	if cached, ok := m.sessions.Get(key); ok {
		// Touch to extend the idle deadline.
		m.sessions.SetDefault(key, cached)
		return cached.(*Session), nil, nil
	}

	s, notices, err := m.open(ctx, userID, v)
	if err != nil {
		return nil, nil, err
	}
	if err := m.sessions.Add(key, s, cache.DefaultExpiration); err != nil {
		// Opened concurrently by another request; keep the first one.
		if cached, ok := m.sessions.Get(key); ok {
			return cached.(*Session), nil, nil
		}
		m.sessions.SetDefault(key, s)
	}
	return s, notices, nil
}

func (m *Manager) open(ctx context.Context, userID string, v form.Variant) (*Session, []derive.Notice, error) {
	logger := m.opts.Logger.With(zap.String("user_id", userID), zap.String("variant", v.Name))
	var notices []derive.Notice

	profile, err := m.opts.Profiles.Profile(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		logger.Warn("failed to load profile", zap.Error(err))
		notices = append(notices, derive.Notice{Level: derive.LevelWarning, Message: "Не вдалося завантажити профіль студента"})
	}

	var decoder form.Decoder
	draft, err := m.opts.Drafts.LoadDraft(ctx, userID, v.StorageKey)
	switch {
	case err == nil:
		decoder = store.DraftDecoder(draft.Data)
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, nil, fmt.Errorf("failed to open %s for user %s: %w", v.Name, userID, err)
	}

	state, err := form.InitialState(m.defaults, v, profile, decoder, m.opts.Now())
	if err != nil {
		logger.Warn("discarding unreadable draft", zap.Error(err))
		notices = append(notices, derive.Notice{Level: derive.LevelWarning, Message: "Чернетку не вдалося відновити"})
	}

	s := &Session{
		userID:  userID,
		variant: v,
		state:   state,
		cursor:  navigate.NewCursor(m.layout),
		issued:  make(map[form.Trigger]uint64, len(lookupGroups)),
	}
	if state.Dormitory != "" {
		result, err := m.opts.Deriver.Derive(ctx, userID, state, form.TriggerDormitory|form.TriggerPreset|form.TriggerRoom)
		if err != nil {
			return nil, nil, err
		}
		result.Apply(userID, &s.state)
		notices = append(notices, result.Notices...)
	}
	m.push(userID, notices)
	logger.Debug("session opened", zap.Bool("draft", decoder != nil))
	return s, notices, nil
}

// Change applies one field edit. Lookups the edit triggers run without
// holding the session, on a snapshot. Only the newest lookup of each
// derivation group is applied, and only while the dormitory and academic
// year it was made for are still selected.
func (m *Manager) Change(ctx context.Context, userID string, v form.Variant, rawPath, value string) (View, error) {
	p, err := form.ParsePath(rawPath)
	if err != nil {
		return View{}, err
	}
	s, opened, err := m.session(ctx, userID, v)
	if err != nil {
		return View{}, err
	}

	var notices []derive.Notice
	s.mu.Lock()
	next, change, err := form.ApplyChange(s.state, v, p, value)
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.state = next
	notices = append(notices, m.persist(ctx, s)...)
	snapshot := s.state
	stamps := s.stamp(change.Triggers)
	s.mu.Unlock()

	if len(stamps) > 0 {
		result, err := m.opts.Deriver.Derive(ctx, userID, snapshot, change.Triggers)
		if err != nil {
			return View{}, fmt.Errorf("lookups after %s interrupted: %w", p, err)
		}
		notices = append(notices, result.Notices...)

		s.mu.Lock()
		if groups := s.latest(stamps); groups != 0 && result.ApplyGroups(userID, &s.state, groups) {
			notices = append(notices, m.persist(ctx, s)...)
		} else {
			m.opts.Logger.Debug("dropping stale lookup result",
				zap.String("user_id", userID), zap.String("dormitory", result.Key.Dormitory))
		}
		s.mu.Unlock()
	}

	m.push(userID, notices)

	s.mu.Lock()
	defer s.mu.Unlock()
	if v.LiveValidation {
		m.revalidate(s)
	}
	view := m.view(s)
	view.Notices = append(opened, notices...)
	view.ReloadGroups = change.Triggers.Has(form.TriggerGroups)
	return view, nil
}

// Validate checks the whole form, turns error display on and moves to the
// first error.
func (m *Manager) Validate(ctx context.Context, userID string, v form.Variant) (View, error) {
	s, _, err := m.session(ctx, userID, v)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m.revalidate(s)
	s.cursor.Show(true)
	view := m.view(s)
	view.Errors = s.errors
	view.ErrorPaths = s.errors.Strings()
	if target, ok := s.cursor.Focus(); ok {
		view.Target = &target
		view.Page = target.Page
	}
	return view, nil
}

// NextError moves the cursor to the next error, wrapping around.
func (m *Manager) NextError(ctx context.Context, userID string, v form.Variant) (View, error) {
	s, _, err := m.session(ctx, userID, v)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view := m.view(s)
	if target, ok := s.cursor.Advance(); ok {
		view.Target = &target
		view.Page = target.Page
	}
	return view, nil
}

// Focus returns the field keyboard focus moves to from the given path. An
// empty from starts at the first field. The second result is false at the
// ends of the form.
func (m *Manager) Focus(ctx context.Context, userID string, v form.Variant, from, direction string) (navigate.Target, bool, error) {
	s, _, err := m.session(ctx, userID, v)
	if err != nil {
		return navigate.Target{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == "" {
		return s.cursor.Locate(m.focus.First()), true, nil
	}
	p, err := form.ParsePath(from)
	if err != nil {
		return navigate.Target{}, false, err
	}
	var (
		next form.Path
		ok   bool
	)
	switch direction {
	case "next", "":
		next, ok = m.focus.Next(p)
	case "prev":
		next, ok = m.focus.Prev(p)
	default:
		return navigate.Target{}, false, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	if !ok {
		return navigate.Target{}, false, nil
	}
	return s.cursor.Locate(next), true, nil
}

// SetPage records the page the user is looking at.
func (m *Manager) SetPage(ctx context.Context, userID string, v form.Variant, page int) (View, error) {
	s, _, err := m.session(ctx, userID, v)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cursor.SetPage(page); err != nil {
		return View{}, err
	}
	return m.view(s), nil
}

// Submit validates and sends the form. An invalid form moves the cursor to
// its first error; an accepted one closes the session.
func (m *Manager) Submit(ctx context.Context, userID string, v form.Variant) (submit.Outcome, View, error) {
	s, _, err := m.session(ctx, userID, v)
	if err != nil {
		return submit.Outcome{}, View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := m.opts.Submitter.Submit(ctx, userID, v, s.state)
	switch {
	case errors.Is(err, submit.ErrInvalid):
		s.errors = outcome.Errors
		s.cursor.Reset(outcome.Errors.Paths())
		s.cursor.Show(true)
		view := m.view(s)
		if target, ok := s.cursor.Focus(); ok {
			view.Target = &target
			view.Page = target.Page
		}
		return outcome, view, err
	case err != nil:
		notice := derive.Notice{Level: derive.LevelError, Message: "Не вдалося надіслати договір, спробуйте ще раз"}
		m.push(userID, []derive.Notice{notice})
		view := m.view(s)
		view.Notices = []derive.Notice{notice}
		return outcome, view, err
	}

	m.sessions.Delete(sessionKey(userID, v))
	return outcome, View{Variant: v.Name}, nil
}

// Discard deletes the draft and closes the session.
func (m *Manager) Discard(ctx context.Context, userID string, v form.Variant) error {
	m.sessions.Delete(sessionKey(userID, v))
	if err := m.opts.Drafts.DeleteDraft(ctx, userID, v.StorageKey); err != nil {
		return fmt.Errorf("failed to discard %s: %w", v.Name, err)
	}
	return nil
}

// persist writes the draft. A failed write does not undo the edit.
func (m *Manager) persist(ctx context.Context, s *Session) []derive.Notice {
	data, err := store.EncodeDraft(&s.state)
	if err == nil {
		err = m.opts.Drafts.SaveDraft(ctx, &model.Draft{
			UserID:     s.userID,
			StorageKey: s.variant.StorageKey,
			Data:       data,
		})
	}
	if err != nil {
		m.opts.Logger.Error("failed to save draft", zap.String("user_id", s.userID), zap.String("variant", s.variant.Name), zap.Error(err))
		return []derive.Notice{{Level: derive.LevelWarning, Message: "Не вдалося зберегти чернетку"}}
	}
	return nil
}

func (m *Manager) revalidate(s *Session) {
	s.errors = validate.Validate(&s.state, s.variant, m.opts.Now())
	s.cursor.Reset(s.errors.Paths())
}

// push forwards warnings and errors to the user's devices.
func (m *Manager) push(userID string, notices []derive.Notice) {
	if m.opts.Notifier == nil {
		return
	}
	for _, n := range notices {
		if n.Level == derive.LevelInfo {
			continue
		}
		m.opts.Notifier.Notify(userID, n.Message)
	}
}

func (m *Manager) view(s *Session) View {
	view := View{
		Variant:  s.variant.Name,
		State:    s.state,
		Progress: validate.ProgressOf(&s.state, s.variant),
		Page:     s.cursor.Page(),
	}
	if s.errors != nil && (s.cursor.Showing() || s.variant.LiveValidation) {
		view.Errors = s.errors
		view.ErrorPaths = s.errors.Strings()
	}
	return view
}
