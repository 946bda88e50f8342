package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/apierr"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/gateway"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/sessions"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
)

const (
	DefaultLogoutTimeout  = 5 * time.Second
	defaultPersistTimeout = 5 * time.Second
)

// Sender executes API requests; *gateway.Gateway satisfies it.
type Sender interface {
	Send(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

type Options struct {
	// LogoutTimeout bounds the best-effort server-side logout call.
	LogoutTimeout  time.Duration
	PersistTimeout time.Duration
}

// Store is the single owner of the client Session. Every mutation is persisted
// through the repository while the store lock is held, so the stored record
// always reflects the latest mutation.
type Store struct {
	mu   sync.RWMutex
	sess sessions.Session
	repo sessions.Repository
	api  Sender

	logoutTimeout  time.Duration
	persistTimeout time.Duration
}

// NewStore rehydrates the session from repo. A load failure starts empty.
func NewStore(ctx context.Context, repo sessions.Repository, opts Options) *Store {
	if repo == nil {
		repo = sessions.NewMemoryRepository()
	}
	s := &Store{
		repo:           repo,
		logoutTimeout:  opts.LogoutTimeout,
		persistTimeout: opts.PersistTimeout,
	}
	if s.logoutTimeout <= 0 {
		s.logoutTimeout = DefaultLogoutTimeout
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = defaultPersistTimeout
	}
	loaded, err := repo.Load(ctx)
	switch {
	case err != nil:
		logger.Warnf("credentials: could not load persisted session, starting empty: %v", err)
	case loaded != nil:
		s.sess = loaded.Clone()
		logger.Debugf("credentials: session rehydrated (authenticated=%t)", s.sess.Authenticated)
	}
	return s
}

// UseSender attaches the API sender. It must be called before any network operation.
func (s *Store) UseSender(api Sender) {
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
}

func (s *Store) sender() (Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.api == nil {
		return nil, errors.New("credentials: no sender attached")
	}
	return s.api, nil
}

// persist must be called with s.mu held. It is detached from the caller's
// cancellation so a cancelled request never leaves storage behind memory.
func (s *Store) persist(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()
	snap := s.sess.Clone()
	if err := s.repo.Save(pctx, &snap); err != nil {
		logger.Errorf("credentials: persisting session failed: %v", err)
		return apierr.Wrapf(err, "persist session")
	}
	return nil
}

// Snapshot returns a deep copy of the current session.
func (s *Store) Snapshot() sessions.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Clone()
}

func (s *Store) AccessCredential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.AccessCredential
}

func (s *Store) RefreshCredential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.RefreshCredential
}

func (s *Store) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Identity.Clone()
}

// Authorized is true only for an authenticated session whose identity is approved.
// A pending or suspended identity never counts, whatever the credentials say.
func (s *Store) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Authenticated && s.sess.AccessCredential != "" && s.sess.Identity.Approved()
}

// SetCredentials replaces both credentials at once and marks the session authenticated.
func (s *Store) SetCredentials(ctx context.Context, access, refresh string) error {
	if access == "" {
		return fmt.Errorf("%w: empty access credential", apierr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.AccessCredential = access
	s.sess.RefreshCredential = refresh
	s.sess.Authenticated = true
	return s.persist(ctx)
}

// startSession replaces the whole session with a fresh login pair. The previous
// identity is dropped so it can never be paired with another account's credentials.
func (s *Store) startSession(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sessions.Session{AccessCredential: access, RefreshCredential: refresh, Authenticated: true}
	return s.persist(ctx)
}

// Clear empties the session. It reports whether anything was cleared; concurrent
// callers all converge on the empty session and exactly one of them sees true.
func (s *Store) Clear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.IsEmpty() {
		return false
	}
	s.sess = sessions.Session{}
	_ = s.persist(ctx)
	return true
}

// PatchIdentity merges a local profile edit into the current identity.
func (s *Store) PatchIdentity(ctx context.Context, patch models.IdentityPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.Identity == nil {
		return fmt.Errorf("%w: no identity to patch", apierr.ErrUnauthorized)
	}
	patch.Apply(s.sess.Identity)
	return s.persist(ctx)
}

// Login exchanges email and password for a credential pair, stores it and loads the identity.
func (s *Store) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	api, err := s.sender()
	if err != nil {
		return nil, err
	}
	req, err := gateway.NewJSONRequest(http.MethodPost, gateway.PathLogin, map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	resp, err := api.Send(ctx, req)
	if err != nil {
		switch apierr.StatusOf(err) {
		case http.StatusUnauthorized:
			return nil, apierr.Reclassify(err, apierr.ErrInvalidCredentials)
		case http.StatusForbidden:
			return nil, apierr.Reclassify(err, apierr.ErrAccountNotApproved)
		case http.StatusUnprocessableEntity:
			return nil, apierr.Reclassify(err, apierr.ErrValidation)
		}
		return nil, err
	}
	var pair gateway.TokenPair
	if err := resp.Decode(&pair); err != nil {
		return nil, fmt.Errorf("%w: login: %w", apierr.ErrServer, err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response without access credential", apierr.ErrServer)
	}
	if err := s.startSession(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		s.Clear(ctx)
		return nil, err
	}
	id, err := s.FetchIdentity(ctx)
	if err != nil {
		s.Clear(ctx)
		return nil, err
	}
	logger.Infof("credentials: logged in as %s (status=%s)", id.Email, id.Status)
	return id, nil
}

// Register creates a pending account. It never authenticates.
func (s *Store) Register(ctx context.Context, profile models.RegistrationProfile) (*models.Identity, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}
	api, err := s.sender()
	if err != nil {
		return nil, err
	}
	profile.Email = strings.TrimSpace(profile.Email)
	req, err := gateway.NewJSONRequest(http.MethodPost, gateway.PathRegister, profile)
	if err != nil {
		return nil, err
	}
	resp, err := api.Send(ctx, req)
	if err != nil {
		return nil, classifyRegister(err)
	}
	var id models.Identity
	if err := resp.Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: register: %w", apierr.ErrServer, err)
	}
	return &id, nil
}

func classifyRegister(err error) error {
	status := apierr.StatusOf(err)
	switch {
	case status == http.StatusConflict:
		return apierr.Reclassify(err, apierr.ErrDuplicateEmail)
	case status == http.StatusBadRequest && isDuplicateDetail(err.Error()):
		return apierr.Reclassify(err, apierr.ErrDuplicateEmail)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apierr.Reclassify(err, apierr.ErrValidation)
	}
	return err
}

func isDuplicateDetail(msg string) bool {
	msg = strings.ToLower(msg)
	for _, k := range []string{"already", "cadastrado", "exists", "duplicate"} {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// ValidateProfile applies the registration constraints the backend enforces.
func ValidateProfile(p models.RegistrationProfile) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(p.Email)); err != nil || !strings.Contains(p.Email, "@") {
		return fmt.Errorf("%w: invalid email %q", apierr.ErrValidation, p.Email)
	}
	if utf8.RuneCountInString(p.Password) < 8 {
		return fmt.Errorf("%w: password must have at least 8 characters", apierr.ErrValidation)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.FullName)); n < 3 || n > 255 {
		return fmt.Errorf("%w: full name must have between 3 and 255 characters", apierr.ErrValidation)
	}
	return nil
}

// FetchIdentity reloads the identity from GET /auth/me. An authorization failure
// means the credential is dead and the session is cleared.
func (s *Store) FetchIdentity(ctx context.Context) (*models.Identity, error) {
	api, err := s.sender()
	if err != nil {
		return nil, err
	}
	resp, err := api.Send(ctx, gateway.NewRequest(http.MethodGet, gateway.PathMe))
	if err != nil {
		if errors.Is(err, apierr.ErrUnauthorized) {
			s.Clear(ctx)
		}
		return nil, err
	}
	var id models.Identity
	if err := resp.Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: identity: %w", apierr.ErrServer, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.AccessCredential == "" {
		// logged out while the call was in flight
		return nil, fmt.Errorf("%w: session was cleared", apierr.ErrUnauthorized)
	}
	s.sess.Identity = id.Clone()
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout asks the backend to revoke the refresh credential, ignoring the outcome,
// then clears the session. It never fails.
func (s *Store) Logout(ctx context.Context) {
	access, refresh := s.AccessCredential(), s.RefreshCredential()
	if api, err := s.sender(); err == nil && (access != "" || refresh != "") {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		req, rerr := gateway.NewJSONRequest(http.MethodPost, gateway.PathLogout, map[string]string{"refresh_token": refresh})
		if rerr == nil {
			if _, serr := api.Send(lctx, req); serr != nil {
				logger.Debugf("credentials: server-side logout ignored: %v", serr)
			}
		}
		cancel()
	}
	if s.Clear(ctx) {
		logger.Infof("credentials: logged out")
	}
}
