package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/tokens"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh credential")
	ErrNotFound           = errors.New("user not found")
)

// ValidationError is a rejected registration field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// NotApprovedError is returned by Authenticate for accounts that may not log in yet.
type NotApprovedError struct {
	Status models.Status
	Active bool
}

func (e *NotApprovedError) Error() string {
	if !e.Active {
		return "account disabled"
	}
	return "account " + string(e.Status)
}

// Detail is the user-facing message sent in the 403 body.
func (e *NotApprovedError) Detail() string {
	if !e.Active {
		return "Conta desativada"
	}
	switch e.Status {
	case models.StatusPending:
		return "Sua conta está aguardando aprovação do administrador"
	case models.StatusRejected:
		return "Sua solicitação de acesso foi rejeitada"
	case models.StatusSuspended:
		return "Sua conta está suspensa"
	}
	return "Conta não aprovada"
}

// TokenPair is the body returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service encapsulates account, approval and credential-issuing logic of the dev backend
type Service struct {
	cfg     *config.Config
	repo    UserRepository
	refresh RefreshStore
	now     func() time.Time
}

func NewService(cfg *config.Config, r UserRepository, rs RefreshStore) *Service {
	if rs == nil {
		rs = NewMemoryRefreshStore()
	}
	return &Service{cfg: cfg, repo: r, refresh: rs, now: time.Now}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validate(p models.RegistrationProfile) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(p.Email)); err != nil {
		return &ValidationError{Field: "email", Msg: "value is not a valid email address"}
	}
	if utf8.RuneCountInString(p.Password) < 8 {
		return &ValidationError{Field: "password", Msg: "ensure this value has at least 8 characters"}
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.FullName)); n < 3 || n > 255 {
		return &ValidationError{Field: "full_name", Msg: "ensure this value has between 3 and 255 characters"}
	}
	return nil
}

// Register creates a pending account.
func (s *Service) Register(ctx context.Context, p models.RegistrationProfile) (*models.Identity, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{
		Identity: models.Identity{
			Email:       normEmail(p.Email),
			DisplayName: strings.TrimSpace(p.FullName),
			Company:     p.Company,
			Phone:       p.Phone,
			Role:        models.RoleStandard,
			Status:      models.StatusPending,
			IsActive:    true,
			CreatedAt:   s.now().UTC(),
		},
		PasswordHash: hash,
		Message:      p.Message,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	logger.Infof("users: registered %s (id=%d) pending approval", a.Email, a.ID)
	return a.Identity.Clone(), nil
}

// SeedAdmin makes sure an approved admin account exists.
func (s *Service) SeedAdmin(ctx context.Context, email, password, name string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil || existing != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	a := &Account{
		Identity: models.Identity{
			Email: normEmail(email), DisplayName: name,
			Role: models.RoleAdmin, Status: models.StatusApproved, IsActive: true,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: hash,
	}
	return s.repo.Create(ctx, a)
}

// Authenticate checks the password and the approval state.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a == nil || !CheckPasswordHash(password, a.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive || a.Status != models.StatusApproved {
		return nil, &NotApprovedError{Status: a.Status, Active: a.IsActive}
	}
	now := s.now().UTC()
	a.LastLogin = &now
	if err := s.repo.Update(ctx, a); err != nil {
		logger.Warnf("users: recording last login for %d: %v", a.ID, err)
	}
	return a, nil
}

// IssuePair creates a signed access token and a fresh refresh credential.
func (s *Service) IssuePair(ctx context.Context, id *models.Identity) (*TokenPair, error) {
	access, err := tokens.GenerateAccessToken(s.cfg, id, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Issue(ctx, id.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh credential: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh redeems a refresh credential (revoking it) and issues a new pair.
// Accounts that lost their approval cannot refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}
	uid, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Approved() {
		return nil, ErrInvalidRefresh
	}
	return s.IssuePair(ctx, &a.Identity)
}

// RefreshOwner returns the user a live refresh credential belongs to.
func (s *Service) RefreshOwner(ctx context.Context, refreshToken string) (int64, error) {
	return s.refresh.Owner(ctx, refreshToken)
}

// Logout revokes every refresh credential of the user.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.refresh.RevokeAll(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Identity, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a.Identity.Clone(), nil
}

// AccessRequest is a pending registration as listed to admins.
type AccessRequest struct {
	models.Identity
	Message string `json:"message,omitempty"`
}

func (s *Service) PendingRequests(ctx context.Context) ([]AccessRequest, error) {
	accts, err := s.repo.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, err
	}
	out := make([]AccessRequest, 0, len(accts))
	for _, a := range accts {
		out = append(out, AccessRequest{Identity: a.Identity, Message: a.Message})
	}
	return out, nil
}

// Approve moves an account to approved and re-enables it.
func (s *Service) Approve(ctx context.Context, id int64) (*models.Identity, error) {
	return s.setStatus(ctx, id, models.StatusApproved, true)
}

// Suspend blocks an account and revokes its refresh credentials, so its
// next refresh fails and the client session ends.
func (s *Service) Suspend(ctx context.Context, id int64) (*models.Identity, error) {
	ident, err := s.setStatus(ctx, id, models.StatusSuspended, true)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.RevokeAll(ctx, id); err != nil {
		logger.Warnf("users: revoking refresh credentials of %d: %v", id, err)
	}
	return ident, nil
}

func (s *Service) setStatus(ctx context.Context, id int64, st models.Status, active bool) (*models.Identity, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	a.Status = st
	a.IsActive = active
	now := s.now().UTC()
	a.UpdatedAt = &now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	logger.Infof("users: account %d is now %s", id, st)
	return a.Identity.Clone(), nil
}
