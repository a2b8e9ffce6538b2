package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/cryptox"
	"github.com/dmitrijs2005/instalatrack/internal/local/repositories/metadata"
	"github.com/dmitrijs2005/instalatrack/internal/logging"
	"github.com/dmitrijs2005/instalatrack/internal/remote/postgres"
)

// Access log actions.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// ProfileStore is the slice of the remote repository used for sign-in.
type ProfileStore interface {
	ProfileByEmail(ctx context.Context, email string) (*postgres.Profile, error)
	LogAccess(ctx context.Context, userID, action string, at time.Time) error
}

// Session is the signed-in user.
type Session struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
	// Offline is set when the session was opened from the cached verifier.
	Offline bool
}

type Service struct {
	profiles ProfileStore
	meta     metadata.Repository
	secret   []byte
	ttl      time.Duration
	log      logging.Logger
	now      func() time.Time
}

// NewService builds the auth service. profiles may be nil for a client that
// never reaches the backend; only offline sign-in is possible then.
func NewService(profiles ProfileStore, meta metadata.Repository, secret []byte, ttl time.Duration, log logging.Logger) *Service {
	return &Service{profiles: profiles, meta: meta, secret: secret, ttl: ttl, log: log, now: time.Now}
}

// Login tries the backend first and falls back to the cached verifier when
// the backend cannot be reached.
func (s *Service) Login(ctx context.Context, email string, password []byte, online bool) (*Session, error) {
	if online && s.profiles != nil {
		sess, err := s.OnlineLogin(ctx, email, password)
		if err == nil || !errors.Is(err, common.ErrUnavailable) {
			return sess, err
		}
		s.log.Warn(ctx, "backend unreachable, trying offline login", "email", email, "error", err)
	}
	return s.OfflineLogin(ctx, email, password)
}

// OnlineLogin checks the password against the profile, caches a fresh
// offline verifier and stores the session token.
func (s *Service) OnlineLogin(ctx context.Context, email string, password []byte) (*Session, error) {
	if s.profiles == nil {
		return nil, common.ErrUnavailable
	}
	profile, err := s.profiles.ProfileByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	if !cryptox.CheckPassword(profile.PasswordHash, password) {
		return nil, common.ErrUnauthorized
	}

	salt := common.GenerateRandByteArray(32)
	verifier := cryptox.MakeVerifier(cryptox.DeriveKey(password, salt))

	sess, err := s.issue(profile.ID, profile.Email, false)
	if err != nil {
		return nil, err
	}
	if err := s.meta.SetMany(ctx, map[string][]byte{
		common.MetaUserEmail:    []byte(profile.Email),
		common.MetaUserID:       []byte(profile.ID),
		common.MetaSalt:         salt,
		common.MetaVerifier:     verifier,
		common.MetaSessionToken: []byte(sess.Token),
	}); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}

	if err := s.profiles.LogAccess(ctx, profile.ID, ActionLogin, s.now()); err != nil {
		s.log.Warn(ctx, "access log failed", "user_id", profile.ID, "error", err)
	}
	return sess, nil
}

// OfflineLogin verifies the password against the verifier cached by the
// last online login of the same user.
func (s *Service) OfflineLogin(ctx context.Context, email string, password []byte) (*Session, error) {
	saved, err := s.meta.List(ctx)
	if err != nil {
		return nil, err
	}
	savedEmail := string(saved[common.MetaUserEmail])
	salt, verifier := saved[common.MetaSalt], saved[common.MetaVerifier]
	if savedEmail == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, common.ErrLocalDataNotAvailable
	}
	if savedEmail != email {
		return nil, common.ErrUnauthorized
	}
	if !cryptox.VerifyOffline(password, salt, verifier) {
		return nil, common.ErrUnauthorized
	}

	sess, err := s.issue(string(saved[common.MetaUserID]), savedEmail, true)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Set(ctx, common.MetaSessionToken, []byte(sess.Token)); err != nil {
		return nil, err
	}
	return sess, nil
}

// Current returns the stored session, or common.ErrUnauthorized when nobody
// is signed in.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	token, err := s.meta.GetString(ctx, common.MetaSessionToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	claims, err := ParseToken(token, s.secret, s.now())
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// EnsureSession reports whether a valid session exists.
func (s *Service) EnsureSession(ctx context.Context) error {
	_, err := s.Current(ctx)
	return err
}

// UserEmail returns the signed-in user's email, or "" when signed out.
func (s *Service) UserEmail(ctx context.Context) string {
	sess, err := s.Current(ctx)
	if err != nil {
		return ""
	}
	return sess.Email
}

// Logout drops the session token. The offline verifier stays so the same
// user can sign in again without network.
func (s *Service) Logout(ctx context.Context) error {
	if sess, err := s.Current(ctx); err == nil && s.profiles != nil && sess.UserID != "" {
		if err := s.profiles.LogAccess(ctx, sess.UserID, ActionLogout, s.now()); err != nil {
			s.log.Warn(ctx, "access log failed", "user_id", sess.UserID, "error", err)
		}
	}
	return s.meta.Delete(ctx, common.MetaSessionToken)
}

// ClearOfflineData wipes every cached credential.
func (s *Service) ClearOfflineData(ctx context.Context) error {
	return s.meta.Clear(ctx)
}

func (s *Service) issue(userID, email string, offline bool) (*Session, error) {
	now := s.now()
	token, err := GenerateToken(userID, email, s.secret, s.ttl, now)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{UserID: userID, Email: email, Token: token, ExpiresAt: now.Add(s.ttl), Offline: offline}, nil
}
