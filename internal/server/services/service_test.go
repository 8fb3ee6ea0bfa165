package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/dbx"
	"github.com/avolkovs/authcore/internal/logging"
	"github.com/avolkovs/authcore/internal/server/auth"
	"github.com/avolkovs/authcore/internal/server/models"
	"github.com/avolkovs/authcore/internal/server/repositories/users"
	"github.com/avolkovs/authcore/internal/server/totp"
)

// --- shared fakes ---

// fakeUsersRepo is an in-memory credential store with the same semantics as
// the Postgres implementation: unique emails, conditional enrollment
// promotion, atomic reset-token consumption.
type fakeUsersRepo struct {
	mu   sync.Mutex
	byID map[string]*models.User

	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetTwoFactorPending(ctx context.Context, userID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.TwoFactor = models.TwoFactor{State: models.TwoFactorPending, Secret: secret}
	return nil
}

func (f *fakeUsersRepo) ConfirmTwoFactor(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok || u.TwoFactor.State != models.TwoFactorPending {
		return common.ErrorNotFound
	}
	u.TwoFactor.State = models.TwoFactorEnabled
	return nil
}

func (f *fakeUsersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.TwoFactor = models.TwoFactor{}
	return nil
}

func (f *fakeUsersRepo) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpires = &expires
	return nil
}

func (f *fakeUsersRepo) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ResetToken == token && u.ResetTokenExpires != nil && !u.ResetTokenExpires.Before(time.Now()) {
			u.PasswordHash = newPasswordHash
			u.ResetToken = ""
			u.ResetTokenExpires = nil
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return m.u }

type recordingNotifier struct {
	mu    sync.Mutex
	email string
	link  string
	calls int
	err   error
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.email = email
	n.link = resetLink
	return n.err
}

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService("access-secret", "refresh-secret", "temp-secret",
		15*time.Minute, 7*24*time.Hour, 5*time.Minute)
}

type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	repo     *fakeUsersRepo
	tokens   *auth.TokenService
	totp     *totp.Service
	notifier *recordingNotifier
	auth     *AuthService
	twofa    *TwoFactorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := newFakeUsersRepo()
	rm := &fakeRepoManager{u: repo}
	tokens := newTestTokens()
	totpService := totp.NewService("authcore")
	notifier := &recordingNotifier{}
	logger := nopLogger()

	return &testEnv{
		db:       db,
		mock:     mock,
		repo:     repo,
		tokens:   tokens,
		totp:     totpService,
		notifier: notifier,
		auth: NewAuthService(db, rm, tokens,
			auth.NewResetTokenSource(32, 15*time.Minute),
			totpService, notifier, logger, "http://localhost:8080"),
		twofa: NewTwoFactorService(db, rm, totpService, logger),
	}
}
