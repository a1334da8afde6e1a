package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/collexus/erp/backend/internal/auth"
	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/domain"
	"github.com/collexus/erp/backend/internal/notify"
	"github.com/collexus/erp/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeMailer struct {
	mutex    sync.Mutex
	messages []domain.MailMessage
	err      error
}

func (f *fakeMailer) PublishMail(_ context.Context, message domain.MailMessage) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMailer) Messages() []domain.MailMessage {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return append([]domain.MailMessage(nil), f.messages...)
}

// brokenStore fails every lookup the way an unreachable database would.
type brokenStore struct {
	repository.AccountStore
}

func (brokenStore) GetAccountByEmail(context.Context, string) (*domain.Account, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

type testEnv struct {
	server    *httptest.Server
	store     *repository.MemoryStore
	mailer    *fakeMailer
	redis     *miniredis.Miniredis
	observers *notify.Group
	cfg       *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.MinPasswordLength = 6
	cfg.OTP.Expiration = 900
	cfg.Redis.OperationTimeout = 3
	cfg.Notify.SendBuffer = 16
	cfg.NewUser.PasswordLength = 12
	cfg.InitialAdmin.Email = "root@college.edu"
	return cfg
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedAccounts(t *testing.T) []*domain.Account {
	t.Helper()
	financial := domain.AdminFinancial
	academic := domain.AdminAcademic
	hod := domain.FacultyHOD
	return []*domain.Account{
		{ID: "admin-fin", Name: "Fin Admin", Email: "fin@college.edu", PasswordHash: hashed(t, "finpass"), Role: domain.RoleAdmin, AdminSubRole: &financial},
		{ID: "admin-acad", Name: "Acad Admin", Email: "acad@college.edu", PasswordHash: hashed(t, "acadpass"), Role: domain.RoleAdmin, AdminSubRole: &academic},
		{ID: "root", Name: "Administrator", Email: "root@college.edu", PasswordHash: hashed(t, "rootpass"), Role: domain.RoleAdmin, AdminSubRole: &academic},
		{ID: "fac-hod", Name: "Dr. Rao", Email: "hod@college.edu", PasswordHash: hashed(t, "hodpass"), Role: domain.RoleFaculty, FacultySubRole: &hod},
		{ID: "stu-asha", Name: "Asha", Email: "asha@college.edu", PasswordHash: hashed(t, "ashapass"), Role: domain.RoleStudent},
	}
}

func newTestEnvWithStore(t *testing.T, store repository.AccountStore, memory *repository.MemoryStore) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mailer := &fakeMailer{}
	observers := notify.NewGroup(notify.AdminObservers, logger)
	notifier := notify.NewNotifier(store, observers, logger)
	resolver := auth.NewResolver(store, nil, logger)

	h, err := NewHandler(cfg, store, resolver, mailer, rdb, observers, notifier)
	require.NoError(t, err)
	h.RegisterRoutes()

	server := httptest.NewServer(h.Mux)
	t.Cleanup(server.Close)

	return &testEnv{
		server:    server,
		store:     memory,
		mailer:    mailer,
		redis:     mr,
		observers: observers,
		cfg:       cfg,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore(seedAccounts(t)...)
	return newTestEnvWithStore(t, store, store)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	require.NotContains(t, string(raw), "passwordHash")
	require.NotContains(t, string(raw), "$2a$")
	return resp, env
}

func (e *testEnv) login(t *testing.T, body map[string]string) string {
	t.Helper()

	resp, env := e.do(t, http.MethodPost, "/auth/login", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	var data loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

type recordingObserver struct {
	id       string
	mutex    sync.Mutex
	received []domain.StudentCountUpdate
}

func (o *recordingObserver) ID() string {
	return o.id
}

func (o *recordingObserver) Send(update domain.StudentCountUpdate) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.received = append(o.received, update)
	return nil
}

func (o *recordingObserver) Received() []domain.StudentCountUpdate {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	return append([]domain.StudentCountUpdate(nil), o.received...)
}
