package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/internal/auth"
	subsvc "github.com/awesome-pro/subtrack/internal/subscriptions"
	pkgAuth "github.com/awesome-pro/subtrack/pkg/auth"
	"github.com/awesome-pro/subtrack/pkg/auth/session"
	"github.com/awesome-pro/subtrack/pkg/config"
	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
	pkgerrors "github.com/awesome-pro/subtrack/pkg/errors"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
	return &auth.TokenResponse{AccessToken: "token", RefreshToken: "refresh"}, nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubUserFinder struct{}

func (stubUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Email: "tester@example.com", FirstName: "Test", LastName: "User", IsActive: true}, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) StartTrial(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return &models.User{ID: userID, IsOnTrial: true, SubscriptionStatus: enums.SubscriptionStatusTrial}, nil
}

func (stubSubscriptionService) GetTrialStatus(ctx context.Context, userID uuid.UUID) (*subsvc.TrialStatusDTO, error) {
	return &subsvc.TrialStatusDTO{IsOnTrial: true, DaysLeft: 10}, nil
}

func (stubSubscriptionService) Subscribe(ctx context.Context, userID uuid.UUID, input subsvc.SubscribeInput) (*subsvc.SubscriptionDTO, error) {
	return &subsvc.SubscriptionDTO{UserID: userID, Plan: input.Plan, IsActive: true}, nil
}

func (stubSubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*subsvc.SubscriptionDTO, error) {
	return &subsvc.SubscriptionDTO{UserID: userID, IsActive: false}, nil
}

func (stubSubscriptionService) GetSubscription(ctx context.Context, userID uuid.UUID) (*subsvc.SubscriptionDTO, error) {
	return &subsvc.SubscriptionDTO{UserID: userID}, nil
}

func (stubSubscriptionService) History(ctx context.Context, userID uuid.UUID, limit int) ([]subsvc.HistoryDTO, error) {
	return []subsvc.HistoryDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // *redis.Client
		stubSessionChecker{},
		stubAuthService{},
		stubRegisterService{},
		stubUserFinder{},
		stubSubscriptionService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	payload := pkgAuth.AccessTokenPayload{
		UserID:             uuid.New(),
		Email:              "tester@example.com",
		SubscriptionStatus: enums.SubscriptionStatusTrial,
		JTI:                session.NewAccessID(),
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trial/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestProtectedGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trial/status", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", io.NopCloser(badReader{}))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type badReader struct{}

func (badReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
