package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MichaelKMarwa/recupio/internal/auth"
	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/event"
	"github.com/MichaelKMarwa/recupio/internal/provider"
	"github.com/MichaelKMarwa/recupio/internal/service"
	"github.com/MichaelKMarwa/recupio/internal/storage"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
	"github.com/MichaelKMarwa/recupio/pkg/health"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/middleware"
)

// ============================================================================
// In-memory credential store
// ============================================================================

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	prefs   map[string]json.RawMessage
	premium map[string]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:    make(map[string]*domain.User),
		prefs:   make(map[string]json.RawMessage),
		premium: make(map[string]bool),
	}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "email", user.Email)
		}
	}
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	cp := *u
	cp.IsPremium = r.premium[id]
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundMessage("user not found")
}

func (r *memUserRepo) TouchLastLogin(context.Context, string, time.Time) error { return nil }
func (r *memUserRepo) TouchActivity(context.Context, string, time.Time) error  { return nil }

func (r *memUserRepo) IsPremium(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, apperrors.NotFound("user", id)
	}
	return r.premium[id], nil
}

func (r *memUserRepo) UpgradeToPremium(_ context.Context, userID string, _ *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return apperrors.NotFound("user", userID)
	}
	u.Role = domain.RolePremium
	r.premium[userID] = true
	return nil
}

func (r *memUserRepo) GetPreferences(_ context.Context, userID string) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prefs[userID]; ok {
		return p, nil
	}
	return json.RawMessage(`{}`), nil
}

func (r *memUserRepo) SavePreferences(_ context.Context, userID string, prefs json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = prefs
	return nil
}

func (r *memUserRepo) setPremium(userID string, premium bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.premium[userID] = premium
}

func (r *memUserRepo) delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, userID)
}

func (r *memUserRepo) passwordMatches(email, password string) bool {
	u, err := r.GetByEmail(context.Background(), email)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type memGuestRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.GuestSession
	prefs    map[string]*domain.GuestPreferences
}

func newMemGuestRepo() *memGuestRepo {
	return &memGuestRepo{
		sessions: make(map[string]*domain.GuestSession),
		prefs:    make(map[string]*domain.GuestPreferences),
	}
}

func (r *memGuestRepo) Create(_ context.Context, s *domain.GuestSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

func (r *memGuestRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.GuestSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("guest session", sessionID)
	}
	cp := *s
	return &cp, nil
}

func (r *memGuestRepo) TouchLastAccessed(_ context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.LastAccessedAt = at
	}
	return nil
}

func (r *memGuestRepo) SavePreferences(_ context.Context, p *domain.GuestPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.prefs[p.SessionID] = &cp
	return nil
}

func (r *memGuestRepo) GetPreferences(_ context.Context, sessionID string) (*domain.GuestPreferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[sessionID]
	if !ok {
		return nil, apperrors.NotFoundMessage("guest preferences not found")
	}
	cp := *p
	return &cp, nil
}

// expire moves the session's expiry into the past.
func (r *memGuestRepo) expire(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.ExpiresAt = time.Now().UTC().Add(-time.Second)
	}
}

func (r *memGuestRepo) internalID(sessionID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID].ID
}

type memResetRepo struct {
	mu     sync.Mutex
	users  *memUserRepo
	tokens map[string]*domain.PasswordResetToken
	last   string
}

func newMemResetRepo(users *memUserRepo) *memResetRepo {
	return &memResetRepo{users: users, tokens: make(map[string]*domain.PasswordResetToken)}
}

func (r *memResetRepo) InvalidateActive(_ context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.UsedAt == nil {
			used := now
			t.UsedAt = &used
		}
	}
	return nil
}

func (r *memResetRepo) Create(_ context.Context, t *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.Token] = &cp
	r.last = t.Token
	return nil
}

func (r *memResetRepo) GetActive(_ context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.UsedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, apperrors.NotFoundMessage("reset token not found")
	}
	cp := *t
	return &cp, nil
}

func (r *memResetRepo) Consume(_ context.Context, tokenID, userID, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID != tokenID {
			continue
		}
		if t.UsedAt != nil {
			return apperrors.InvalidArgument("invalid or expired reset token")
		}
		used := now
		t.UsedAt = &used
	}

	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.byID[userID]
	if !ok {
		return apperrors.NotFound("user", userID)
	}
	u.PasswordHash = hash
	return nil
}

func (r *memResetRepo) lastToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ============================================================================
// Mock domain repositories
// ============================================================================

type mockFacilityRepo struct {
	mock.Mock
}

func (m *mockFacilityRepo) List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Facility), args.Int(1), args.Error(2)
}

func (m *mockFacilityRepo) GetByID(ctx context.Context, id string) (*domain.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Facility), args.Error(1)
}

func (m *mockFacilityRepo) Search(ctx context.Context, q, facilityType, zipCode string) ([]domain.Facility, error) {
	args := m.Called(ctx, q, facilityType, zipCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Facility), args.Error(1)
}

func (m *mockFacilityRepo) BestMatch(ctx context.Context, itemIDs []string, zipCode string) (*domain.Facility, int, error) {
	args := m.Called(ctx, itemIDs, zipCode)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.Facility), args.Int(1), args.Error(2)
}

type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockItemRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockItemRepo) GetCategory(ctx context.Context, id string) (*domain.CategoryWithItems, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategoryWithItems), args.Error(1)
}

func (m *mockItemRepo) PopularCategories(ctx context.Context, limit int) ([]domain.PopularCategory, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PopularCategory), args.Error(1)
}

func (m *mockItemRepo) CategoryStats(ctx context.Context, id string) (*domain.CategoryStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategoryStats), args.Error(1)
}

func (m *mockItemRepo) CarbonOffsets(ctx context.Context, itemIDs []string) (map[string]float64, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

type mockDropOffRepo struct {
	mock.Mock
}

func (m *mockDropOffRepo) Create(ctx context.Context, d *domain.DropOff, impact *domain.ImpactMetric) error {
	args := m.Called(ctx, d, impact)
	return args.Error(0)
}

func (m *mockDropOffRepo) GetByID(ctx context.Context, id string) (*domain.DropOff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepo) ListByUser(ctx context.Context, userID string) ([]domain.DropOff, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepo) Recent(ctx context.Context, userID string, limit int) ([]domain.DropOff, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepo) Export(ctx context.Context, userID string, filter domain.ExportFilter) ([]domain.ExportRow, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExportRow), args.Error(1)
}

func (m *mockDropOffRepo) TotalValue(ctx context.Context, dropOffID string) (float64, error) {
	args := m.Called(ctx, dropOffID)
	return args.Get(0).(float64), args.Error(1)
}

type mockPremiumRepo struct {
	mock.Mock
}

func (m *mockPremiumRepo) ListActive(ctx context.Context) ([]domain.PremiumFeature, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumRepo) GetActive(ctx context.Context, id string) (*domain.PremiumFeature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumRepo) Activate(ctx context.Context, userID, featureID string, at time.Time) error {
	args := m.Called(ctx, userID, featureID, at)
	return args.Error(0)
}

func (m *mockPremiumRepo) ListForUser(ctx context.Context, userID string) ([]domain.PremiumFeature, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumRepo) Deactivate(ctx context.Context, userID, featureID string) error {
	args := m.Called(ctx, userID, featureID)
	return args.Error(0)
}

// ============================================================================
// Test server
// ============================================================================

const testSecret = "handler-test-secret"

type testServer struct {
	t          *testing.T
	handler    http.Handler
	users      *memUserRepo
	guests     *memGuestRepo
	resets     *memResetRepo
	facilities *mockFacilityRepo
	items      *mockItemRepo
	dropOffs   *mockDropOffRepo
	features   *mockPremiumRepo
	tokens     *auth.TokenManager
	registry   *auth.MemoryRegistry
	authz      *Authorizer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()

	ts := &testServer{
		t:          t,
		users:      newMemUserRepo(),
		guests:     newMemGuestRepo(),
		facilities: new(mockFacilityRepo),
		items:      new(mockItemRepo),
		dropOffs:   new(mockDropOffRepo),
		features:   new(mockPremiumRepo),
		tokens:     auth.NewTokenManager(testSecret, time.Hour),
		registry:   auth.NewMemoryRegistry(),
	}
	ts.resets = newMemResetRepo(ts.users)

	producer := event.NewProducer(nil, logger)
	guestSvc := service.NewGuestService(ts.guests, 24*time.Hour, logger)
	identity := service.NewIdentityService(ts.tokens, ts.registry, ts.users, guestSvc, logger)
	ts.authz = NewAuthorizer(identity, logger)

	h := Handlers{
		Auth: NewAuthHandler(
			service.NewAuthService(ts.users, ts.tokens, ts.registry, producer, bcrypt.MinCost, logger),
			guestSvc,
			service.NewPasswordService(ts.users, ts.resets, producer, time.Hour, bcrypt.MinCost, logger),
			logger,
		),
		Facility: NewFacilityHandler(service.NewFacilityService(ts.facilities, logger), logger),
		Catalog:  NewCatalogHandler(service.NewItemService(ts.items), service.NewImpactService(nil), logger),
		DropOff: NewDropOffHandler(
			service.NewDropOffService(ts.dropOffs, ts.items, producer, logger),
			service.NewReceiptService(ts.dropOffs, nil, storage.NewMemoryStore("receipts"), logger),
			logger,
		),
		Billing: NewBillingHandler(
			service.NewPaymentService(service.PaymentRepos{}, provider.NewMockProvider(10000), storage.NewMemoryStore("billing"), producer, logger),
			service.NewSubscriptionService(nil, nil, logger),
			service.NewPremiumService(ts.features, logger),
			logger,
		),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts.handler = NewRouter(ctx, h, ts.authz, health.NewHandler(), RouterConfig{
		ServiceName: "recupio-test",
		CORS:        middleware.DefaultCORSConfig(),
	}, logger)
	return ts
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withGuest(sessionID string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.GuestSessionHeader, sessionID) }
}

func (ts *testServer) do(method, target string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(ts.t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token.
func (ts *testServer) register(email string) (token, userID string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data authResponse `json:"data"`
	}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Token, resp.Data.User.ID
}

// guestSession creates a guest session through the API.
func (ts *testServer) guestSession() string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/auth/guest-session", nil)
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data guestSessionResponse `json:"data"`
	}
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.SessionID
}

// decodeResponse reads the response body into the standard Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// errorCode returns the envelope's error code, or "" for a success.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, rec)
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

// dataMap decodes the envelope's data into a generic map.
func dataMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
