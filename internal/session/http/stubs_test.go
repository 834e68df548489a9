package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/session/domain"
	sessionUseCase "github.com/sidevault/sidevault/internal/session/usecase"
)

// stubSessionUseCase implements SessionUseCase with overridable funcs.
type stubSessionUseCase struct {
	createFn     func(ctx context.Context, userID uuid.UUID) (*sessionUseCase.CreateSessionOutput, error)
	getFn        func(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	listByUserFn func(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)
	stopFn       func(ctx context.Context, id uuid.UUID) error
	idleFn       func(ctx context.Context, id uuid.UUID) error
	resumeFn     func(ctx context.Context, id uuid.UUID) error
}

func (s *stubSessionUseCase) Create(ctx context.Context, userID uuid.UUID) (*sessionUseCase.CreateSessionOutput, error) {
	return s.createFn(ctx, userID)
}

func (s *stubSessionUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.getFn(ctx, id)
}

func (s *stubSessionUseCase) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.listByUserFn(ctx, userID)
}

func (s *stubSessionUseCase) Stop(ctx context.Context, id uuid.UUID) error {
	return s.stopFn(ctx, id)
}

func (s *stubSessionUseCase) Idle(ctx context.Context, id uuid.UUID) error {
	return s.idleFn(ctx, id)
}

func (s *stubSessionUseCase) Resume(ctx context.Context, id uuid.UUID) error {
	return s.resumeFn(ctx, id)
}

func (s *stubSessionUseCase) MarkError(context.Context, uuid.UUID) error {
	panic("MarkError is not exposed over HTTP")
}

// stubRegistrationUseCase implements RegistrationUseCase with overridable funcs.
type stubRegistrationUseCase struct {
	registerFn func(ctx context.Context, input *sessionUseCase.RegisterSidecarInput) (*sessionUseCase.RegisterSidecarOutput, error)
	refreshFn  func(ctx context.Context, input *sessionUseCase.RefreshProviderKeysInput) (*sessionUseCase.RefreshProviderKeysOutput, error)
}

func (s *stubRegistrationUseCase) RegisterSidecar(ctx context.Context, input *sessionUseCase.RegisterSidecarInput) (*sessionUseCase.RegisterSidecarOutput, error) {
	return s.registerFn(ctx, input)
}

func (s *stubRegistrationUseCase) RefreshProviderKeys(ctx context.Context, input *sessionUseCase.RefreshProviderKeysInput) (*sessionUseCase.RefreshProviderKeysOutput, error) {
	return s.refreshFn(ctx, input)
}

func newTestSession(userID uuid.UUID, status domain.Status) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return response
}
