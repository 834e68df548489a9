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

	"github.com/sidevault/sidevault/internal/credentials/domain"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

// stubCredentialUseCase implements CredentialUseCase with overridable funcs.
type stubCredentialUseCase struct {
	storeFn  func(ctx context.Context, userID uuid.UUID, provider string, plaintext []byte) (*domain.Credential, error)
	listFn   func(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error)
	deleteFn func(ctx context.Context, userID uuid.UUID, provider string) error
}

func (s *stubCredentialUseCase) Store(ctx context.Context, userID uuid.UUID, provider string, plaintext []byte) (*domain.Credential, error) {
	return s.storeFn(ctx, userID, provider, plaintext)
}

func (s *stubCredentialUseCase) List(ctx context.Context, userID uuid.UUID) ([]*domain.Credential, error) {
	return s.listFn(ctx, userID)
}

func (s *stubCredentialUseCase) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	return s.deleteFn(ctx, userID, provider)
}

func (s *stubCredentialUseCase) DecryptAll(context.Context, uuid.UUID, []string) (map[string]string, int, error) {
	panic("DecryptAll is not exposed over HTTP")
}

// stubRotationUseCase implements RotationUseCase with overridable funcs.
type stubRotationUseCase struct {
	rotateOneFn func(ctx context.Context, userID uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error)
	rotateAllFn func(ctx context.Context, input credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error)
	scheduleFn  func(ctx context.Context, userID uuid.UUID, provider string, runAt time.Time) (*domain.RotationSchedule, error)
	listAuditFn func(ctx context.Context, userID uuid.UUID, provider string, offset, limit int) ([]*domain.RotationAuditEntry, error)
}

func (s *stubRotationUseCase) RotateOne(ctx context.Context, userID uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error) {
	return s.rotateOneFn(ctx, userID, provider, targetVersion)
}

func (s *stubRotationUseCase) RotateAll(ctx context.Context, input credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error) {
	return s.rotateAllFn(ctx, input)
}

func (s *stubRotationUseCase) ScheduleRotation(ctx context.Context, userID uuid.UUID, provider string, runAt time.Time) (*domain.RotationSchedule, error) {
	return s.scheduleFn(ctx, userID, provider, runAt)
}

func (s *stubRotationUseCase) RunDueSchedules(context.Context, time.Time, int) (int, error) {
	panic("RunDueSchedules is not exposed over HTTP")
}

func (s *stubRotationUseCase) ListAudit(ctx context.Context, userID uuid.UUID, provider string, offset, limit int) ([]*domain.RotationAuditEntry, error) {
	return s.listAuditFn(ctx, userID, provider, offset, limit)
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
