package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	"github.com/sidevault/sidevault/internal/credentials/http/dto"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

func newAuditEntry(userID uuid.UUID, provider string, oldVersion, newVersion uint) *domain.RotationAuditEntry {
	return &domain.RotationAuditEntry{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     userID,
		Provider:   provider,
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestRotationHandler_RotateHandler(t *testing.T) {
	t.Run("Success_NoBody", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateOneFn: func(_ context.Context, gotUser uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "openai", provider)
				assert.Zero(t, targetVersion)
				return newAuditEntry(gotUser, provider, 1, 2), nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotate", nil)
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.RotateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotationAuditResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, uint(1), response.OldVersion)
		assert.Equal(t, uint(2), response.NewVersion)
		assert.True(t, response.Success)
	})

	t.Run("Success_ExplicitTargetVersion", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateOneFn: func(_ context.Context, gotUser uuid.UUID, provider string, targetVersion uint) (*domain.RotationAuditEntry, error) {
				assert.Equal(t, uint(7), targetVersion)
				return newAuditEntry(gotUser, provider, 2, 7), nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotate",
			dto.RotateCredentialRequest{TargetVersion: 7})
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.RotateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateOneFn: func(context.Context, uuid.UUID, string, uint) (*domain.RotationAuditEntry, error) {
				return nil, domain.ErrCredentialNotFound
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotate", nil)
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.RotateHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRotationHandler_RotateAllHandler(t *testing.T) {
	t.Run("Success_PartialFailureStillOK", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateAllFn: func(_ context.Context, input credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error) {
				assert.Equal(t, userID, input.UserID)
				assert.False(t, input.RollbackOnFailure)
				return &credentialsUseCase.RotateAllResult{
					Results: []credentialsUseCase.ProviderRotationResult{
						{Provider: "anthropic", Success: true, OldVersion: 1, NewVersion: 2},
						{Provider: "openai", Success: false, OldVersion: 1, Error: "aead authentication failed"},
					},
					Succeeded: 1,
					Failed:    1,
				}, nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/rotate", nil)
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}

		handler.RotateAllHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotateAllResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Results, 2)
		assert.Equal(t, 1, response.Succeeded)
		assert.Equal(t, 1, response.Failed)
		assert.False(t, response.RolledBack)
	})

	t.Run("Success_RollbackRequested", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateAllFn: func(_ context.Context, input credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error) {
				assert.True(t, input.RollbackOnFailure)
				assert.Equal(t, []string{"openai"}, input.Providers)
				return &credentialsUseCase.RotateAllResult{
					Results:    []credentialsUseCase.ProviderRotationResult{{Provider: "openai", Success: false, Error: "rolled back"}},
					Failed:     1,
					RolledBack: true,
				}, nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/rotate",
			dto.RotateAllRequest{Providers: []string{"openai"}, RollbackOnFailure: true})
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}

		handler.RotateAllHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotateAllResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.True(t, response.RolledBack)
	})

	t.Run("Error_InvalidProviderInBody", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		handler := NewRotationHandler(&stubRotationUseCase{}, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/rotate",
			dto.RotateAllRequest{Providers: []string{"Not Valid!"}})
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}

		handler.RotateAllHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NoCredentials", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			rotateAllFn: func(context.Context, credentialsUseCase.RotateAllInput) (*credentialsUseCase.RotateAllResult, error) {
				return nil, domain.ErrNoCredentials
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/rotate", nil)
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}

		handler.RotateAllHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRotationHandler_ScheduleHandler(t *testing.T) {
	t.Run("Success_FutureSchedule", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		runAt := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
		useCase := &stubRotationUseCase{
			scheduleFn: func(_ context.Context, gotUser uuid.UUID, provider string, gotRunAt time.Time) (*domain.RotationSchedule, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "openai", provider)
				assert.True(t, runAt.Equal(gotRunAt))
				now := time.Now().UTC()
				return &domain.RotationSchedule{
					ID:        uuid.Must(uuid.NewV7()),
					UserID:    gotUser,
					Provider:  provider,
					RunAt:     gotRunAt,
					CreatedAt: now,
					UpdatedAt: now,
				}, nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotation-schedule",
			dto.ScheduleRotationRequest{RunAt: runAt})
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.RotationScheduleResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.True(t, runAt.Equal(response.RunAt))
	})

	t.Run("Error_MissingRunAt", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		handler := NewRotationHandler(&stubRotationUseCase{}, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotation-schedule",
			map[string]any{})
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.ScheduleHandler(c)

		// Binding-level required failures surface as 400 before validation runs.
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_PastSchedule", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			scheduleFn: func(context.Context, uuid.UUID, string, time.Time) (*domain.RotationSchedule, error) {
				return nil, domain.ErrScheduleInPast
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodPost, "/v1/users/"+userID.String()+"/credentials/openai/rotation-schedule",
			dto.ScheduleRotationRequest{RunAt: time.Now().UTC().Add(time.Hour)})
		c.Params = gin.Params{
			{Key: "userID", Value: userID.String()},
			{Key: "provider", Value: "openai"},
		}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_input", decodeErrorBody(t, w)["error"])
	})
}

func TestRotationHandler_AuditHandler(t *testing.T) {
	t.Run("Success_DefaultPagination", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			listAuditFn: func(_ context.Context, gotUser uuid.UUID, provider string, offset, limit int) ([]*domain.RotationAuditEntry, error) {
				assert.Equal(t, userID, gotUser)
				assert.Empty(t, provider)
				assert.Equal(t, 0, offset)
				assert.Equal(t, 50, limit)
				return []*domain.RotationAuditEntry{
					newAuditEntry(gotUser, "openai", 2, 3),
					newAuditEntry(gotUser, "openai", 1, 2),
				}, nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodGet, "/v1/users/"+userID.String()+"/rotation-audit", nil)
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}

		handler.AuditHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Entries []dto.RotationAuditResponse `json:"entries"`
		}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Entries, 2)
		assert.Equal(t, uint(3), response.Entries[0].NewVersion)
	})

	t.Run("Success_ProviderFilterAndPaging", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		useCase := &stubRotationUseCase{
			listAuditFn: func(_ context.Context, _ uuid.UUID, provider string, offset, limit int) ([]*domain.RotationAuditEntry, error) {
				assert.Equal(t, "openai", provider)
				assert.Equal(t, 10, offset)
				assert.Equal(t, 5, limit)
				return nil, nil
			},
		}
		handler := NewRotationHandler(useCase, testLogger())

		c, w := createTestContext(http.MethodGet,
			"/v1/users/"+userID.String()+"/rotation-audit?provider=openai&offset=10&limit=5", nil)
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}
		c.Request.URL.RawQuery = "provider=openai&offset=10&limit=5"

		handler.AuditHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"entries":[]}`, w.Body.String())
	})

	t.Run("Error_InvalidProviderQuery", func(t *testing.T) {
		userID := uuid.Must(uuid.NewV7())
		handler := NewRotationHandler(&stubRotationUseCase{}, testLogger())

		c, w := createTestContext(http.MethodGet,
			"/v1/users/"+userID.String()+"/rotation-audit?provider=Bad+Provider", nil)
		c.Params = gin.Params{{Key: "userID", Value: userID.String()}}
		c.Request.URL.RawQuery = "provider=Bad+Provider"

		handler.AuditHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
