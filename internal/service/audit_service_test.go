package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-custody/internal/core/domain"
	"wallet-custody/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	done := make(chan *domain.AuditLog, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			done <- entry
			return nil
		},
	)

	svc.Log(context.Background(), domain.NewAuditLog(testUserID, domain.AuditActionWalletCreate,
		map[string]string{"address": "0xAA"}, time.Now()))

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionWalletCreate, entry.Action)
		assert.Equal(t, testUserID, entry.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_SurvivesCallerCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	errs := make(chan error, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.AuditLog) error {
			errs <- ctx.Err()
			return nil
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Log(ctx, domain.NewAuditLog(testUserID, domain.AuditActionWithdraw, nil, time.Now()))

	require.NoError(t, svc.Close(context.Background()))
	assert.NoError(t, <-errs)
}

func TestAuditService_Log_RepoErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	svc.Log(context.Background(), domain.NewAuditLog(testUserID, domain.AuditActionUnlockFailed, nil, time.Now()))
	assert.NoError(t, svc.Close(context.Background()))
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, zerolog.Nop())

	// Should not panic
	svc.Log(context.Background(), domain.NewAuditLog(testUserID, domain.AuditActionIntegrityFailure, nil, time.Now()))
	assert.NoError(t, svc.Close(context.Background()))
}

func TestAuditService_Close_HonoursDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.Nop())

	unblock := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.AuditLog) error {
			<-unblock
			return nil
		},
	)
	svc.Log(context.Background(), domain.NewAuditLog(testUserID, domain.AuditActionWithdraw, nil, time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)

	close(unblock)
	assert.NoError(t, svc.Close(context.Background()))
}
