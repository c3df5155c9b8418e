package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/mocks"
	"wa-gateway/runtime"
)

func newService(t *testing.T) (*GatewayService, *mocks.MockIOrchestrator, *mocks.MockIRegistry, *mocks.MockITracker) {
	t.Helper()
	ctrl := gomock.NewController(t)
	orchestrator := mocks.NewMockIOrchestrator(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	tracker := mocks.NewMockITracker(ctrl)
	reader := runtime.NewChatReader(slog.Default(), registry, tracker, orchestrator)
	return NewGatewayService(orchestrator, reader, registry), orchestrator, registry, tracker
}

func TestGatewayService_Connect_Delegates(t *testing.T) {
	req := require.New(t)
	service, orchestrator, _, _ := newService(t)

	orchestrator.EXPECT().
		EnsureConnected(gomock.Any(), "loc-1", "user-7").
		Return(domain.StatusConnecting, nil)

	status, err := service.Connect(context.Background(), "loc-1", "user-7")

	req.NoError(err)
	req.Equal(domain.StatusConnecting, status)
}

func TestGatewayService_RawChats_Maps_Handles(t *testing.T) {
	req := require.New(t)
	service, _, registry, _ := newService(t)
	ctrl := gomock.NewController(t)

	handle := mocks.NewMockChatHandle(ctrl)
	handle.EXPECT().Name().Return("Reception")
	handle.EXPECT().IsGroup().Return(false)

	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().Chats(gomock.Any()).Return([]contract.ChatHandle{handle}, nil)

	registry.EXPECT().
		Get("loc-1").
		Return(&contract.Connection{Location: "loc-1", Engine: engine}, true)

	chats, err := service.RawChats(context.Background(), "loc-1")

	req.NoError(err)
	req.Equal([]RawChat{{Name: "Reception", IsGroup: false}}, chats)
}

func TestGatewayService_Sessions_Snapshot(t *testing.T) {
	req := require.New(t)
	service, _, registry, _ := newService(t)

	readyAt := time.Now()
	registry.EXPECT().Locations().Return([]string{"loc-1", "loc-2"})
	registry.EXPECT().Get("loc-1").Return(&contract.Connection{
		Location: "loc-1",
		Info:     domain.ClientInfo{UserID: "5491155550000", Platform: "android", PushName: "Front desk"},
		ReadyAt:  readyAt,
	}, true)
	// Dropped between Locations and Get: skipped, not an error
	registry.EXPECT().Get("loc-2").Return(nil, false)

	sessions := service.Sessions()

	req.Len(sessions, 1)
	req.Equal("loc-1", sessions[0].LocationIdentifier)
	req.Equal("5491155550000", sessions[0].Phone)
	req.Equal(readyAt, sessions[0].ReadyAt)
}
