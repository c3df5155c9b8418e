// Package services exposes the gateway's operations to the transport layer.
package services

import (
	"context"
	"time"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/runtime"
)

type IGatewayService interface {
	Connect(ctx context.Context, location, userID string) (domain.Status, error)
	Chats(ctx context.Context, location string, limit int) (domain.ChatCollection, error)
	RawChats(ctx context.Context, location string) ([]RawChat, error)
	Sessions() []SessionInfo
}

// RawChat is the unprocessed chat listing, without message bodies.
type RawChat struct {
	Name    string `json:"name"`
	IsGroup bool   `json:"groupChat"`
}

// SessionInfo describes one live connection for operators.
type SessionInfo struct {
	LocationIdentifier string    `json:"location_identifier"`
	Phone              string    `json:"phone"`
	Platform           string    `json:"platform"`
	PushName           string    `json:"pushname"`
	ReadyAt            time.Time `json:"ready_at"`
}

type GatewayService struct {
	orchestrator contract.IOrchestrator
	reader       *runtime.ChatReader
	registry     contract.IRegistry
}

func NewGatewayService(orchestrator contract.IOrchestrator, reader *runtime.ChatReader, registry contract.IRegistry) *GatewayService {
	return &GatewayService{
		orchestrator: orchestrator,
		reader:       reader,
		registry:     registry,
	}
}

func (s *GatewayService) Connect(ctx context.Context, location, userID string) (domain.Status, error) {
	return s.orchestrator.EnsureConnected(ctx, location, userID)
}

func (s *GatewayService) Chats(ctx context.Context, location string, limit int) (domain.ChatCollection, error) {
	return s.reader.ListChats(ctx, location, limit)
}

func (s *GatewayService) RawChats(ctx context.Context, location string) ([]RawChat, error) {
	handles, err := s.reader.RawChats(ctx, location)
	if err != nil {
		return nil, err
	}
	chats := make([]RawChat, 0, len(handles))
	for _, handle := range handles {
		chats = append(chats, RawChat{Name: handle.Name(), IsGroup: handle.IsGroup()})
	}
	return chats, nil
}

// Sessions lists every registered connection, for the operator endpoint.
func (s *GatewayService) Sessions() []SessionInfo {
	locations := s.registry.Locations()
	sessions := make([]SessionInfo, 0, len(locations))
	for _, location := range locations {
		conn, ok := s.registry.Get(location)
		if !ok {
			continue
		}
		sessions = append(sessions, SessionInfo{
			LocationIdentifier: conn.Location,
			Phone:              conn.Info.UserID,
			Platform:           conn.Info.Platform,
			PushName:           conn.Info.PushName,
			ReadyAt:            conn.ReadyAt,
		})
	}
	return sessions
}
