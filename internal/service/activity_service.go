package service

import (
	"context"

	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/websocket"
	"ai-screenwriting-be/pkg/events"
	pktNats "ai-screenwriting-be/pkg/nats"

	"github.com/google/uuid"
)

const (
	activityLogModule = "ActivityService"
	activityDurable   = "activity-service-worker"
)

// ActivityService relays entity events from the bus to the session that produced them,
// on whichever instance holds its WebSocket.
type ActivityService struct {
	subscriber *pktNats.Subscriber
	hub        SessionBroadcaster
	logger     logger.ILogger
}

func NewActivityService(sub *pktNats.Subscriber, hub SessionBroadcaster, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		hub:        hub,
		logger:     log,
	}
}

func (s *ActivityService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, pktNats.Subject(events.EntityCreated), activityDurable, s.handleEvent); err != nil {
		return err
	}
	s.logger.Info(activityLogModule, "Listening for entity events", nil)
	return nil
}

func (s *ActivityService) handleEvent(_ context.Context, event events.Event) error {
	if event.EventType() != events.EntityCreated {
		return nil
	}
	sessionID, err := uuid.Parse(events.String(event, "session_id"))
	if err != nil {
		s.logger.Warn(activityLogModule, "Entity event without session", map[string]interface{}{"payload": event.Payload()})
		return nil
	}
	s.hub.SendSession(sessionID, websocket.FrameEntityCreated, event.Payload())
	return nil
}
