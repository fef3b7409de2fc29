package entity

import (
	"time"

	"ai-screenwriting-be/pkg/ai/dispatcher"

	"github.com/google/uuid"
)

// AgentSession is a live engine instance bound to one persisted chat session.
type AgentSession struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	Title      string
	Dispatcher *dispatcher.Dispatcher
	CreatedAt  time.Time

	// Release detaches the session's store listeners. Called once on eviction.
	Release func()
}
