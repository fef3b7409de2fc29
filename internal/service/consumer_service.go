package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/mapper"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerLogModule = "Consumer"

// errPoison marks a message that can never be processed; it is acked and dropped.
var errPoison = errors.New("undecodable message")

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	handle     func(ctx context.Context, payload []byte) error
	logger     logger.ILogger
}

// Consume subscribes to the topic and processes messages until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	err := cs.handle(ctx, msg.Payload)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, errPoison):
		cs.logger.Error(consumerLogModule, "Dropping message", map[string]interface{}{
			"topic":      cs.topicName,
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
	default:
		cs.logger.Warn(consumerLogModule, "Message failed, will retry", map[string]interface{}{
			"topic":      cs.topicName,
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Nack()
	}
}

func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Join(errPoison, err)
	}
	return nil
}

// NewWorkflowConsumer feeds workflow.completed messages to the entity service.
func NewWorkflowConsumer(sub message.Subscriber, entities IEntityService, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: sub,
		topicName:  TopicWorkflowCompleted,
		logger:     log,
		handle: func(ctx context.Context, payload []byte) error {
			var m dto.WorkflowCompletedMessage
			if err := decode(payload, &m); err != nil {
				return err
			}
			return entities.CreateFromWorkflow(ctx, &m)
		},
	}
}

// NewTranscriptConsumer persists transcript.appended messages. Inserts are
// keyed by message ID, so a redelivery stores nothing twice.
func NewTranscriptConsumer(sub message.Subscriber, uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IConsumerService {
	m := mapper.NewAgentMapper()
	return &consumerService{
		subscriber: sub,
		topicName:  TopicTranscriptAppended,
		logger:     log,
		handle: func(ctx context.Context, payload []byte) error {
			var msg dto.TranscriptAppendedMessage
			if err := decode(payload, &msg); err != nil {
				return err
			}
			return uowFactory.NewUnitOfWork(ctx).ChatMessageRepository().
				Create(ctx, m.TranscriptMessage(msg.SessionId, msg.Message))
		},
	}
}
