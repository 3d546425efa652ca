package service

import (
	"context"
	"encoding/json"
	"log"

	"quickhand-be/internal/dto"
	"quickhand-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	memoryStore memory.Store
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	memoryStore memory.Store,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		memoryStore: memoryStore,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
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
	var payload dto.MemoryAppendMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal memory append message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if len(payload.Entries) == 0 {
		msg.Ack()
		return
	}

	log.Printf("[INFO] Appending %d memories for user %s (scope %s)", len(payload.Entries), payload.UserId, payload.Scope)

	if err := cs.memoryStore.Append(ctx, payload.UserId, payload.Scope, payload.Entries); err != nil {
		log.Printf("[ERROR] Failed to append memories for user %s: %v", payload.UserId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
