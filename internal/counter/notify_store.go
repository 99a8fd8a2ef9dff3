package counter

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var _ Store = (*NotifyingStore)(nil)

// UpdateMessage is published after every successful Put.
type UpdateMessage struct {
	ID          string `json:"id"`
	Count       int64  `json:"count"`
	LastUpdated string `json:"last_updated"`
}

// NotifyingStore publishes each written record to a Pub/Sub topic. A failed
// publish is logged; the write itself has already succeeded.
type NotifyingStore struct {
	Store
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.SugaredLogger
}

func NewNotifyingStore(ctx context.Context, inner Store, projectID, topicID string, logger *zap.SugaredLogger, opts ...option.ClientOption) (*NotifyingStore, error) {
	cl, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	return newNotifyingStore(inner, cl, cl.Topic(topicID), logger), nil
}

func newNotifyingStore(inner Store, cl *pubsub.Client, topic *pubsub.Topic, logger *zap.SugaredLogger) *NotifyingStore {
	return &NotifyingStore{Store: inner, client: cl, topic: topic, logger: logger}
}

func (s *NotifyingStore) Put(ctx context.Context, rec *Record) error {
	if err := s.Store.Put(ctx, rec); err != nil {
		return err
	}

	b, err := json.Marshal(UpdateMessage{ID: rec.ID, Count: rec.Count, LastUpdated: rec.LastUpdated})
	if err != nil {
		s.logger.Errorf("json.Marshal: %v", err)
		return nil
	}
	res := s.topic.Publish(ctx, &pubsub.Message{
		Data:       b,
		Attributes: map[string]string{"id": rec.ID},
	})
	if msgID, err := res.Get(ctx); err != nil {
		s.logger.Errorf("Publish: topic=%s, %v", s.topic.ID(), err)
	} else {
		s.logger.Debugf("published msgID=%s, count=%d", msgID, rec.Count)
	}
	return nil
}

func (s *NotifyingStore) Close() error {
	s.topic.Stop()
	if err := s.client.Close(); err != nil {
		s.logger.Warnf("pubsub Close: %v", err)
	}
	return s.Store.Close()
}
