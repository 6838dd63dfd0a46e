package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelTaggingEvents = "tagging_events"
)

// 事件类型
const (
	EventLeaderboardUpdated = "leaderboard_updated"
	EventAllAnswered        = "all_answered"
	EventExportFinished     = "export_finished"
)

// Event 广播给所有在线会话的消息
type Event struct {
	Type       string `json:"type"`
	UserID     int64  `json:"user_id,omitempty"`
	QuestionID int64  `json:"question_id,omitempty"`
	Progress   int    `json:"progress"`
	JobID      int64  `json:"job_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布事件
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelTaggingEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	sub := s.client.Subscribe(ctx, ChannelTaggingEvents)
	defer sub.Close()

	// 等待订阅确认，避免订阅生效前的消息丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
