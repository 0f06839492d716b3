package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reward-service/internal/models"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RewardEvent is published after a submission is committed
type RewardEvent struct {
	EventType      string                `json:"event_type"`
	UserID         string                `json:"user_id"`
	PlantID        string                `json:"plant_id"`
	ActivityType   models.ActivityType   `json:"activity_type,omitempty"`
	PointsAwarded  int                   `json:"points_awarded"`
	Approved       bool                  `json:"approved"`
	Recommendation models.Recommendation `json:"recommendation,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

const (
	EventRewardGranted        = "reward.granted"
	EventVerificationRejected = "verification.rejected"
	EventManualReviewNeeded   = "verification.manual_review"
)

// RewardPublisher publishes reward events to RabbitMQ. A nil publisher or
// a publisher over a nil connection drops events with a log line, so the
// service runs without a broker.
type RewardPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

// NewRewardPublisher creates a new reward event publisher
func NewRewardPublisher(conn *RabbitMQConnection) *RewardPublisher {
	return &RewardPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// Publish publishes a reward event to the reward_events queue
func (p *RewardPublisher) Publish(ctx context.Context, event RewardEvent) error {
	if p == nil || p.conn == nil || p.conn.Channel == nil {
		slog.Debug("Reward event dropped, no broker connection", "event_type", event.EventType)
		return nil
	}

	// Ensure the queue exists
	_, err := p.conn.Channel.QueueDeclare(
		RewardEventQueue, // queue name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal reward event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",               // exchange
		RewardEventQueue, // routing key (queue name)
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish reward event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Reward event published",
		"queue", RewardEventQueue,
		"event_type", event.EventType,
		"user_id", event.UserID,
		"plant_id", event.PlantID,
	)

	return nil
}

// GetMetrics returns publisher metrics
func (p *RewardPublisher) GetMetrics() map[string]any {
	return map[string]any{
		"messages_published": p.messagesPublished,
		"messages_failed":    p.messagesFailed,
		"last_publish_time":  p.lastPublishTime,
		"queue":              RewardEventQueue,
	}
}

// HealthCheck returns the health status of the publisher
func (p *RewardPublisher) HealthCheck() PublisherHealthStatus {
	isHealthy := p.conn != nil && p.conn.Connection != nil && !p.conn.Connection.IsClosed()

	return PublisherHealthStatus{
		IsHealthy:         isHealthy,
		MessagesPublished: p.messagesPublished,
		MessagesFailed:    p.messagesFailed,
		LastPublishTime:   p.lastPublishTime,
		Queue:             RewardEventQueue,
	}
}

// PublisherHealthStatus represents the health status of the publisher
type PublisherHealthStatus struct {
	IsHealthy         bool      `json:"is_healthy"`
	MessagesPublished int64     `json:"messages_published"`
	MessagesFailed    int64     `json:"messages_failed"`
	LastPublishTime   time.Time `json:"last_publish_time"`
	Queue             string    `json:"queue"`
}
