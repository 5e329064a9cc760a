// Package queue publishes flagged messages to the moderation review queue.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"campusmind/backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers review jobs to RabbitMQ. Consumers that reject a job
// push it through the retry queue, which dead-letters back to the main queue
// after a delay; jobs that keep failing land in the DLQ.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// ReviewJob is the payload a moderation worker consumes.
type ReviewJob struct {
	MessageID      string   `json:"message_id"`
	ChannelID      string   `json:"channel_id"`
	SenderID       string   `json:"sender_id"`
	Alias          string   `json:"alias"`
	Text           string   `json:"text"`
	OriginalText   string   `json:"original_text,omitempty"`
	HasCrisis      bool     `json:"has_crisis"`
	FlaggedWords   []string `json:"flagged_words,omitempty"`
	CrisisKeywords []string `json:"crisis_keywords,omitempty"`
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mainQ := queue
	retryQ := queue + ".retry"
	dlqQ := queue + ".dlq"

	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Retry queue: message TTL -> dead-letter back to the main queue.
	if _, err := ch.QueueDeclare(
		retryQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": mainQ,
			"x-message-ttl":             int32(30000),
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Main queue: rejected jobs dead-letter into the retry queue.
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": retryQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: mainQ}, nil
}

// PublishReview enqueues a flagged message for moderator attention.
func (p *Publisher) PublishReview(rec *models.MessageRecord) error {
	job := ReviewJob{
		MessageID:      rec.MessageID,
		ChannelID:      rec.ChannelID,
		SenderID:       rec.SenderID,
		Alias:          rec.Alias,
		Text:           rec.Text,
		HasCrisis:      rec.HasCrisis,
		FlaggedWords:   rec.FlaggedWords,
		CrisisKeywords: rec.CrisisKeywords,
	}
	if rec.OriginalText != nil {
		job.OriginalText = *rec.OriginalText
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	_ = p.ch.Close()
	_ = p.conn.Close()
}
