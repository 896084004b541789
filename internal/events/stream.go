package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/pkg/metrics"
)

const (
	// StreamName is the name of the bookings stream.
	StreamName = "BOOKINGS"

	// SubjectPrefix is the prefix for all booking subjects.
	SubjectPrefix = "booking"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the bookings stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		m.refreshStreamMetrics(ctx)
		return nil
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour, // 90 days
		MaxBytes:    1024 * 1024 * 1024,  // 1GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Booking lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a booking event.
func EventSubject(sessionID string, eventType model.BookingEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sessionID, eventType)
}

// PublishEvent publishes a booking event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.BookingEvent) (uint64, error) {
	subject := EventSubject(event.SessionID, event.Type)
	label := fmt.Sprintf("%s.%s", SubjectPrefix, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		metrics.RecordEventPublish(label, "error")
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	metrics.RecordEventPublish(label, "ok")

	m.refreshStreamMetrics(ctx)

	return ack.Sequence, nil
}

// refreshStreamMetrics updates the stream depth gauges. Failures are logged
// and otherwise ignored; gauge staleness must never fail a publish.
func (m *StreamManager) refreshStreamMetrics(ctx context.Context) {
	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		m.client.logger.Debug("stream info lookup failed", zap.String("stream", StreamName), zap.Error(err))
		return
	}

	info := stream.CachedInfo()
	if info == nil {
		return
	}

	metrics.NATSStreamMessages.WithLabelValues(StreamName).Set(float64(info.State.Msgs))
	metrics.NATSStreamBytes.WithLabelValues(StreamName).Set(float64(info.State.Bytes))
}
