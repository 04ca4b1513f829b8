package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	// StreamWorkflow is the JetStream stream holding workflow events.
	StreamWorkflow = "MOC_WORKFLOW"
	subjectPrefix  = "moc"
)

// Publisher publishes workflow events to NATS JetStream. Delivery is
// at-least-once; consumers must tolerate duplicates.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the workflow stream exists
func NewPublisher(url string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	conn, err := nats.Connect(url,
		nats.Name("moc-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(StreamWorkflow); err != nil {
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     StreamWorkflow,
			Subjects: []string{subjectPrefix + ".>"},
			Storage:  nats.FileStorage,
		}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ensure workflow stream: %w", err)
		}
	}

	return &Publisher{
		conn:   conn,
		js:     js,
		logger: logger.WithField("component", "workflow-events"),
	}, nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// Conn exposes the underlying connection for the dispatcher's subscription.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Emit publishes a workflow event on subject moc.<eventType>. Publishing is
// detached from the caller so HTTP request cancellation never drops an event
// mid-flight; failures are logged, not surfaced.
func (p *Publisher) Emit(ctx context.Context, event *WorkflowEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal workflow event")
			return
		}

		subject := subjectPrefix + "." + event.EventType
		if _, err := p.js.Publish(subject, payload, nats.Context(pubCtx),
			nats.MsgId(event.DedupeKey())); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"requestId": event.RequestID,
			}).WithError(err).Error("Failed to publish workflow event")
			return
		}

		p.logger.WithFields(logrus.Fields{
			"eventType":  event.EventType,
			"requestId":  event.RequestID,
			"targetRole": event.TargetRole,
		}).Info("Workflow event published")
	}()

	return nil
}
