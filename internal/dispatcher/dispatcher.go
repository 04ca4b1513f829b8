package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"moc-service/internal/events"
	"moc-service/internal/models"
)

// Store is the slice of the repository the dispatcher writes through.
type Store interface {
	UpsertTask(ctx context.Context, task *models.TaskItem) (bool, error)
	UpsertNotification(ctx context.Context, notification *models.Notification) (bool, error)
	CancelOpenTasks(ctx context.Context, requestID uuid.UUID) (int64, error)
}

// Dispatcher turns workflow events into task and notification rows. Creation
// is keyed by the event's dedupe key, so replayed or duplicated events are
// absorbed without creating duplicate rows. It can run as a NATS JetStream
// consumer or be wired directly as the engine's emitter when NATS is absent.
type Dispatcher struct {
	store  Store
	logger *logrus.Entry
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(store Store, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	return &Dispatcher{
		store:  store,
		logger: logger.WithField("component", "event-dispatcher"),
	}
}

// Emit handles an event synchronously. Satisfies events.Emitter so the
// dispatcher can be wired in-process.
func (d *Dispatcher) Emit(ctx context.Context, event *events.WorkflowEvent) error {
	return d.Handle(ctx, event)
}

// Subscribe attaches the dispatcher to the workflow stream as a durable
// JetStream consumer. Messages are acked only after handling succeeds, so
// delivery is at-least-once; Handle is idempotent to compensate.
func (d *Dispatcher) Subscribe(conn *nats.Conn) (*nats.Subscription, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	return js.Subscribe("moc.>", func(msg *nats.Msg) {
		var event events.WorkflowEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			d.logger.WithError(err).Error("Failed to decode workflow event, dropping")
			_ = msg.Ack()
			return
		}
		if err := d.Handle(context.Background(), &event); err != nil {
			d.logger.WithField("eventType", event.EventType).WithError(err).Error("Failed to handle workflow event")
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable("moc-dispatcher"), nats.ManualAck(), nats.BindStream(events.StreamWorkflow))
}

// Handle routes one event to its side effects.
func (d *Dispatcher) Handle(ctx context.Context, event *events.WorkflowEvent) error {
	requestID, err := uuid.Parse(event.RequestID)
	if err != nil {
		return fmt.Errorf("event carries invalid request id %q: %w", event.RequestID, err)
	}

	switch event.EventType {
	case events.SlotAwaitingAction:
		return d.createSlotTask(ctx, requestID, event)
	case events.StageEntered, events.RequestSubmitted, events.RequestApproved, events.RestorationDue:
		return d.createNotification(ctx, requestID, event)
	case events.RequestRejected, events.RequestClosed, events.RequestCancelled:
		if _, err := d.store.CancelOpenTasks(ctx, requestID); err != nil {
			return err
		}
		return d.createNotification(ctx, requestID, event)
	default:
		d.logger.WithField("eventType", event.EventType).Warn("Unknown workflow event type, ignoring")
		return nil
	}
}

// createSlotTask opens a work item for the role whose turn it is.
func (d *Dispatcher) createSlotTask(ctx context.Context, requestID uuid.UUID, event *events.WorkflowEvent) error {
	if event.TargetRole == "" {
		return fmt.Errorf("slot_awaiting_action event without a target role")
	}

	task := &models.TaskItem{
		RequestID:  requestID,
		DedupeKey:  event.DedupeKey(),
		Title:      fmt.Sprintf("Approval pending on %s", displayRef(event)),
		TargetRole: event.TargetRole,
		Status:     models.TaskOpen,
	}
	created, err := d.store.UpsertTask(ctx, task)
	if err != nil {
		return err
	}
	if created {
		d.logger.WithFields(logrus.Fields{
			"requestId":  requestID,
			"targetRole": event.TargetRole,
		}).Info("Approval task created")
	}

	return d.createNotification(ctx, requestID, event)
}

func (d *Dispatcher) createNotification(ctx context.Context, requestID uuid.UUID, event *events.WorkflowEvent) error {
	payload, _ := json.Marshal(event)

	notification := &models.Notification{
		RequestID:  &requestID,
		DedupeKey:  "notif:" + event.DedupeKey(),
		TargetRole: notificationTarget(event),
		Title:      notificationTitle(event),
		Message:    event.Remarks,
		Payload:    datatypes.JSON(payload),
	}
	created, err := d.store.UpsertNotification(ctx, notification)
	if err != nil {
		return err
	}
	if !created {
		d.logger.WithFields(logrus.Fields{
			"requestId": requestID,
			"eventType": event.EventType,
		}).Debug("Duplicate event absorbed")
	}
	return nil
}

func notificationTarget(event *events.WorkflowEvent) string {
	if event.TargetRole != "" {
		return event.TargetRole
	}
	// State changes without a responsible role go to the requester's role.
	return models.RoleRequestor
}

func notificationTitle(event *events.WorkflowEvent) string {
	ref := displayRef(event)
	switch event.EventType {
	case events.RequestSubmitted:
		return fmt.Sprintf("%s submitted", ref)
	case events.StageEntered:
		return fmt.Sprintf("%s entered %s", ref, event.StageName)
	case events.SlotAwaitingAction:
		return fmt.Sprintf("%s awaits your approval", ref)
	case events.RequestApproved:
		return fmt.Sprintf("%s fully approved", ref)
	case events.RequestRejected:
		return fmt.Sprintf("%s rejected", ref)
	case events.RequestClosed:
		return fmt.Sprintf("%s closed", ref)
	case events.RequestCancelled:
		return fmt.Sprintf("%s cancelled", ref)
	case events.RestorationDue:
		return fmt.Sprintf("%s is due for restoration", ref)
	}
	return ref
}

func displayRef(event *events.WorkflowEvent) string {
	if event.ControlNumber != "" {
		return event.ControlNumber
	}
	return "Change request " + event.RequestID[:8]
}
