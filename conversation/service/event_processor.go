package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conversation-webhook/backend/conversation/events"
	"conversation-webhook/backend/conversation/models"
	"conversation-webhook/backend/conversation/repository"
	"conversation-webhook/backend/conversation/statemachine"
	"conversation-webhook/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "conversation-webhook/backend/conversation/service"

// Result describes a successfully applied event
type Result struct {
	EventType      events.Type
	Outcome        statemachine.Outcome
	ConversationID string
	MessageID      string
}

// EventProcessor applies webhook events to the conversation store. It keeps
// no state between calls; every event runs in its own store transaction.
type EventProcessor struct {
	repo     repository.ConversationRepository
	log      *logger.Logger
	tracer   trace.Tracer
	counter  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEventProcessor creates an event processor backed by repo. Spans and
// metrics go to the global OpenTelemetry providers.
func NewEventProcessor(repo repository.ConversationRepository, log *logger.Logger) (*EventProcessor, error) {
	if log == nil {
		log = logger.GetGlobal()
	}
	meter := otel.Meter(instrumentationName)

	counter, err := meter.Int64Counter("webhook_events",
		metric.WithDescription("Webhook events processed, by type and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	duration, err := meter.Float64Histogram("webhook_event_duration",
		metric.WithDescription("Time spent processing a webhook event"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create event duration histogram: %w", err)
	}

	return &EventProcessor{
		repo:     repo,
		log:      log,
		tracer:   otel.Tracer(instrumentationName),
		counter:  counter,
		duration: duration,
	}, nil
}

// Process validates payload and applies it. Client errors are returned before
// anything is written; any other failure is wrapped in models.ErrStoreFailure
// and the transaction is rolled back.
func (p *EventProcessor) Process(ctx context.Context, payload []byte) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "EventProcessor.Process")
	defer span.End()

	result, err := p.process(ctx, payload)

	eventType := "invalid"
	if result != nil {
		eventType = string(result.EventType)
	}

	var outcome string
	if err != nil {
		outcome = ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		outcome = string(result.Outcome)
	}
	span.SetAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.outcome", outcome),
	)

	attrs := metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.String("outcome", outcome),
	)
	p.counter.Add(ctx, 1, attrs)
	p.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// process returns a partially filled Result alongside a failure once the
// event type is known, so it can be reported.
func (p *EventProcessor) process(ctx context.Context, payload []byte) (*Result, error) {
	ev, err := events.Decode(payload)
	if err != nil {
		return nil, err
	}
	result := &Result{EventType: ev.Type()}

	conversationID, err := statemachine.Target(ev)
	if err != nil {
		return result, err
	}
	result.ConversationID = conversationID

	var decision statemachine.Decision
	err = p.repo.Transaction(ctx, func(tx repository.ConversationTx) error {
		current, err := tx.GetForUpdate(conversationID)
		if err != nil && !errors.Is(err, models.ErrConversationNotFound) {
			return err
		}

		decision, err = statemachine.Decide(current, ev)
		if err != nil {
			return err
		}
		return apply(tx, decision)
	})
	if err != nil {
		if !IsClientError(err) {
			err = asStoreFailure(err)
			p.log.WithContext(ctx).LogError(err, "Failed to apply event",
				"event_type", ev.Type(),
				"conversation_id", conversationID,
			)
		}
		return result, err
	}

	result.Outcome = decision.Outcome
	if decision.Message != nil {
		result.MessageID = decision.Message.ID
	}

	p.log.WithContext(ctx).Debug("Event applied",
		"event_type", ev.Type(),
		"outcome", decision.Outcome,
		"conversation_id", conversationID,
	)
	return result, nil
}

func apply(tx repository.ConversationTx, decision statemachine.Decision) error {
	switch decision.Action {
	case statemachine.ActionCreateConversation:
		return tx.CreateConversation(decision.Conversation)
	case statemachine.ActionCreateMessage:
		return tx.CreateMessage(decision.Message)
	case statemachine.ActionCloseConversation:
		return tx.CloseConversation(decision.Conversation.ID)
	case statemachine.ActionNone:
		return nil
	}
	return fmt.Errorf("unhandled action %d", decision.Action)
}
