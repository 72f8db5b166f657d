package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	dispatchDomain "github.com/kirimwa/dispatch-service/internal/dispatch_service/domain"
	"github.com/kirimwa/dispatch-service/internal/platform/messagebroker"
)

const runEventsQueueGroup = "export_service_run_events"

// RunEventsConsumer listens for run-completed events so history bookkeeping
// shows up in logs and metrics even when the run was triggered elsewhere.
type RunEventsConsumer struct {
	natsClient *messagebroker.NatsClient
	logger     *slog.Logger
}

func NewRunEventsConsumer(natsClient *messagebroker.NatsClient, logger *slog.Logger) *RunEventsConsumer {
	return &RunEventsConsumer{
		natsClient: natsClient,
		logger:     logger.With("component", "run_events_consumer"),
	}
}

// Start subscribes to the run-completed subject. The subscription lives until
// the NATS connection is closed.
func (c *RunEventsConsumer) Start(ctx context.Context) error {
	_, err := c.natsClient.Subscribe(ctx, dispatchDomain.NATSDispatchRunCompletedV1, runEventsQueueGroup, c.handleRunCompleted)
	return err
}

func (c *RunEventsConsumer) handleRunCompleted(msg *nats.Msg) {
	natsRunEventsReceived.WithLabelValues(msg.Subject).Inc()

	var event dispatchDomain.DispatchRunCompletedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("Failed to unmarshal run-completed event", "error", err, "subject", msg.Subject)
		return
	}
	c.logger.Info("Dispatch run completed",
		"run_id", event.RunID,
		"total", event.TotalRecipients,
		"success", event.SuccessCount,
		"failed", event.FailedCount,
		"cancelled", event.Cancelled,
	)
}
