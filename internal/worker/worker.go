// Package worker dispatches placed orders to their service's
// fulfillment endpoint.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"panel/internal/bus"
	"panel/internal/ledger"
)

const queueGroup = "fulfillment"

// FulfillmentWorker consumes order events from NATS and posts each
// order to the service's API link. The link is opaque passthrough data;
// a failed dispatch is logged and the order stays placed.
type FulfillmentWorker struct {
	natsConn *nats.Conn
	client   *http.Client
	logger   *zap.Logger
}

// NewFulfillmentWorker creates a worker on the given NATS connection.
func NewFulfillmentWorker(nc *nats.Conn, logger *zap.Logger) *FulfillmentWorker {
	return &FulfillmentWorker{
		natsConn: nc,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Run subscribes to the order stream and blocks until ctx is cancelled.
// QueueSubscribe ensures each event reaches exactly one worker instance
// when several copies of the bot run.
func (w *FulfillmentWorker) Run(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(bus.SubjectOrderCreated, queueGroup, func(m *nats.Msg) {
		var event ledger.OrderEvent
		if err := json.Unmarshal(m.Data, &event); err != nil {
			w.logger.Error("Failed to decode order event", zap.Error(err))
			return
		}
		w.dispatch(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to order events: %w", err)
	}

	w.logger.Info("Fulfillment worker is running")

	<-ctx.Done()

	w.logger.Info("Fulfillment worker draining subscription")
	return sub.Drain()
}

// dispatch posts one order to its service endpoint.
func (w *FulfillmentWorker) dispatch(ctx context.Context, event ledger.OrderEvent) {
	payload, err := json.Marshal(map[string]interface{}{
		"service":  event.ServiceName,
		"link":     event.Link,
		"quantity": event.Quantity,
	})
	if err != nil {
		w.logger.Error("Failed to encode fulfillment payload", zap.Error(err), zap.Int64("order_id", event.OrderID))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.APILink, bytes.NewReader(payload))
	if err != nil {
		w.logger.Error("Failed to build fulfillment request",
			zap.Error(err),
			zap.Int64("order_id", event.OrderID),
			zap.String("api_link", event.APILink),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Error("Fulfillment dispatch failed",
			zap.Error(err),
			zap.Int64("order_id", event.OrderID),
			zap.String("service", event.ServiceName),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logger.Error("Fulfillment endpoint rejected order",
			zap.Int("status", resp.StatusCode),
			zap.Int64("order_id", event.OrderID),
			zap.String("service", event.ServiceName),
		)
		return
	}

	w.logger.Info("Order dispatched for fulfillment",
		zap.Int64("order_id", event.OrderID),
		zap.String("service", event.ServiceName),
	)
}
