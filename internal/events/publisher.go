// Package events publishes VM lifecycle transitions as CloudEvents over
// NATS. Publishing is best effort: the service logs failures and never lets
// them fail the originating operation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const eventType = "provider.openstack.vm.lifecycle"

// VMEvent describes one lifecycle transition of a VM.
type VMEvent struct {
	VMUUID        string    `json:"vmUuid"`
	VMName        string    `json:"vmName"`
	Action        string    `json:"action"`
	PreviousState string    `json:"previousState"`
	CurrentState  string    `json:"currentState"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher emits lifecycle events. The noop value (nil or unconnected) is
// safe to call, so the service does not branch on whether events are enabled.
type Publisher struct {
	natsConn *nats.Conn
	timeout  time.Duration
}

type PublisherConfig struct {
	NATSURL      string
	Timeout      time.Duration
	MaxReconnect int
}

// NewPublisher connects to NATS. An empty URL yields a disabled publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.NATSURL == "" {
		return &Publisher{}, nil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	logger := zap.S().Named("events:publisher")
	opts := []nats.Option{
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Publisher{natsConn: nc, timeout: cfg.Timeout}, nil
}

// PublishVMEvent publishes one lifecycle event to the per-VM subject.
func (p *Publisher) PublishVMEvent(ctx context.Context, vmEvent VMEvent) error {
	if p == nil || p.natsConn == nil {
		return nil
	}
	if !p.natsConn.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.New().String())
	event.SetType(eventType)
	event.SetSource("openstack-service-provider")
	event.SetSubject(fmt.Sprintf("vm.%s", vmEvent.VMUUID))
	event.SetTime(vmEvent.Timestamp)
	if err := event.SetData(cloudevents.ApplicationJSON, vmEvent); err != nil {
		return fmt.Errorf("failed to set CloudEvent data: %w", err)
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	subject := fmt.Sprintf("openstack.vm.%s", vmEvent.VMUUID)
	if err := p.natsConn.Publish(subject, eventData); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.natsConn.FlushTimeout(p.timeout); err != nil {
		return fmt.Errorf("failed to flush NATS message: %w", err)
	}
	return nil
}

// Close gracefully closes the NATS connection.
func (p *Publisher) Close() error {
	if p != nil && p.natsConn != nil {
		p.natsConn.Close()
	}
	return nil
}
