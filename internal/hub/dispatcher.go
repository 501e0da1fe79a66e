package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/store"
)

// Envelope is the wire frame pushed to subscribers, both for live events and
// for the connect-time snapshot (type "snapshot").
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type OutboxSource interface {
	ListOutboxEvents(ctx context.Context, afterID int64, limit int) ([]store.OutboxEvent, error)
	LatestOutboxEventID(ctx context.Context) (int64, error)
}

// Dispatcher drains the transactional outbox into the hub. Events committed
// with a transition are picked up in id order, which preserves per-tenant
// publish order end to end.
type Dispatcher struct {
	source    OutboxSource
	hub       *Hub
	interval  time.Duration
	batchSize int
	afterID   int64
	running   int32
}

func NewDispatcher(source OutboxSource, h *Hub, interval time.Duration, batchSize int) *Dispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{source: source, hub: h, interval: interval, batchSize: batchSize}
}

// Run polls until ctx is cancelled. Delivery starts at the outbox tail:
// history before boot belongs in connect-time snapshots, not the live stream.
func (d *Dispatcher) Run(ctx context.Context) {
	latest, err := d.source.LatestOutboxEventID(ctx)
	if err != nil {
		log.Printf("dispatcher: load outbox tail: %v", err)
	}
	d.afterID = latest

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&d.running, 0, 1) {
				continue
			}
			if err := d.poll(ctx); err != nil {
				log.Printf("dispatcher: poll: %v", err)
			}
			atomic.StoreInt32(&d.running, 0)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	events, err := d.source.ListOutboxEvents(pollCtx, d.afterID, d.batchSize)
	if err != nil {
		return err
	}
	for _, event := range events {
		d.afterID = event.EventID
		payload, err := json.Marshal(Envelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt})
		if err != nil {
			log.Printf("dispatcher: marshal event %d: %v", event.EventID, err)
			continue
		}
		d.hub.Broadcast(event.TenantID, payload)
	}
	return nil
}
