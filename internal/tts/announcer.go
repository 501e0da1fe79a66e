package tts

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
	"github.com/InnersoftTecnologia/chama-ja/internal/store"
)

type AnnouncerSource interface {
	ListOutboxEvents(ctx context.Context, afterID int64, limit int) ([]store.OutboxEvent, error)
	LatestOutboxEventID(ctx context.Context) (int64, error)
	GetTenantProfile(ctx context.Context, tenantID string) (models.TenantProfile, error)
}

// Announcer warms the audio cache for every call event so displays usually
// hit a file that is already on disk. It runs on its own outbox offset,
// entirely off the mutation path; any failure here is logged and forgotten.
type Announcer struct {
	client    *Client
	source    AnnouncerSource
	interval  time.Duration
	batchSize int
	afterID   int64
	running   int32
}

func NewAnnouncer(client *Client, source AnnouncerSource, interval time.Duration, batchSize int) *Announcer {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Announcer{client: client, source: source, interval: interval, batchSize: batchSize}
}

func (a *Announcer) Run(ctx context.Context) {
	latest, err := a.source.LatestOutboxEventID(ctx)
	if err != nil {
		log.Printf("announcer: load outbox tail: %v", err)
	}
	a.afterID = latest

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&a.running, 0, 1) {
				continue
			}
			if err := a.poll(ctx); err != nil {
				log.Printf("announcer: poll: %v", err)
			}
			atomic.StoreInt32(&a.running, 0)
		}
	}
}

func (a *Announcer) poll(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	events, err := a.source.ListOutboxEvents(pollCtx, a.afterID, a.batchSize)
	if err != nil {
		return err
	}
	for _, event := range events {
		a.afterID = event.EventID
		if event.Type != store.EventTicketCreated {
			continue
		}
		a.prefetch(pollCtx, event)
	}
	return nil
}

func (a *Announcer) prefetch(ctx context.Context, event store.OutboxEvent) {
	var ticket models.Ticket
	if err := json.Unmarshal(event.Payload, &ticket); err != nil {
		log.Printf("announcer: decode event %d: %v", event.EventID, err)
		return
	}

	profile, err := a.source.GetTenantProfile(ctx, event.TenantID)
	if err != nil {
		log.Printf("announcer: tenant %s profile: %v", event.TenantID, err)
		return
	}
	if !profile.TTSEnabled {
		return
	}

	location := ticket.ServiceName
	if ticket.CounterName != nil && *ticket.CounterName != "" {
		location = *ticket.CounterName
	}

	_, err = a.client.Synthesize(ctx, Request{
		Text:   CallText(ticket.TicketCode, location),
		Voice:  profile.TTSVoice,
		Speed:  profile.TTSSpeed,
		Volume: profile.TTSVolume,
	})
	if err != nil {
		log.Printf("announcer: prefetch %s: %v", ticket.TicketCode, err)
	}
}
