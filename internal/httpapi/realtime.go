package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/hub"
	"github.com/InnersoftTecnologia/chama-ja/internal/store"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

// streamSession is the slice of sockjs.Session the stream loop uses.
type streamSession interface {
	Request() *http.Request
	Send(msg string) error
	Recv() (string, error)
	Close(status uint32, reason string) error
}

// NewRealtimeHandler mounts the SockJS stream. The token travels as a query
// parameter because the transport cannot carry custom headers.
func NewRealtimeHandler(st store.TicketStore, h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/rt/tickets", sockjs.DefaultOptions, func(session sockjs.Session) {
		serveStream(st, h, session)
	})
}

// serveStream runs one subscriber connection: authenticate, register with the
// hub, deliver a full state snapshot, then relay live events. Each accepted
// connection gets the snapshot before any live event, so there is no gap
// between connect and first delivery.
func serveStream(st store.TicketStore, h *hub.Hub, session streamSession) {
	token := TokenFromRequest(session.Request())
	if token == "" {
		_ = session.Close(4001, "missing token")
		return
	}
	authSession, err := st.GetSession(context.Background(), token)
	if err != nil {
		_ = session.Close(4002, "invalid token")
		return
	}

	client := &hub.Client{
		ID:       uuid.NewString(),
		TenantID: authSession.TenantID,
		Send:     make(chan []byte, 16),
	}
	h.Register(client)
	defer h.Unregister(client)

	// Registered first, snapshot second: anything published in between
	// waits in the client queue and is delivered after the snapshot.
	snapshot, err := st.Snapshot(context.Background(), authSession.TenantID)
	if err != nil {
		log.Printf("realtime: snapshot for tenant %s: %v", authSession.TenantID, err)
		_ = session.Close(4003, "snapshot failed")
		return
	}
	if err := sendEnvelope(session, "snapshot", snapshot); err != nil {
		return
	}

	go func() {
		// The hub closes Send when it drops a slow subscriber. Closing the
		// session here tells the display to reconnect for a fresh snapshot
		// instead of lingering on a stream that will never deliver again.
		defer func() {
			_ = session.Close(4004, "slow consumer")
		}()
		for msg := range client.Send {
			if err := session.Send(string(msg)); err != nil {
				return
			}
		}
	}()

	for {
		if _, err := session.Recv(); err != nil {
			return
		}
	}
}

func sendEnvelope(session streamSession, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(hub.Envelope{Type: eventType, Payload: body, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return session.Send(string(frame))
}
