// Package notify publishes a message for a resolved state, each time
// PublishResolved is called, onto an embedded, in-process NATS server. It
// does not observe resolutions itself. The design mirrors dendrite's
// monolith-mode embedded message bus (its setup/jetstream.NATSInstance,
// which is not itself part of this retrieval pack; this package follows
// nats-server/nats.go's own embedded-server idiom directly instead of
// dendrite's JetStream wrapper).
package notify

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/coreroom/stateres/event"
	"github.com/coreroom/stateres/spec"
)

// ResolvedSubject is the NATS subject PublishResolved publishes to.
const ResolvedSubject = "room.state.resolved"

// ResolvedMessage is the payload published to ResolvedSubject.
type ResolvedMessage struct {
	RoomID      spec.RoomID `json:"room_id"`
	StateEvents int         `json:"state_events"`
}

// Publisher publishes ResolvedMessage notifications onto an embedded NATS
// server started in-process, with no external broker to configure.
type Publisher struct {
	server *server.Server
	conn   *nats.Conn
}

// StartEmbedded boots an in-process NATS server and connects a publisher
// to it. Callers needing to consume the notifications should connect their
// own nats.Conn to the same server.ClientURL().
func StartEmbedded() (*Publisher, error) {
	opts := &server.Options{
		Host:           "127.0.0.1",
		Port:           server.RANDOM_PORT,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
	}
	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, err
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, &StartupTimeoutError{}
	}

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, err
	}

	return &Publisher{server: srv, conn: conn}, nil
}

// ClientURL returns the embedded server's connection URL, for other
// processes (or test subscribers) wanting to observe resolutions.
func (p *Publisher) ClientURL() string { return p.server.ClientURL() }

// PublishResolved announces that roomID's state was resolved to a map
// containing len(resolved) slots.
func (p *Publisher) PublishResolved(roomID spec.RoomID, resolved event.StateMap) error {
	msg := ResolvedMessage{RoomID: roomID, StateEvents: len(resolved)}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.conn.Publish(ResolvedSubject, payload)
}

// Close disconnects and shuts down the embedded server.
func (p *Publisher) Close() {
	p.conn.Close()
	p.server.Shutdown()
}

// StartupTimeoutError is returned when the embedded NATS server does not
// become ready to accept connections within the startup deadline.
type StartupTimeoutError struct{}

func (e *StartupTimeoutError) Error() string {
	return "embedded nats server did not become ready for connections"
}
