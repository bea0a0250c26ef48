package eventbus

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedBus runs an in-process NATS server so the daemon works
// standalone; external detectors can still connect to it.
type EmbeddedBus struct {
	server *server.Server
	conn   *nats.Conn
	port   int
}

// StartEmbedded boots the broker and connects an internal client.
func StartEmbedded(port int) (*EmbeddedBus, error) {
	opts := &server.Options{
		Host:          "0.0.0.0",
		Port:          port,
		NoLog:         true,
		NoSigs:        true,
		WriteDeadline: 10 * time.Second,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}
	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("embedded nats server not ready after 5s")
	}

	nc, err := nats.Connect(
		fmt.Sprintf("nats://localhost:%d", port),
		nats.Name("pipeline-internal"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect to embedded nats: %w", err)
	}

	log.Printf("[Bus] Embedded NATS server listening on port %d", port)
	return &EmbeddedBus{server: ns, conn: nc, port: port}, nil
}

func (e *EmbeddedBus) Conn() *nats.Conn { return e.conn }

func (e *EmbeddedBus) Address() string {
	return fmt.Sprintf("nats://localhost:%d", e.port)
}

func (e *EmbeddedBus) Shutdown() {
	if e.conn != nil {
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
	}
	log.Printf("[Bus] Embedded NATS server shut down")
}

// Connect dials an external broker, or starts an embedded one when url
// is empty. The returned cleanup closes whichever was created.
func Connect(url string, embeddedPort int) (*nats.Conn, func(), error) {
	if url != "" {
		nc, err := nats.Connect(url,
			nats.ReconnectWait(time.Second),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats %s: %w", url, err)
		}
		return nc, func() { nc.Close() }, nil
	}

	bus, err := StartEmbedded(embeddedPort)
	if err != nil {
		return nil, nil, err
	}
	return bus.Conn(), bus.Shutdown, nil
}
