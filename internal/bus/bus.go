// Package bus abstracts the order event stream. The production
// implementation is a NATS connection; deployments without NATS (and
// tests) use the no-op publisher.
package bus

import "github.com/nats-io/nats.go"

// SubjectOrderCreated carries one JSON-encoded order event per placed order.
const SubjectOrderCreated = "orders.created"

// Publisher is the send side of the event stream. *nats.Conn satisfies
// it directly.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Noop discards published events.
type Noop struct{}

func (Noop) Publish(string, []byte) error { return nil }

// Connect establishes a NATS connection.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url)
}
