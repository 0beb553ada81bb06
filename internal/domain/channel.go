package domain

// Channel is the broker's view of one live duplex client connection. The
// transport layer hands an implementation to Broker.Register once the
// connection is authenticated and upgraded; from that point the channel is
// exclusively owned by the broker's connection record.
//
// Write and Ping must fail (not block indefinitely) on transport errors;
// implementations are expected to enforce a short write deadline. Inbound
// events (message, pong, close, error) flow the other way: the transport
// adapter pushes them into the broker via its Handle* methods.
type Channel interface {
	Write(data []byte) error
	Ping() error
	Close() error
}
