package broker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/finpulse/finpulse/internal/domain"
	"github.com/finpulse/finpulse/internal/metrics"
)

const (
	commandBufferSize = 256
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
)

// Options configures a Broker. Zero values fall back to production defaults.
type Options struct {
	// PingInterval is the period of the ping sweep: every alive connection is
	// probed, and a probe that cannot be sent marks the connection dead.
	PingInterval time.Duration
	// StaleSweepInterval is the period of the stale sweep, which evicts
	// connections whose last pong is older than StaleTimeout.
	StaleSweepInterval time.Duration
	// StaleTimeout is the maximum tolerated age of the last pong response.
	StaleTimeout time.Duration
	// QueueCap bounds each user's offline queue.
	QueueCap int
	// MaxConnectionsPerUser bounds concurrent connections per user.
	MaxConnectionsPerUser int
	// WriterBufferSize is the per-connection outbound buffer. Must be at least
	// QueueCap so a full offline queue drains into a fresh connection without
	// overflowing the writer.
	WriterBufferSize int
	// Clock is injected for tests; defaults to the real clock.
	Clock clockwork.Clock
}

func (o *Options) withDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.StaleSweepInterval <= 0 {
		o.StaleSweepInterval = 10 * time.Second
	}
	if o.StaleTimeout <= 0 {
		o.StaleTimeout = 60 * time.Second
	}
	if o.QueueCap <= 0 {
		o.QueueCap = 50
	}
	if o.MaxConnectionsPerUser <= 0 {
		o.MaxConnectionsPerUser = 10
	}
	if o.WriterBufferSize < o.QueueCap {
		o.WriterBufferSize = o.QueueCap + 14
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// connRecord is one live duplex channel. It exists only between a successful
// Register and a Remove; the channel handle is exclusively owned by the record.
type connRecord struct {
	id       string
	userID   string
	writer   *connWriter
	alive    bool
	lastPong time.Time
	topics   map[string]struct{}
}

// Stats is a point-in-time snapshot for health dashboards.
type Stats struct {
	Connections    int `json:"connections"`
	Users          int `json:"users"`
	QueuedMessages int `json:"queued_messages"`
}

// Broker tracks live client connections, detects dead ones via heartbeats,
// delivers targeted and broadcast messages, and queues notifications for
// offline users. Instantiate with New, then Start; all methods are safe for
// concurrent use.
type Broker struct {
	opts   Options
	clock  clockwork.Clock
	cmdCh  chan brokerCmd
	doneCh chan struct{}

	// Actor-owned state. Touched only by the run goroutine.
	conns  map[string]*connRecord
	users  map[string]map[string]struct{}
	queues *offlineQueues
}

// New creates a broker. Call Start before use.
func New(opts Options) *Broker {
	opts.withDefaults()
	return &Broker{
		opts:   opts,
		clock:  opts.Clock,
		cmdCh:  make(chan brokerCmd, commandBufferSize),
		doneCh: make(chan struct{}),
		conns:  make(map[string]*connRecord),
		users:  make(map[string]map[string]struct{}),
		queues: newOfflineQueues(opts.QueueCap),
	}
}

// Start launches the actor goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop shuts down the broker, closing all client connections. Blocks until
// the actor goroutine has exited or the stop timeout is reached.
func (b *Broker) Stop() {
	b.cmdCh <- stopCmd{}

	timer := b.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-b.doneCh:
		slog.Info("Broker stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Broker stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (b *Broker) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broker panic recovered", "panic", r)
			b.closeAll()
		}
	}()
	defer close(b.doneCh)

	pingTicker := b.clock.NewTicker(b.opts.PingInterval)
	defer pingTicker.Stop()
	staleTicker := b.clock.NewTicker(b.opts.StaleSweepInterval)
	defer staleTicker.Stop()

	for {
		select {
		case cmd := <-b.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				c.errorChannel <- b.handleRegister(c)
			case removeCmd:
				c.replyChannel <- b.handleRemove(c.connID)
			case markAliveCmd:
				b.setAlive(c.connID, true)
			case markDeadCmd:
				b.setAlive(c.connID, false)
			case pongCmd:
				b.handlePong(c.connID)
			case subscribeCmd:
				b.handleSubscribe(c)
			case unsubscribeCmd:
				b.handleUnsubscribe(c)
			case sendToUserCmd:
				b.handleSendToUser(c.userID, c.envelope)
			case broadcastCmd:
				b.handleBroadcast(c.envelope)
			case publishToTopicCmd:
				b.handlePublishToTopic(c.topic, c.envelope)
			case connectionsForUserCmd:
				c.replyChannel <- b.connectionsForUser(c.userID)
			case queueSizeCmd:
				c.replyChannel <- b.queues.size(c.userID)
			case statsCmd:
				c.replyChannel <- Stats{
					Connections:    len(b.conns),
					Users:          len(b.users),
					QueuedMessages: b.queues.totalSize(),
				}
			case stopCmd:
				b.handleStop()
				return
			default:
				slog.Warn("Broker received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-pingTicker.Chan():
			b.pingSweep()
		case <-staleTicker.Chan():
			b.staleSweep()
		}
	}
}

// --- Actor handlers ---

func (b *Broker) handleRegister(c registerCmd) error {
	if _, exists := b.conns[c.connID]; exists {
		return domain.ErrDuplicateConnection
	}

	if len(b.users[c.userID]) >= b.opts.MaxConnectionsPerUser {
		slog.Warn("Rejecting connection: per-user cap reached",
			"user_id", c.userID, "max_connections", b.opts.MaxConnectionsPerUser)
		_ = c.channel.Close()
		return domain.ErrTooManyConnections
	}

	connID := c.connID
	rec := &connRecord{
		id:       connID,
		userID:   c.userID,
		alive:    true,
		lastPong: b.clock.Now(),
		topics:   make(map[string]struct{}),
	}
	rec.writer = newConnWriter(c.channel, b.opts.WriterBufferSize, func() {
		metrics.SendFailures.Inc()
		b.postAsync(markDeadCmd{connID: connID})
	})

	b.conns[connID] = rec
	set, exists := b.users[c.userID]
	if !exists {
		set = make(map[string]struct{})
		b.users[c.userID] = set
	}
	set[connID] = struct{}{}

	b.drainQueueInto(rec)
	b.syncGauges()

	slog.Debug("Connection registered",
		"conn_id", connID, "user_id", c.userID, "user_connections", len(set))
	return nil
}

// drainQueueInto flushes the user's offline queue into a freshly registered
// connection, FIFO. If the writer dies mid-drain the undelivered tail goes
// back to the queue in its original order.
func (b *Broker) drainQueueInto(rec *connRecord) {
	buffered := b.queues.drainAndClear(rec.userID)
	if len(buffered) == 0 {
		return
	}

	for i, env := range buffered {
		data, err := encodeEnvelope(env)
		if err != nil {
			slog.Error("Failed to encode queued envelope", "envelope_id", env.ID, "error", err)
			continue
		}
		if !rec.writer.enqueue(data) {
			rec.alive = false
			for _, rest := range buffered[i:] {
				b.queues.push(rec.userID, rest)
			}
			slog.Warn("Offline queue drain aborted: writer failed",
				"conn_id", rec.id, "user_id", rec.userID, "requeued", len(buffered)-i)
			return
		}
	}

	slog.Info("Offline queue drained",
		"user_id", rec.userID, "delivered", len(buffered))
}

func (b *Broker) handleRemove(connID string) bool {
	rec, exists := b.conns[connID]
	if !exists {
		return false
	}

	rec.writer.stop()
	delete(b.conns, connID)

	set := b.users[rec.userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(b.users, rec.userID)
	}

	b.syncGauges()
	slog.Debug("Connection removed", "conn_id", connID, "user_id", rec.userID)
	return true
}

func (b *Broker) setAlive(connID string, alive bool) {
	if rec, exists := b.conns[connID]; exists {
		rec.alive = alive
	}
}

func (b *Broker) handlePong(connID string) {
	rec, exists := b.conns[connID]
	if !exists {
		return
	}
	rec.lastPong = b.clock.Now()
	rec.alive = true
}

func (b *Broker) handleSubscribe(c subscribeCmd) {
	// A subscribe racing with disconnection is not an error.
	rec, exists := b.conns[c.connID]
	if !exists {
		return
	}
	rec.topics[c.topic] = struct{}{}
	slog.Debug("Connection subscribed", "conn_id", c.connID, "topic", c.topic)
}

func (b *Broker) handleUnsubscribe(c unsubscribeCmd) {
	rec, exists := b.conns[c.connID]
	if !exists {
		return
	}
	delete(rec.topics, c.topic)
	slog.Debug("Connection unsubscribed", "conn_id", c.connID, "topic", c.topic)
}

func (b *Broker) connectionsForUser(userID string) []string {
	set := b.users[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (b *Broker) handleStop() {
	total := len(b.conns)
	b.closeAll()
	slog.Info("Broker shutdown complete", "disconnected_connections", total)
}

func (b *Broker) closeAll() {
	for id, rec := range b.conns {
		rec.writer.stop()
		delete(b.conns, id)
	}
	for userID := range b.users {
		delete(b.users, userID)
	}
	b.syncGauges()
}

func (b *Broker) syncGauges() {
	metrics.ActiveConnections.Set(float64(len(b.conns)))
	metrics.ConnectedUsers.Set(float64(len(b.users)))
	metrics.QueuedMessages.Set(float64(b.queues.totalSize()))
}

// postAsync posts a command without blocking. Used from writer goroutines so
// a saturated command channel can never deadlock shutdown.
func (b *Broker) postAsync(cmd brokerCmd) {
	select {
	case b.cmdCh <- cmd:
	default:
		slog.Warn("Broker command channel full, dropping async command",
			"command_type", fmt.Sprintf("%T", cmd))
	}
}

// --- Public API ---

// Register adds a connection for a user. Fails with ErrDuplicateConnection if
// the connection ID is already present, or ErrTooManyConnections at the
// per-user cap. On success any offline-queued messages for the user are
// delivered FIFO on the new connection and the queue is cleared.
func (b *Broker) Register(connID, userID string, channel domain.Channel) error {
	errCh := make(chan error, 1)
	b.cmdCh <- registerCmd{connID: connID, userID: userID, channel: channel, errorChannel: errCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-b.doneCh:
		return domain.ErrBrokerStopped
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Remove deletes a connection and its index entries. Returns false if the
// connection is unknown (idempotent no-op). The offline queue is untouched.
func (b *Broker) Remove(connID string) bool {
	replyCh := make(chan bool, 1)
	b.cmdCh <- removeCmd{connID: connID, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case removed := <-replyCh:
		return removed
	case <-b.doneCh:
		return false
	case <-timer.Chan():
		slog.Warn("Remove command timed out", "conn_id", connID)
		return false
	}
}

// MarkAlive flags a connection as usable. No-op for unknown connections.
func (b *Broker) MarkAlive(connID string) {
	b.cmdCh <- markAliveCmd{connID: connID}
}

// MarkDead flags a connection as unusable without removing it; eviction
// happens on the next ping sweep.
func (b *Broker) MarkDead(connID string) {
	b.cmdCh <- markDeadCmd{connID: connID}
}

// HandlePong records a liveness-probe response from the transport.
func (b *Broker) HandlePong(connID string) {
	b.cmdCh <- pongCmd{connID: connID}
}

// Subscribe adds a topic to the connection's subscription set. Silently a
// no-op if the connection no longer exists.
func (b *Broker) Subscribe(connID, topic string) {
	b.cmdCh <- subscribeCmd{connID: connID, topic: topic}
}

// Unsubscribe removes a topic from the connection's subscription set.
func (b *Broker) Unsubscribe(connID, topic string) {
	b.cmdCh <- unsubscribeCmd{connID: connID, topic: topic}
}

// ConnectionsForUser returns a snapshot of the user's connection IDs; empty
// for unknown users.
func (b *Broker) ConnectionsForUser(userID string) []string {
	replyCh := make(chan []string, 1)
	b.cmdCh <- connectionsForUserCmd{userID: userID, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case ids := <-replyCh:
		return ids
	case <-b.doneCh:
		return nil
	case <-timer.Chan():
		slog.Warn("ConnectionsForUser timed out", "user_id", userID)
		return nil
	}
}

// QueueSize returns the user's offline queue length. Observability and tests.
func (b *Broker) QueueSize(userID string) int {
	replyCh := make(chan int, 1)
	b.cmdCh <- queueSizeCmd{userID: userID, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case n := <-replyCh:
		return n
	case <-b.doneCh:
		return -1
	case <-timer.Chan():
		return -1
	}
}

// Stats returns a snapshot of connection and queue counts.
func (b *Broker) Stats() Stats {
	replyCh := make(chan Stats, 1)
	b.cmdCh <- statsCmd{replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case s := <-replyCh:
		return s
	case <-b.doneCh:
		return Stats{}
	case <-timer.Chan():
		slog.Warn("Stats command timed out")
		return Stats{}
	}
}
