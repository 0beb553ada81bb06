package broker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChannel is a domain.Channel that records writes and can be flipped into
// a failing state to simulate a dead transport.
type mockChannel struct {
	mu        sync.Mutex
	writes    [][]byte
	pings     int
	failWrite bool
	failPing  bool
	closed    bool
}

func (m *mockChannel) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("write on broken transport")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.writes = append(m.writes, buf)
	return nil
}

func (m *mockChannel) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPing {
		return errors.New("ping on broken transport")
	}
	m.pings++
	return nil
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockChannel) failAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = true
	m.failPing = true
}

func (m *mockChannel) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

func (m *mockChannel) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func (m *mockChannel) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockChannel) writtenData() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// eventually polls until the condition holds or the deadline passes. Sweep
// and writer effects land asynchronously, so tests observe them this way.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestConnWriter_WritesInOrder(t *testing.T) {
	ch := &mockChannel{}
	cw := newConnWriter(ch, 16, nil)
	t.Cleanup(cw.stop)

	require.True(t, cw.enqueue([]byte("one")))
	require.True(t, cw.enqueue([]byte("two")))
	require.True(t, cw.enqueue([]byte("three")))

	require.True(t, eventually(func() bool { return ch.writeCount() == 3 }))
	writes := ch.writtenData()
	assert.Equal(t, "one", string(writes[0]))
	assert.Equal(t, "two", string(writes[1]))
	assert.Equal(t, "three", string(writes[2]))
}

func TestConnWriter_PingGoesThroughChannel(t *testing.T) {
	ch := &mockChannel{}
	cw := newConnWriter(ch, 16, nil)
	t.Cleanup(cw.stop)

	require.True(t, cw.ping())
	require.True(t, eventually(func() bool { return ch.pingCount() == 1 }))
}

func TestConnWriter_WriteErrorStopsWriterAndReports(t *testing.T) {
	ch := &mockChannel{failWrite: true}
	reported := make(chan struct{})
	cw := newConnWriter(ch, 16, func() { close(reported) })
	t.Cleanup(cw.stop)

	require.True(t, cw.enqueue([]byte("doomed")))

	select {
	case <-reported:
	case <-time.After(2 * time.Second):
		t.Fatal("write error was not reported")
	}

	// Dead writer rejects everything from now on.
	require.True(t, eventually(func() bool { return !cw.enqueue([]byte("after")) }))
	assert.False(t, cw.ping())
	assert.True(t, ch.isClosed())
}

func TestConnWriter_EnqueueFailsWhenBufferFull(t *testing.T) {
	// A channel that blocks forever keeps the writer goroutine busy so the
	// buffer can fill up.
	block := make(chan struct{})
	ch := &blockingChannel{unblock: block}
	cw := newConnWriter(ch, 2, nil)
	t.Cleanup(func() {
		close(block)
		cw.stop()
	})

	// The first enqueue is consumed by the goroutine and blocks in Write;
	// further enqueues fill the buffer until they start failing.
	require.True(t, cw.enqueue([]byte("a")))
	require.True(t, eventually(func() bool { return !cw.enqueue([]byte("fill")) }))
	assert.False(t, cw.enqueue([]byte("overflow")))
}

func TestConnWriter_StopIsIdempotent(t *testing.T) {
	ch := &mockChannel{}
	cw := newConnWriter(ch, 16, nil)

	cw.stop()
	cw.stop()
	assert.True(t, ch.isClosed())
	assert.False(t, cw.enqueue([]byte("late")))
}

type blockingChannel struct {
	unblock chan struct{}
}

func (b *blockingChannel) Write([]byte) error {
	<-b.unblock
	return nil
}

func (b *blockingChannel) Ping() error {
	<-b.unblock
	return nil
}

func (b *blockingChannel) Close() error { return nil }
