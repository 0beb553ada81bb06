package broker

import (
	"sync"

	"github.com/finpulse/finpulse/internal/domain"
)

type outbound struct {
	ping bool
	data []byte
}

// connWriter serializes all writes to one channel onto a dedicated goroutine.
// The actor enqueues without blocking: a full buffer or a stopped writer is a
// send failure, never a stall of the broker loop. The first transport error
// kills the writer and reports back via onWriteError.
type connWriter struct {
	channel      domain.Channel
	sendCh       chan outbound
	doneCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	onWriteError func()
}

func newConnWriter(channel domain.Channel, bufferSize int, onWriteError func()) *connWriter {
	cw := &connWriter{
		channel:      channel,
		sendCh:       make(chan outbound, bufferSize),
		doneCh:       make(chan struct{}),
		onWriteError: onWriteError,
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *connWriter) run() {
	defer cw.wg.Done()

	for {
		select {
		case out := <-cw.sendCh:
			var err error
			if out.ping {
				err = cw.channel.Ping()
			} else {
				err = cw.channel.Write(out.data)
			}
			if err != nil {
				// Mark the writer dead before reporting, so concurrent
				// enqueues fail instead of landing in a drained buffer.
				cw.stopOnce.Do(func() {
					close(cw.doneCh)
					_ = cw.channel.Close()
				})
				if cw.onWriteError != nil {
					cw.onWriteError()
				}
				return
			}
		case <-cw.doneCh:
			return
		}
	}
}

// enqueue hands data to the writer goroutine. Returns false if the writer has
// stopped or its buffer is full; the caller treats that as a send failure.
func (cw *connWriter) enqueue(data []byte) bool {
	select {
	case <-cw.doneCh:
		return false
	default:
	}
	select {
	case cw.sendCh <- outbound{data: data}:
		return true
	case <-cw.doneCh:
		return false
	default:
		return false
	}
}

// ping enqueues a liveness probe. Same failure semantics as enqueue.
func (cw *connWriter) ping() bool {
	select {
	case <-cw.doneCh:
		return false
	default:
	}
	select {
	case cw.sendCh <- outbound{ping: true}:
		return true
	case <-cw.doneCh:
		return false
	default:
		return false
	}
}

// stop terminates the writer goroutine and closes the underlying channel.
// Safe to call multiple times; blocks until the goroutine has exited.
func (cw *connWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)
		_ = cw.channel.Close()
	})
	cw.wg.Wait()
}
