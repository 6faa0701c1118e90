package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncHook buffers entries and writes them to its writers from a single
// goroutine. When the buffer is full entries are dropped.
type AsyncHook struct {
	writers    []io.Writer
	filter     *FilterHook
	entries    chan *logrus.Entry
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool
	bufferSize int
}

// NewAsyncHook creates an async hook for one writer.
func NewAsyncHook(writer io.Writer, bufferSize int, filter *FilterHook) *AsyncHook {
	return NewAsyncHookWithWriters([]io.Writer{writer}, bufferSize, filter)
}

// NewAsyncHookWithWriters creates an async hook for several writers. Entries
// rejected by filter are never queued. bufferSize defaults to 1000.
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int, filter *FilterHook) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	hook := &AsyncHook{
		writers:    writers,
		filter:     filter,
		entries:    make(chan *logrus.Entry, bufferSize),
		bufferSize: bufferSize,
	}

	hook.wg.Add(1)
	go hook.processEntries()

	return hook
}

// Levels returns every level.
func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire queues the entry without blocking. After Close it writes synchronously.
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	if h.filter != nil && !h.filter.Allow(entry) {
		return nil
	}

	h.mu.Lock()
	if !h.closed {
		select {
		case h.entries <- entry:
		default:
		}
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	data, err := format(entry)
	if err != nil {
		return err
	}
	for _, w := range h.writers {
		_, _ = w.Write(data)
	}
	return nil
}

// processEntries drains the queue. A panic while writing one entry is reported
// on stderr and does not stop the loop.
func (h *AsyncHook) processEntries() {
	defer h.wg.Done()

	for entry := range h.entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[LOGGER PANIC] recovered: %v\n", r)
					debug.PrintStack()
				}
			}()

			data, err := format(entry)
			if err != nil {
				return
			}
			for _, w := range h.writers {
				if _, err := w.Write(data); err != nil {
					continue
				}
			}
		}()
	}
}

func format(entry *logrus.Entry) ([]byte, error) {
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		return entry.Logger.Formatter.Format(entry)
	}
	line, err := entry.String()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// Close stops accepting entries and waits for the queue to drain.
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.entries)
	h.wg.Wait()
	return nil
}
