// Package events fans out data-change notifications after successful report
// writes. Reactions such as dirty marking and mirror refresh register through
// OnDataChanged.
package events

import (
	"context"
	"sync"

	"optometry_report/internal/logger"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpLock   = "lock"
	OpUnlock = "unlock"
)

// DataChangeEvent describes one write. Document is the stored document after
// the change.
type DataChangeEvent struct {
	CollectionName string
	Operation      string
	Document       interface{}
}

// DataChangeHandler reacts to a data change.
type DataChangeHandler func(ctx context.Context, e DataChangeEvent)

var (
	handlers   []DataChangeHandler
	handlersMu sync.RWMutex
)

// OnDataChanged registers h. Call at start-up.
func OnDataChanged(h DataChangeHandler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers = append(handlers, h)
}

// ResetHandlers drops every registered handler.
func ResetHandlers() {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers = nil
}

// EmitDataChanged runs every handler in its own goroutine. ctx is detached
// from the caller's cancellation since handlers outlive the request.
// A panicking handler is logged and does not affect the others.
func EmitDataChanged(ctx context.Context, e DataChangeEvent) *sync.WaitGroup {
	handlersMu.RLock()
	list := make([]DataChangeHandler, len(handlers))
	copy(list, handlers)
	handlersMu.RUnlock()

	detached := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, h := range list {
		wg.Add(1)
		go func(fn DataChangeHandler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithModule("events").WithFields(map[string]interface{}{
						"collection": e.CollectionName,
						"operation":  e.Operation,
						"panic":      r,
					}).Error("Data change handler panicked")
				}
			}()
			fn(detached, e)
		}(h)
	}
	return &wg
}
