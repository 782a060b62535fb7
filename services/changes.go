package services

import (
	"context"
	"storeadmin_server/structs"
	"sync"

	"github.com/google/uuid"
)

// ChangeNotifier is told about every committed mutation
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, change structs.TableChange)
}

func notifyChange(ctx context.Context, n ChangeNotifier, table, op string, id uuid.UUID) {
	if n == nil {
		return
	}
	n.NotifyChange(ctx, structs.TableChange{Table: table, Op: op, ID: id.String()})
}

const subscriberBuffer = 16

// ChangeFeed fans table changes out to in-process subscribers. A subscriber
// that falls behind loses changes instead of blocking the publisher.
type ChangeFeed struct {
	mu          sync.Mutex
	subscribers map[chan structs.TableChange]struct{}
	closed      bool
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subscribers: make(map[chan structs.TableChange]struct{}),
	}
}

// Subscribe returns a channel of changes and a func that ends the subscription
func (f *ChangeFeed) Subscribe() (<-chan structs.TableChange, func()) {
	ch := make(chan structs.TableChange, subscriberBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subscribers[ch]; ok {
				delete(f.subscribers, ch)
				close(ch)
			}
		})
	}
}

func (f *ChangeFeed) Publish(change structs.TableChange) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- change:
		default:
			droppedChanges.Inc()
		}
	}
}

func (f *ChangeFeed) NotifyChange(_ context.Context, change structs.TableChange) {
	f.Publish(change)
}

// Close ends every subscription
func (f *ChangeFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}
