package store

import (
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps one [SourceStatus] per registered source, in registration
// order, plus a shared [History] of recent runs. Every fold or recorded error
// is published to subscribers through buffered channels; if a subscriber's
// buffer is full the update is dropped for that subscriber.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []string
	statuses map[string]*SourceStatus
	history  *History
	policy   EmptyPolicy
	notifs   []Notification

	subscribers map[chan SourceStatus]struct{}
	subMu       sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose history holds historySize runs.
func NewMemoryStore(historySize int, policy EmptyPolicy) *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]*SourceStatus),
		history:     NewHistory(historySize),
		policy:      policy,
		subscribers: make(map[chan SourceStatus]struct{}),
	}
}

// Register adds a source. An empty Status starts as [StatusUnknown].
func (m *MemoryStore) Register(status SourceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.statuses[status.Key]; exists {
		return
	}
	if status.Status == "" {
		status.Status = StatusUnknown
	}
	m.order = append(m.order, status.Key)
	m.statuses[status.Key] = &status
}

// Fold merges a newest-first page of runs into the source and the history.
//
// The newest run sets the source status. Every run with a completion time is
// then inserted into the history in page order, with eviction applied after
// each insertion. An empty page is handled according to the store's
// [EmptyPolicy]. Unknown keys are ignored.
func (m *MemoryStore) Fold(key string, runs []Run, at time.Time) {
	m.mu.Lock()
	s, ok := m.statuses[key]
	if !ok {
		m.mu.Unlock()
		return
	}

	s.CheckedAt = at
	s.Error = nil

	if len(runs) == 0 {
		if m.policy == EmptyUnknown || !s.reported {
			s.Status = StatusUnknown
		}
	} else {
		s.Status = runs[0].Status
		s.reported = true
		for _, run := range runs {
			if run.CompletedAt.IsZero() {
				continue
			}
			m.history.Insert(Event{
				Key:         key,
				Label:       s.Detail,
				RunID:       run.ID,
				Status:      run.Status,
				CompletedAt: run.CompletedAt,
				URL:         run.URL,
			})
		}
	}

	updated := *s
	m.mu.Unlock()

	m.notifySubscribers(updated)
}

// RecordError stores the error text for the source. The status is left as it
// was, so a failing source shows its last known state.
func (m *MemoryStore) RecordError(key string, err error, at time.Time) {
	if err == nil {
		return
	}

	m.mu.Lock()
	s, ok := m.statuses[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	msg := err.Error()
	s.Error = &msg
	updated := *s
	m.mu.Unlock()

	m.notifySubscribers(updated)
}

// Get returns a copy of one source's status.
func (m *MemoryStore) Get(key string) (SourceStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.statuses[key]
	if !ok {
		return SourceStatus{}, false
	}
	return *s, true
}

// Snapshot returns copies of all sources (registration order) and the recent
// runs (oldest first). Modifying the result does not affect the store.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]SourceStatus, 0, len(m.order))
	for _, key := range m.order {
		sources = append(sources, *m.statuses[key])
	}

	notifs := make([]Notification, len(m.notifs))
	copy(notifs, m.notifs)

	return Snapshot{
		Sources:       sources,
		Recent:        m.history.Events(),
		Notifications: notifs,
	}
}

// SetNotifications replaces the unread notifications and publishes a
// [NotificationsKey] update whose Detail carries the unread count.
func (m *MemoryStore) SetNotifications(items []Notification, at time.Time) {
	m.mu.Lock()
	m.notifs = make([]Notification, len(items))
	copy(m.notifs, items)
	m.mu.Unlock()

	m.notifySubscribers(SourceStatus{
		Key:       NotificationsKey,
		Label:     "Notifications",
		Detail:    fmt.Sprintf("%d unread", len(items)),
		Provider:  "notifications",
		URL:       "https://github.com/notifications",
		Status:    StatusUnknown,
		CheckedAt: at,
	})
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan SourceStatus {
	ch := make(chan SourceStatus, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan SourceStatus) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the update to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(status SourceStatus) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- status:
		default:
			// subscriber is slow, drop the message
		}
	}
}
