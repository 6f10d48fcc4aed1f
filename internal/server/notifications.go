package server

import "sync"

const defaultNotificationLimit = 50

// NotificationQueue collects user notifications until a client polls /state.
// It implements controller.Notifier.
type NotificationQueue struct {
	mu       sync.Mutex
	messages []string
	limit    int
}

// NewNotificationQueue keeps at most limit messages, dropping the oldest
func NewNotificationQueue(limit int) *NotificationQueue {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return &NotificationQueue{limit: limit}
}

// Notify queues a message
func (q *NotificationQueue) Notify(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, message)
	if over := len(q.messages) - q.limit; over > 0 {
		q.messages = q.messages[over:]
	}
}

// Drain returns and clears the queued messages
func (q *NotificationQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	messages := q.messages
	q.messages = nil
	return messages
}
