package notification

import (
	"log"
	"sync"
)

// NotificationService keeps an in-memory feed of operational events
// (allocation uploads, case assignments) for clients to poll.
type NotificationService struct {
	mu            sync.Mutex
	notifications []string
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		notifications: make([]string, 0),
	}
}

func (ns *NotificationService) AddNotification(notification string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = append(ns.notifications, notification)
}

func (ns *NotificationService) GetNotifications() []string {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]string, len(ns.notifications))
	copy(out, ns.notifications)
	return out
}

func (ns *NotificationService) ClearNotifications() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = []string{}
}

var defaultService = NewNotificationService()

// Push records an event on the shared feed.
func Push(msg string) {
	log.Printf("[INFO] %s", msg)
	defaultService.AddNotification(msg)
}

// Recent returns the shared feed contents.
func Recent() []string {
	return defaultService.GetNotifications()
}
