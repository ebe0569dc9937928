package service

// Notifier pushes realtime events to a user's open connections.
type Notifier interface {
	Publish(userID uint, eventType string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uint, string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
