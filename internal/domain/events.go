package domain

// Event types published on the in-process bus.
const (
	EventDailyQuoteChanged = "daily_quote.changed"
	EventStreakUpdated     = "streak.updated"
	EventCollectionChanged = "collection.changed"
	EventKeyChanged        = "storage.key_changed"
	EventReminderDue       = "reminder.due"
)

// DailyQuoteChanged is published when a new quote is picked for a day.
type DailyQuoteChanged struct {
	Quote   Quote   `json:"quote"`
	DateKey DateKey `json:"dateKey"`
	Forced  bool    `json:"forced"`
}

// EventType implements ports.Event.
func (e DailyQuoteChanged) EventType() string { return EventDailyQuoteChanged }

// Payload implements ports.Event.
func (e DailyQuoteChanged) Payload() any { return e }

// StreakUpdated is published after an activity is recorded.
type StreakUpdated struct {
	Kind   ActivityKind `json:"kind"`
	Record StreakRecord `json:"record"`
}

// EventType implements ports.Event.
func (e StreakUpdated) EventType() string { return EventStreakUpdated }

// Payload implements ports.Event.
func (e StreakUpdated) Payload() any { return e }

// CollectionChanged is published when a quote is added to or removed from a collection.
type CollectionChanged struct {
	Collection CollectionName `json:"collection"`
	Quote      Quote          `json:"quote"`
	Added      bool           `json:"added"`
	Size       int            `json:"size"`
}

// EventType implements ports.Event.
func (e CollectionChanged) EventType() string { return EventCollectionChanged }

// Payload implements ports.Event.
func (e CollectionChanged) Payload() any { return e }

// KeyChanged is published after a storage key is written or deleted.
type KeyChanged struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
	// Origin identifies the store instance that performed the write.
	Origin string `json:"origin"`
}

// EventType implements ports.Event.
func (e KeyChanged) EventType() string { return EventKeyChanged }

// Payload implements ports.Event.
func (e KeyChanged) Payload() any { return e }

// ReminderDue is published once a day at the configured reminder time.
type ReminderDue struct {
	DateKey       DateKey `json:"dateKey"`
	CurrentStreak int     `json:"currentStreak"`
	ActiveToday   bool    `json:"activeToday"`
}

// EventType implements ports.Event.
func (e ReminderDue) EventType() string { return EventReminderDue }

// Payload implements ports.Event.
func (e ReminderDue) Payload() any { return e }
