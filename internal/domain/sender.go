package domain

// Sender delivers one outbound event to a single connected client. The hub's
// client satisfies it; tests substitute a recording fake.
type Sender interface {
	SendMessage(v interface{}) error
}
