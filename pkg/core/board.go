package core

import "time"

// Board is the central entity of the domain: the canonical per-document
// aggregate of canvas entries, chat threads, reminders, settings and the
// audit log. It is pure data; all behavior lives in the services that
// operate on it.
type Board struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Entries   []Entry        `json:"entries,omitempty"`
	Chats     []ChatThread   `json:"chats,omitempty"`
	Reminders []ReminderItem `json:"reminders,omitempty"`
	Settings  BoardSettings  `json:"settings"`
	AuditLog  []AuditEntry   `json:"auditLog,omitempty"`

	// UpdatedAt is a unix timestamp (seconds). It never decreases; see Touch.
	UpdatedAt int64 `json:"updatedAt"`
}

// BoardSettings is the document-embedded slice of the shared settings.
// The cross-board counterpart is GlobalSettings.
type BoardSettings struct {
	UserName        string   `json:"userName,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	VoicePreference string   `json:"voicePreference,omitempty"`
	Memories        []string `json:"memories,omitempty"`
}

// Entry is an opaque canvas entry. Layout and rendering are external
// collaborators; the core only carries entries through snapshots and
// persistence.
type Entry struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	Content string  `json:"content,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// ChatThread is one conversation attached to a board.
type ChatThread struct {
	ID             string        `json:"id"`
	Title          string        `json:"title,omitempty"`
	Messages       []ChatMessage `json:"messages,omitempty"`
	LastActivityAt int64         `json:"lastActivityAt,omitempty"`
}

// ChatMessage is a single message inside a thread. Streaming and tool-call
// execution are out of scope; the core stores the settled text.
type ChatMessage struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`
	At   int64  `json:"at,omitempty"`
}

// AuditEntry records one mutating operation for the audit log.
type AuditEntry struct {
	ID     string `json:"id"`
	At     int64  `json:"at"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// Touch bumps UpdatedAt to now (unix seconds) without ever going backwards.
func (b *Board) Touch(now int64) {
	if now <= b.UpdatedAt {
		now = b.UpdatedAt + 1
	}
	b.UpdatedAt = now
}

// Reminder returns a pointer to the reminder with the given id, or nil.
func (b *Board) Reminder(id string) *ReminderItem {
	for i := range b.Reminders {
		if b.Reminders[i].ID == id {
			return &b.Reminders[i]
		}
	}
	return nil
}

// Chat returns a pointer to the thread with the given id, or nil.
func (b *Board) Chat(id string) *ChatThread {
	for i := range b.Chats {
		if b.Chats[i].ID == id {
			return &b.Chats[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the board. Snapshots rely on this to stay
// immutable while the live board keeps mutating.
func (b *Board) Clone() Board {
	out := *b
	out.Entries = append([]Entry(nil), b.Entries...)
	out.Reminders = cloneReminders(b.Reminders)
	out.Chats = cloneChats(b.Chats)
	out.AuditLog = append([]AuditEntry(nil), b.AuditLog...)
	out.Settings.Memories = append([]string(nil), b.Settings.Memories...)
	return out
}

func cloneChats(chats []ChatThread) []ChatThread {
	if chats == nil {
		return nil
	}
	out := make([]ChatThread, len(chats))
	for i, c := range chats {
		out[i] = c
		out[i].Messages = append([]ChatMessage(nil), c.Messages...)
	}
	return out
}

func cloneReminders(items []ReminderItem) []ReminderItem {
	if items == nil {
		return nil
	}
	out := make([]ReminderItem, len(items))
	for i, r := range items {
		out[i] = r
		if r.Recurrence != nil {
			rule := *r.Recurrence
			rule.Weekdays = append([]time.Weekday(nil), r.Recurrence.Weekdays...)
			out[i].Recurrence = &rule
		}
	}
	return out
}
