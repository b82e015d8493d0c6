package core

// SettingsFields is the shared-settings view of one replica side. The
// settings reconciler operates on two of these (document-embedded vs.
// global) as a pure function, independent of persistence; Board and
// GlobalSettings each know how to assemble and re-apply the view.
type SettingsFields struct {
	UserName        string
	Notes           string
	VoicePreference string
	Memories        []string
	AuditLog        []AuditEntry
	Chats           []ChatThread
	Reminders       []ReminderItem
}

// GlobalSettings is the singleton, cross-board replica of the fields meant
// to be shared across documents.
type GlobalSettings struct {
	UserName        string         `json:"userName,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	VoicePreference string         `json:"voicePreference,omitempty"`
	Memories        []string       `json:"memories,omitempty"`
	AuditLog        []AuditEntry   `json:"auditLog,omitempty"`
	Chats           []ChatThread   `json:"chats,omitempty"`
	Reminders       []ReminderItem `json:"reminders,omitempty"`
	UpdatedAt       int64          `json:"updatedAt,omitempty"`
}

// SettingsFields assembles the shared view from the board side: scalars and
// memories from the embedded settings, collections from the board itself.
func (b *Board) SettingsFields() SettingsFields {
	return SettingsFields{
		UserName:        b.Settings.UserName,
		Notes:           b.Settings.Notes,
		VoicePreference: b.Settings.VoicePreference,
		Memories:        append([]string(nil), b.Settings.Memories...),
		AuditLog:        append([]AuditEntry(nil), b.AuditLog...),
		Chats:           cloneChats(b.Chats),
		Reminders:       cloneReminders(b.Reminders),
	}
}

// ApplySettingsFields writes a merged shared view back into the board.
// Collections are deep-cloned so the two replicas never alias.
func (b *Board) ApplySettingsFields(f SettingsFields) {
	b.Settings.UserName = f.UserName
	b.Settings.Notes = f.Notes
	b.Settings.VoicePreference = f.VoicePreference
	b.Settings.Memories = append([]string(nil), f.Memories...)
	b.AuditLog = append([]AuditEntry(nil), f.AuditLog...)
	b.Chats = cloneChats(f.Chats)
	b.Reminders = cloneReminders(f.Reminders)
}

// SettingsFields assembles the shared view from the global side.
func (g *GlobalSettings) SettingsFields() SettingsFields {
	return SettingsFields{
		UserName:        g.UserName,
		Notes:           g.Notes,
		VoicePreference: g.VoicePreference,
		Memories:        append([]string(nil), g.Memories...),
		AuditLog:        append([]AuditEntry(nil), g.AuditLog...),
		Chats:           cloneChats(g.Chats),
		Reminders:       cloneReminders(g.Reminders),
	}
}

// ApplySettingsFields writes a merged shared view back into the global record.
func (g *GlobalSettings) ApplySettingsFields(f SettingsFields) {
	g.UserName = f.UserName
	g.Notes = f.Notes
	g.VoicePreference = f.VoicePreference
	g.Memories = append([]string(nil), f.Memories...)
	g.AuditLog = append([]AuditEntry(nil), f.AuditLog...)
	g.Chats = cloneChats(f.Chats)
	g.Reminders = cloneReminders(f.Reminders)
}
