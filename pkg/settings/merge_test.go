package settings_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard-dev/corkboard/pkg/core"
	"github.com/corkboard-dev/corkboard/pkg/settings"
)

func thread(id string, lastTs int64, msgCount int) core.ChatThread {
	msgs := make([]core.ChatMessage, msgCount)
	for i := range msgs {
		msgs[i] = core.ChatMessage{ID: id + "-m", Text: "hi", At: lastTs}
	}
	return core.ChatThread{ID: id, Title: "t-" + id, Messages: msgs, LastActivityAt: lastTs}
}

func TestMergeScalars(t *testing.T) {
	t.Run("Document Propagates To Default Global", func(t *testing.T) {
		doc := core.SettingsFields{UserName: "ada"}
		global := core.SettingsFields{}

		mDoc, mGlobal, out := settings.Merge(doc, global)
		assert.Equal(t, "ada", mGlobal.UserName)
		assert.Equal(t, "ada", mDoc.UserName)
		assert.True(t, out.GlobalChanged)
		assert.False(t, out.DocChanged)
	})

	t.Run("Global Propagates To Default Document", func(t *testing.T) {
		doc := core.SettingsFields{}
		global := core.SettingsFields{Notes: "remember the milk", VoicePreference: "nova"}

		mDoc, _, out := settings.Merge(doc, global)
		assert.Equal(t, "remember the milk", mDoc.Notes)
		assert.Equal(t, "nova", mDoc.VoicePreference)
		assert.True(t, out.DocChanged)
	})

	t.Run("Conflicting Non-Defaults Stay Divergent", func(t *testing.T) {
		doc := core.SettingsFields{UserName: "ada"}
		global := core.SettingsFields{UserName: "grace"}

		mDoc, mGlobal, out := settings.Merge(doc, global)
		assert.Equal(t, "ada", mDoc.UserName)
		assert.Equal(t, "grace", mGlobal.UserName)
		assert.False(t, out.Changed())
		assert.Equal(t, []string{"userName"}, out.Diverged)
		assert.False(t, out.Clean())
	})
}

func TestMergeNonIdentityCollections(t *testing.T) {
	t.Run("Non-Empty Side Wins Over Empty", func(t *testing.T) {
		doc := core.SettingsFields{Memories: []string{"likes go"}}
		global := core.SettingsFields{AuditLog: []core.AuditEntry{{ID: "a1", Action: "add"}}}

		mDoc, mGlobal, out := settings.Merge(doc, global)
		assert.Equal(t, []string{"likes go"}, mGlobal.Memories)
		assert.Len(t, mDoc.AuditLog, 1)
		assert.True(t, out.Changed())
	})

	t.Run("Both Non-Empty Left Untouched", func(t *testing.T) {
		doc := core.SettingsFields{Memories: []string{"a", "b"}}
		global := core.SettingsFields{Memories: []string{"c"}}

		mDoc, mGlobal, _ := settings.Merge(doc, global)
		assert.Equal(t, []string{"a", "b"}, mDoc.Memories)
		assert.Equal(t, []string{"c"}, mGlobal.Memories)
	})
}

func TestMergeIdentityCollections(t *testing.T) {
	t.Run("Union By ID", func(t *testing.T) {
		doc := core.SettingsFields{Chats: []core.ChatThread{thread("c1", 10, 1)}}
		global := core.SettingsFields{Chats: []core.ChatThread{thread("c2", 20, 2)}}

		mDoc, mGlobal, out := settings.Merge(doc, global)
		require.Len(t, mDoc.Chats, 2)
		assert.Equal(t, mDoc.Chats, mGlobal.Chats)
		assert.True(t, out.DocChanged)
		assert.True(t, out.GlobalChanged)
	})

	t.Run("Later Activity Wins", func(t *testing.T) {
		older := thread("c1", 100, 3)
		newer := thread("c1", 200, 1)

		doc := core.SettingsFields{Chats: []core.ChatThread{older}}
		global := core.SettingsFields{Chats: []core.ChatThread{newer}}

		mDoc, _, _ := settings.Merge(doc, global)
		require.Len(t, mDoc.Chats, 1)
		assert.Equal(t, int64(200), mDoc.Chats[0].LastActivityAt)
	})

	t.Run("Activity Tie Breaks By Message Count", func(t *testing.T) {
		five := thread("c1", 100, 5)
		eight := thread("c1", 100, 8)

		doc := core.SettingsFields{Chats: []core.ChatThread{five}}
		global := core.SettingsFields{Chats: []core.ChatThread{eight}}

		mDoc, mGlobal, _ := settings.Merge(doc, global)
		require.Len(t, mDoc.Chats, 1)
		assert.Len(t, mDoc.Chats[0].Messages, 8, "8-message version kept")
		assert.Len(t, mGlobal.Chats[0].Messages, 8)
	})

	t.Run("Reminders Merge By ID", func(t *testing.T) {
		doc := core.SettingsFields{Reminders: []core.ReminderItem{
			{ID: "r1", Title: "stale", CreatedAt: 1, DueAt: 50, Status: core.ReminderScheduled},
		}}
		global := core.SettingsFields{Reminders: []core.ReminderItem{
			{ID: "r1", Title: "advanced", CreatedAt: 1, DueAt: 90, Status: core.ReminderScheduled},
			{ID: "r2", Title: "other", CreatedAt: 2, DueAt: 60, Status: core.ReminderScheduled},
		}}

		mDoc, _, _ := settings.Merge(doc, global)
		require.Len(t, mDoc.Reminders, 2)
		assert.Equal(t, "advanced", mDoc.Reminders[0].Title, "later due time is later activity")
	})
}

func TestMergeIdempotence(t *testing.T) {
	doc := core.SettingsFields{
		UserName:  "ada",
		Memories:  []string{"likes go"},
		Chats:     []core.ChatThread{thread("c1", 100, 2)},
		Reminders: []core.ReminderItem{{ID: "r1", Title: "water plants", DueAt: 10}},
	}
	global := core.SettingsFields{
		Notes: "global note",
		Chats: []core.ChatThread{thread("c2", 50, 1)},
	}

	mDoc, mGlobal, out := settings.Merge(doc, global)
	require.True(t, out.Changed())

	// Second merge with no intervening mutation is a byte-identical no-op.
	mDoc2, mGlobal2, out2 := settings.Merge(mDoc, mGlobal)
	assert.False(t, out2.Changed())

	b1, _ := json.Marshal([]any{mDoc, mGlobal})
	b2, _ := json.Marshal([]any{mDoc2, mGlobal2})
	assert.Equal(t, string(b1), string(b2))
}

func TestMergeEmptyPairIsNoop(t *testing.T) {
	_, _, out := settings.Merge(core.SettingsFields{}, core.SettingsFields{})
	assert.False(t, out.Changed())
	assert.True(t, out.Clean())
}
