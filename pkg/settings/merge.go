// Package settings keeps the document-embedded settings slice and the
// cross-board global settings record consistent. The merge itself is a pure
// function over two field views; persistence lives in the Reconciler.
package settings

import (
	"encoding/json"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// Outcome reports what a merge did.
type Outcome struct {
	// DocChanged / GlobalChanged mark which replica the merge rewrote.
	DocChanged    bool
	GlobalChanged bool

	// Diverged lists scalar fields that were non-default on both sides
	// with differing values. They are left untouched on both replicas;
	// first non-empty writer wins and there is no further resolution.
	Diverged []string
}

// Changed reports whether the merge rewrote either side.
func (o Outcome) Changed() bool { return o.DocChanged || o.GlobalChanged }

// Clean reports whether the replicas ended field-wise equal.
func (o Outcome) Clean() bool { return len(o.Diverged) == 0 }

// Merge reconciles the two replica views and returns the merged pair. It is
// pure: no I/O, inputs are not mutated (views are assembled as copies by the
// callers). Re-merging an already-consistent pair is a no-op.
//
// Rules:
//   - Scalars: a default (empty) side adopts the non-default side; two
//     differing non-default sides are left unchanged and reported.
//   - Identity-keyed collections (chats, reminders): union by id; the same
//     id with differing content keeps the version with the later activity
//     timestamp, ties broken by larger item count, final ties keep the
//     document side.
//   - Non-identity collections (memories, audit log): the non-empty side
//     wins only when the other is empty.
func Merge(doc core.SettingsFields, global core.SettingsFields) (core.SettingsFields, core.SettingsFields, Outcome) {
	var out Outcome

	mergeScalar(&doc.UserName, &global.UserName, "userName", &out)
	mergeScalar(&doc.Notes, &global.Notes, "notes", &out)
	mergeScalar(&doc.VoicePreference, &global.VoicePreference, "voicePreference", &out)

	mergeNonIdentity(&doc.Memories, &global.Memories, &out)
	mergeNonIdentity(&doc.AuditLog, &global.AuditLog, &out)

	mergedChats := mergeByID(doc.Chats, global.Chats,
		func(c core.ChatThread) string { return c.ID },
		func(c core.ChatThread) int64 { return c.LastActivityAt },
		func(c core.ChatThread) int { return len(c.Messages) },
	)
	if !sliceEqual(mergedChats, doc.Chats) {
		doc.Chats = mergedChats
		out.DocChanged = true
	}
	if !sliceEqual(mergedChats, global.Chats) {
		global.Chats = cloneSlice(mergedChats)
		out.GlobalChanged = true
	}

	mergedReminders := mergeByID(doc.Reminders, global.Reminders,
		func(r core.ReminderItem) string { return r.ID },
		reminderActivity,
		func(r core.ReminderItem) int { return len(r.PreparedMessage) },
	)
	if !sliceEqual(mergedReminders, doc.Reminders) {
		doc.Reminders = mergedReminders
		out.DocChanged = true
	}
	if !sliceEqual(mergedReminders, global.Reminders) {
		global.Reminders = cloneSlice(mergedReminders)
		out.GlobalChanged = true
	}

	return doc, global, out
}

// reminderActivity is the last-activity proxy for reminders: a due-time
// change (recurrence advance) counts as activity, as does creation.
func reminderActivity(r core.ReminderItem) int64 {
	if r.DueAt > r.CreatedAt {
		return r.DueAt
	}
	return r.CreatedAt
}

func mergeScalar(doc, global *string, name string, out *Outcome) {
	switch {
	case *doc == *global:
		// consistent, nothing to do
	case *global == "":
		*global = *doc
		out.GlobalChanged = true
	case *doc == "":
		*doc = *global
		out.DocChanged = true
	default:
		out.Diverged = append(out.Diverged, name)
	}
}

// mergeNonIdentity handles collections without stable ids: whichever side is
// non-empty wins when the other is empty; two non-empty sides are left
// alone, even when they differ.
func mergeNonIdentity[T any](doc, global *[]T, out *Outcome) {
	switch {
	case len(*doc) == 0 && len(*global) > 0:
		*doc = append([]T(nil), *global...)
		out.DocChanged = true
	case len(*global) == 0 && len(*doc) > 0:
		*global = append([]T(nil), *doc...)
		out.GlobalChanged = true
	}
}

// mergeByID unions two identity-keyed collections. Order is deterministic:
// document-side items first (in document order), then global-only items in
// global order — so merging an already-equal pair reproduces the input.
func mergeByID[T any](doc, global []T, id func(T) string, activity func(T) int64, count func(T) int) []T {
	if len(doc) == 0 && len(global) == 0 {
		return nil
	}

	globalByID := make(map[string]T, len(global))
	for _, g := range global {
		globalByID[id(g)] = g
	}

	merged := make([]T, 0, len(doc)+len(global))
	seen := make(map[string]bool, len(doc))

	for _, d := range doc {
		key := id(d)
		seen[key] = true
		g, ok := globalByID[key]
		if !ok || itemEqual(d, g) {
			merged = append(merged, d)
			continue
		}
		merged = append(merged, pickLater(d, g, activity, count))
	}

	for _, g := range global {
		if !seen[id(g)] {
			merged = append(merged, g)
		}
	}
	return merged
}

// pickLater resolves an id conflict: later activity wins, ties go to the
// larger item count, final ties keep the document side.
func pickLater[T any](doc, global T, activity func(T) int64, count func(T) int) T {
	da, ga := activity(doc), activity(global)
	if da != ga {
		if ga > da {
			return global
		}
		return doc
	}
	if count(global) > count(doc) {
		return global
	}
	return doc
}

// itemEqual compares two items structurally via their canonical JSON form.
// The persisted records are JSON already, so this matches what "differing
// content" means on disk.
func itemEqual[T any](a, b T) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(ab) == string(bb)
}

// sliceEqual treats nil and empty as equal; otherwise canonical JSON.
func sliceEqual[T any](a, b []T) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	return itemEqual(a, b)
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}
