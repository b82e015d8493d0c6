// Package corkboard is the composition root for the corkboard consistency
// core: the undo/redo history, settings reconciliation and reminder
// scheduling behind a spatial canvas of notes, chats and reminders.
//
// The core is built around one serialized owner context (the board store):
// every in-memory mutation of the active board happens there, while blocking
// work such as reminder preparation is dispatched out and rejoins the loop
// before touching shared state. Persistence is a port (core.Repository) with
// two adapters out of the box: a human-editable directory vault and an
// embedded BadgerDB.
//
// Usage:
//
//	store, err := corkboard.Open(ctx, "./vault",
//		corkboard.WithLogger(logger),
//	)
//	if err != nil { ... }
//	defer store.Close(ctx)
//
//	store.SwitchBoard(ctx, "inbox")
//	store.Mutate("entry:move", func(b *core.Board) { ... })
//	store.Undo()
package corkboard
