package core

import "fmt"

// RecordTag identifies which logical record a storage change event refers to.
type RecordTag string

const (
	TagGlobalSettings RecordTag = "globalSettings"
	TagBoard          RecordTag = "board"
	TagBoardsIndex    RecordTag = "boardsIndex"
	TagAssets         RecordTag = "assets"
)

// Event represents an external change in storage, emitted by watchable
// repositories. BoardID is set only for TagBoard events.
type Event struct {
	Tag       RecordTag
	BoardID   string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer so events can flow through generic
// lifecycle event plumbing.
func (e Event) String() string {
	if e.Tag == TagBoard {
		return fmt.Sprintf("%s(%s)", e.Tag, e.BoardID)
	}
	return string(e.Tag)
}
