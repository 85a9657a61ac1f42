// Package drivegate provides the core types and the upstream storage gateway
// interface for mediating file-storage operations (list, upload, download,
// rename, delete) between HTTP clients and a remote document-container service.
package drivegate

import (
	"context"
	"strings"
	"time"
)

// Item describes a single file or folder held by the upstream service.
// Exactly one of (Size and ContentType) or Folder is set: files carry a size
// and a content type, folders carry folder info.
type Item struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Size         *int64      `json:"size,omitempty"`
	ETag         string      `json:"eTag,omitempty"`
	LastModified time.Time   `json:"lastModifiedDateTime"`
	ContentType  *string     `json:"contentType,omitempty"`
	Folder       *FolderInfo `json:"folder,omitempty"`
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool {
	return i.Folder != nil
}

// SizeOrZero returns the item size, treating folders (absent size) as 0.
func (i *Item) SizeOrZero() int64 {
	if i.Size == nil {
		return 0
	}
	return *i.Size
}

// FolderInfo holds folder-only metadata.
type FolderInfo struct {
	ChildCount *int32 `json:"childCount,omitempty"`
}

// ItemUpdate describes a rename and/or move of an item. At least one field
// must be set.
type ItemUpdate struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentReferenceId,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u ItemUpdate) Empty() bool {
	return (u.Name == nil || *u.Name == "") && (u.ParentID == nil || *u.ParentID == "")
}

// ConflictBehavior is the policy the upstream applies when a new item's name
// collides with an existing one.
type ConflictBehavior string

const (
	// ConflictReplace overwrites the existing item. This is the default.
	ConflictReplace ConflictBehavior = "replace"

	// ConflictRename stores the new item under a derived, non-colliding name.
	ConflictRename ConflictBehavior = "rename"

	// ConflictFail rejects the upload when the name is taken.
	ConflictFail ConflictBehavior = "fail"
)

// ParseConflictBehavior parses a free-text conflict behavior hint. Absent or
// unrecognized values default to ConflictReplace.
func ParseConflictBehavior(s string) ConflictBehavior {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rename":
		return ConflictRename
	case "fail":
		return ConflictFail
	default:
		return ConflictReplace
	}
}

// ByteRange is a byte interval within an item's content. Start is inclusive.
// An open-ended range (to end of resource) has Open set; End is then ignored.
type ByteRange struct {
	Start int64
	End   int64
	Open  bool
}

// ContentRange locates one uploaded chunk within the full upload. When the
// total size is not yet known (an upload streamed without a declared length),
// TotalKnown is false and Total is ignored.
type ContentRange struct {
	Start      int64
	End        int64
	Total      int64
	TotalKnown bool
}

// ChunkSize returns the number of bytes the descriptor spans.
func (c ContentRange) ChunkSize() int64 {
	return c.End - c.Start + 1
}

// IsFinal reports whether the chunk is the last one of the upload. Finality
// requires the total to be known; an unknown-total chunk is never final and
// must be completed through an explicit out-of-band signal instead.
func (c ContentRange) IsFinal() bool {
	return c.TotalKnown && c.End+1 == c.Total
}

// ChunkResponse is what the upstream returns for a single accepted chunk.
// Item is nil until the upload is complete. Created distinguishes a newly
// created item from a replaced one once the upload completes.
type ChunkResponse struct {
	Item    *Item
	Created bool
}

// Gateway is the single capability the mediation layer consumes to reach the
// upstream document-container service. The interface is here so the protocol
// logic can be exercised against a deterministic fake; real implementations
// live under backend/.
//
// Every method takes a context and must propagate its deadline and
// cancellation to the upstream call unchanged. Implementations perform no
// retries of their own; retry policy is layered around the gateway by the
// caller (for example via the HTTP transport the gateway is constructed with).
type Gateway interface {
	// CreateUploadSession asks the upstream for an upload handle for the item
	// at path within the given drive. The returned handle is opaque to callers
	// and is the sole coordination token for subsequent chunk submissions.
	CreateUploadSession(ctx context.Context, driveID, path string, behavior ConflictBehavior) (handle string, err error)

	// UploadChunk forwards one contiguous chunk of a session's content. When
	// rng is the final chunk, the response carries the finalized item.
	UploadChunk(ctx context.Context, handle string, rng ContentRange, payload []byte) (ChunkResponse, error)

	// ItemMetadata resolves the current size, etag and content type of an item.
	// Unknown items yield an error wrapping ErrNotFound.
	ItemMetadata(ctx context.Context, driveID, itemID string) (*Item, error)

	// ItemContent fetches the item's bytes. A nil rng fetches the full content;
	// a bounded rng fetches exactly that interval.
	ItemContent(ctx context.Context, driveID, itemID string, rng *ByteRange) ([]byte, error)

	// ListItems returns the full, unordered set of items directly under the
	// given container. Ordering and pagination are the caller's concern.
	ListItems(ctx context.Context, containerID string) ([]Item, error)

	// PutItem stores content as a complete item in a single call. Intended for
	// small payloads that do not warrant an upload session.
	PutItem(ctx context.Context, containerID, path string, content []byte) (*Item, error)

	// UpdateItem renames and/or moves an item.
	UpdateItem(ctx context.Context, driveID, itemID string, changes ItemUpdate) (*Item, error)

	// DeleteItem removes an item.
	DeleteItem(ctx context.Context, driveID, itemID string) error
}
