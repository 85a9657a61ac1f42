package testcontainers

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drivegate/drivegate"
)

const (
	conformanceChunk = 8 * 1024 * 1024
	conformanceTotal = 2 * conformanceChunk
)

// RunConformance exercises the full Gateway contract against a live backend.
// The container must exist and be writable; the suite cleans up what it
// creates.
func RunConformance(t *testing.T, gw drivegate.Gateway, containerID string) {
	t.Run("SmallFileLifecycle", func(t *testing.T) { conformSmallFile(t, gw, containerID) })
	t.Run("RangeDownloads", func(t *testing.T) { conformRanges(t, gw, containerID) })
	t.Run("ChunkedUpload", func(t *testing.T) { conformChunked(t, gw, containerID) })
	t.Run("ConflictBehaviors", func(t *testing.T) { conformConflicts(t, gw, containerID) })
	t.Run("Listing", func(t *testing.T) { conformListing(t, gw, containerID) })
	t.Run("Rename", func(t *testing.T) { conformRename(t, gw, containerID) })
}

func conformSmallFile(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)
	content := []byte("conformance payload")

	item, err := gw.PutItem(ctx, containerID, "conform/small.txt", content)
	is.NoError(err, "put should succeed")
	is.Equal(int64(len(content)), item.SizeOrZero())
	is.NotEmpty(item.ETag, "items must carry an etag")
	is.False(item.LastModified.IsZero(), "items must carry a timestamp")

	meta, err := gw.ItemMetadata(ctx, containerID, item.ID)
	is.NoError(err)
	is.Equal(item.ID, meta.ID)
	is.Equal(item.ETag, meta.ETag, "metadata and upload must agree on the etag")

	got, err := gw.ItemContent(ctx, containerID, item.ID, nil)
	is.NoError(err)
	is.Equal(content, got)

	is.NoError(gw.DeleteItem(ctx, containerID, item.ID))

	_, err = gw.ItemMetadata(ctx, containerID, item.ID)
	is.ErrorIs(err, drivegate.ErrNotFound, "deleted items must be gone")

	err = gw.DeleteItem(ctx, containerID, item.ID)
	is.ErrorIs(err, drivegate.ErrNotFound, "double deletes must surface not found")
}

func conformRanges(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)

	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i % 251)
	}
	item, err := gw.PutItem(ctx, containerID, "conform/ranged.bin", content)
	is.NoError(err)
	defer func() { _ = gw.DeleteItem(ctx, containerID, item.ID) }()

	bounded, err := gw.ItemContent(ctx, containerID, item.ID, &drivegate.ByteRange{Start: 0, End: 1023})
	is.NoError(err)
	is.Equal(content[:1024], bounded)

	open, err := gw.ItemContent(ctx, containerID, item.ID, &drivegate.ByteRange{Start: 4000, Open: true})
	is.NoError(err)
	is.Equal(content[4000:], open)

	overshoot, err := gw.ItemContent(ctx, containerID, item.ID, &drivegate.ByteRange{Start: 4000, End: 99999})
	is.NoError(err)
	is.Equal(content[4000:], overshoot, "an end past the size clamps to the last byte")
}

func conformChunked(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)

	handle, err := gw.CreateUploadSession(ctx, containerID, "conform/big.bin", drivegate.ConflictReplace)
	is.NoError(err, "session creation should succeed")
	is.NotEmpty(handle)

	first, err := gw.UploadChunk(ctx, handle,
		drivegate.ContentRange{Start: 0, End: conformanceChunk - 1, Total: conformanceTotal, TotalKnown: true},
		bytes.Repeat([]byte{0x01}, conformanceChunk))
	is.NoError(err, "staging a non-final chunk should succeed")
	is.Nil(first.Item, "non-final chunks carry no item")

	second, err := gw.UploadChunk(ctx, handle,
		drivegate.ContentRange{Start: conformanceChunk, End: conformanceTotal - 1, Total: conformanceTotal, TotalKnown: true},
		bytes.Repeat([]byte{0x02}, conformanceChunk))
	is.NoError(err, "the final chunk should complete the upload")
	is.NotNil(second.Item)
	is.True(second.Created, "a new item must report creation")
	is.Equal(int64(conformanceTotal), second.Item.SizeOrZero())
	defer func() { _ = gw.DeleteItem(ctx, containerID, second.Item.ID) }()

	got, err := gw.ItemContent(ctx, containerID, second.Item.ID, nil)
	is.NoError(err)
	is.Len(got, conformanceTotal)
	is.Equal(byte(0x01), got[0])
	is.Equal(byte(0x02), got[conformanceTotal-1])
}

func conformConflicts(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)

	item, err := gw.PutItem(ctx, containerID, "conform/taken.txt", []byte("x"))
	is.NoError(err)
	defer func() { _ = gw.DeleteItem(ctx, containerID, item.ID) }()

	_, err = gw.CreateUploadSession(ctx, containerID, "conform/taken.txt", drivegate.ConflictFail)
	is.Error(err, "fail behavior must reject an existing name")

	handle, err := gw.CreateUploadSession(ctx, containerID, "conform/taken.txt", drivegate.ConflictRename)
	is.NoError(err, "rename behavior must find a free name")

	res, err := gw.UploadChunk(ctx, handle,
		drivegate.ContentRange{Start: 0, End: 0, Total: 1, TotalKnown: true}, []byte{0x01})
	is.NoError(err)
	is.NotNil(res.Item)
	is.True(res.Created)
	is.NotEqual(item.ID, res.Item.ID, "the renamed upload must land on a fresh item")
	_ = gw.DeleteItem(ctx, containerID, res.Item.ID)
}

func conformListing(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)

	var ids []string
	for i := 0; i < 3; i++ {
		item, err := gw.PutItem(ctx, containerID, fmt.Sprintf("conform/list/%d.txt", i), []byte("x"))
		is.NoError(err)
		ids = append(ids, item.ID)
	}
	defer func() {
		for _, id := range ids {
			_ = gw.DeleteItem(ctx, containerID, id)
		}
	}()

	items, err := gw.ListItems(ctx, containerID)
	is.NoError(err)

	found := 0
	for i := range items {
		for _, id := range ids {
			if items[i].ID == id {
				found++
			}
		}
	}
	is.Equal(3, found, "every uploaded item must appear in the listing")
}

func conformRename(t *testing.T, gw drivegate.Gateway, containerID string) {
	ctx := context.Background()
	is := require.New(t)

	item, err := gw.PutItem(ctx, containerID, "conform/rename-me.txt", []byte("content"))
	is.NoError(err)

	name := "renamed.txt"
	updated, err := gw.UpdateItem(ctx, containerID, item.ID, drivegate.ItemUpdate{Name: &name})
	is.NoError(err)
	is.NotEqual(item.ID, updated.ID)
	defer func() { _ = gw.DeleteItem(ctx, containerID, updated.ID) }()

	_, err = gw.ItemMetadata(ctx, containerID, item.ID)
	is.ErrorIs(err, drivegate.ErrNotFound, "the old name must be gone after a rename")

	got, err := gw.ItemContent(ctx, containerID, updated.ID, nil)
	is.NoError(err)
	is.Equal([]byte("content"), got)
}
