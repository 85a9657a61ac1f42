package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/utils"
)

// Scheme is this gateway's name in the backend registry.
const Scheme = "azure"

// renameAttempts bounds the probe for a free name under ConflictRename.
const renameAttempts = 100

// Gateway implements drivegate.Gateway over Azure Blob Storage. A drive or
// container ID maps to a blob container; an item ID is the blob name within
// it.
//
// Chunked uploads use the block-blob staging API: each chunk stages one block
// whose ID encodes its byte offset, and the final chunk commits the full
// block list. No session state lives in this process, so chunks for one
// session may arrive through different instances.
type Gateway struct {
	client *azblob.Client
}

// NewGateway initializes a Gateway from the given options, or from the
// environment when opts is nil.
func NewGateway(opts *Options) (*Gateway, error) {
	if opts == nil {
		opts = NewOptions()
	}
	client, err := opts.NewClient()
	if err != nil {
		return nil, err
	}
	return &Gateway{client: client}, nil
}

func (g *Gateway) blockBlob(containerID, blobPath string) *blockblob.Client {
	return g.client.ServiceClient().
		NewContainerClient(containerID).
		NewBlockBlobClient(utils.RemoveLeadingSlash(blobPath))
}

func (g *Gateway) blob(containerID, blobPath string) *blob.Client {
	return g.client.ServiceClient().
		NewContainerClient(containerID).
		NewBlobClient(utils.RemoveLeadingSlash(blobPath))
}

// CreateUploadSession resolves the target blob and returns a self-contained
// handle. The existence probe happens here so completion can later distinguish
// a created item from a replaced one without a second round trip.
func (g *Gateway) CreateUploadSession(ctx context.Context, driveID, filePath string, behavior drivegate.ConflictBehavior) (string, error) {
	existed, err := g.exists(ctx, driveID, filePath)
	if err != nil {
		return "", utils.WrapSessionError(err)
	}

	if existed {
		switch behavior {
		case drivegate.ConflictFail:
			return "", utils.WrapSessionError(
				fmt.Errorf("%w: %q already exists", drivegate.ErrUpstreamFailure, filePath))
		case drivegate.ConflictRename:
			filePath, err = g.freeName(ctx, driveID, filePath)
			if err != nil {
				return "", utils.WrapSessionError(err)
			}
			existed = false
		}
	}

	handle, err := encodeHandle(sessionHandle{
		Container: driveID,
		Path:      filePath,
		Behavior:  behavior,
		Existed:   existed,
	})
	if err != nil {
		return "", utils.WrapSessionError(err)
	}
	return handle, nil
}

// UploadChunk stages the payload as one block. When rng is final it commits
// every staged block in offset order and returns the finished item.
func (g *Gateway) UploadChunk(ctx context.Context, handle string, rng drivegate.ContentRange, payload []byte) (drivegate.ChunkResponse, error) {
	sess, err := decodeHandle(handle)
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}

	bb := g.blockBlob(sess.Container, sess.Path)
	body := streaming.NopCloser(bytes.NewReader(payload))

	if _, err := bb.StageBlock(ctx, blockID(rng.Start), body, nil); err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(mapError(err))
	}

	if !rng.IsFinal() {
		return drivegate.ChunkResponse{}, nil
	}

	ids, err := g.stagedBlockIDs(ctx, bb)
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}
	if _, err := bb.CommitBlockList(ctx, ids, nil); err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(mapError(err))
	}

	item, err := g.itemFromProperties(ctx, sess.Container, sess.Path)
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}
	return drivegate.ChunkResponse{Item: item, Created: !sess.Existed}, nil
}

// ItemMetadata returns the blob's properties as an item.
func (g *Gateway) ItemMetadata(ctx context.Context, driveID, itemID string) (*drivegate.Item, error) {
	item, err := g.itemFromProperties(ctx, driveID, itemID)
	if err != nil {
		return nil, utils.WrapMetadataError(err)
	}
	return item, nil
}

// ItemContent downloads the blob, sliced to rng when bounded.
func (g *Gateway) ItemContent(ctx context.Context, driveID, itemID string, rng *drivegate.ByteRange) ([]byte, error) {
	opts := &blob.DownloadStreamOptions{}
	if rng != nil {
		opts.Range = blob.HTTPRange{Offset: rng.Start}
		if !rng.Open {
			opts.Range.Count = rng.End - rng.Start + 1
		}
	}

	resp, err := g.blob(driveID, itemID).DownloadStream(ctx, opts)
	if err != nil {
		return nil, utils.WrapDownloadError(mapError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.WrapDownloadError(err)
	}
	return content, nil
}

// ListItems walks the container's flat blob listing.
func (g *Gateway) ListItems(ctx context.Context, containerID string) ([]drivegate.Item, error) {
	pager := g.client.NewListBlobsFlatPager(containerID, nil)

	var items []drivegate.Item
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, utils.WrapListError(mapError(err))
		}
		for _, b := range page.Segment.BlobItems {
			items = append(items, itemFromBlob(b))
		}
	}
	return items, nil
}

// PutItem uploads content as a complete blob in one call.
func (g *Gateway) PutItem(ctx context.Context, containerID, filePath string, content []byte) (*drivegate.Item, error) {
	blobPath := utils.RemoveLeadingSlash(filePath)
	if _, err := g.client.UploadBuffer(ctx, containerID, blobPath, content, nil); err != nil {
		return nil, utils.WrapUploadError(mapError(err))
	}

	item, err := g.itemFromProperties(ctx, containerID, blobPath)
	if err != nil {
		return nil, utils.WrapUploadError(err)
	}
	return item, nil
}

// UpdateItem applies a rename and/or move. Blob storage has no rename, so the
// content is rewritten under the new name and the original removed.
func (g *Gateway) UpdateItem(ctx context.Context, driveID, itemID string, changes drivegate.ItemUpdate) (*drivegate.Item, error) {
	if changes.Empty() {
		return nil, utils.WrapUpdateError(
			fmt.Errorf("%w: no changes requested", drivegate.ErrInvalidPath))
	}

	newPath := renamedPath(itemID, changes)
	if newPath == itemID {
		item, err := g.itemFromProperties(ctx, driveID, itemID)
		if err != nil {
			return nil, utils.WrapUpdateError(err)
		}
		return item, nil
	}

	content, err := g.ItemContent(ctx, driveID, itemID, nil)
	if err != nil {
		return nil, utils.WrapUpdateError(err)
	}
	item, err := g.PutItem(ctx, driveID, newPath, content)
	if err != nil {
		return nil, utils.WrapUpdateError(err)
	}
	if _, err := g.blob(driveID, itemID).Delete(ctx, nil); err != nil {
		return nil, utils.WrapUpdateError(mapError(err))
	}
	return item, nil
}

// DeleteItem removes the blob.
func (g *Gateway) DeleteItem(ctx context.Context, driveID, itemID string) error {
	if _, err := g.blob(driveID, itemID).Delete(ctx, nil); err != nil {
		return utils.WrapDeleteError(mapError(err))
	}
	return nil
}

func (g *Gateway) exists(ctx context.Context, containerID, blobPath string) (bool, error) {
	_, err := g.blob(containerID, blobPath).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, mapError(err)
	}
	return true, nil
}

// freeName probes "name (1).ext", "name (2).ext", ... until an unused name
// turns up.
func (g *Gateway) freeName(ctx context.Context, containerID, blobPath string) (string, error) {
	ext := path.Ext(blobPath)
	stem := strings.TrimSuffix(blobPath, ext)

	for i := 1; i <= renameAttempts; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		existed, err := g.exists(ctx, containerID, candidate)
		if err != nil {
			return "", err
		}
		if !existed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free name for %q", drivegate.ErrUpstreamFailure, blobPath)
}

func (g *Gateway) stagedBlockIDs(ctx context.Context, bb *blockblob.Client) ([]string, error) {
	resp, err := bb.GetBlockList(ctx, blockblob.BlockListTypeUncommitted, nil)
	if err != nil {
		return nil, mapError(err)
	}

	type staged struct {
		id     string
		offset int64
	}
	blocks := make([]staged, 0, len(resp.UncommittedBlocks))
	for _, b := range resp.UncommittedBlocks {
		if b.Name == nil {
			continue
		}
		offset, err := blockOffset(*b.Name)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, staged{id: *b.Name, offset: offset})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].offset < blocks[j].offset })

	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.id
	}
	return ids, nil
}

func (g *Gateway) itemFromProperties(ctx context.Context, containerID, blobPath string) (*drivegate.Item, error) {
	blobPath = utils.RemoveLeadingSlash(blobPath)
	props, err := g.blob(containerID, blobPath).GetProperties(ctx, nil)
	if err != nil {
		return nil, mapError(err)
	}

	item := &drivegate.Item{
		ID:   blobPath,
		Name: path.Base(blobPath),
		Size: props.ContentLength,
	}
	if props.ETag != nil {
		item.ETag = strings.Trim(string(*props.ETag), `"`)
	}
	if props.LastModified != nil {
		item.LastModified = *props.LastModified
	}
	item.ContentType = props.ContentType
	return item, nil
}

func itemFromBlob(b *container.BlobItem) drivegate.Item {
	item := drivegate.Item{}
	if b.Name != nil {
		item.ID = *b.Name
		item.Name = path.Base(*b.Name)
	}
	if p := b.Properties; p != nil {
		item.Size = p.ContentLength
		if p.ETag != nil {
			item.ETag = strings.Trim(string(*p.ETag), `"`)
		}
		if p.LastModified != nil {
			item.LastModified = *p.LastModified
		}
		item.ContentType = p.ContentType
	}
	return item
}

// renamedPath resolves the blob name after applying a rename and/or move.
func renamedPath(itemID string, changes drivegate.ItemUpdate) string {
	dir := path.Dir(itemID)
	name := path.Base(itemID)

	if changes.Name != nil && *changes.Name != "" {
		name = *changes.Name
	}
	if changes.ParentID != nil && *changes.ParentID != "" {
		dir = utils.RemoveLeadingSlash(utils.RemoveTrailingSlash(*changes.ParentID))
	}
	if dir == "." || dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// blockID encodes a chunk's byte offset as a fixed-width base64 block ID, so
// staged blocks can be committed in offset order without any local state.
func blockID(offset int64) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%020d", offset)))
}

func blockOffset(id string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected block id %q", drivegate.ErrUpstreamFailure, id)
	}
	offset, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected block id %q", drivegate.ErrUpstreamFailure, id)
	}
	return offset, nil
}

// mapError translates SDK failures into the gateway error taxonomy.
func mapError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%w: %s", drivegate.ErrNotFound, bloberror.BlobNotFound)
	}
	if bloberror.HasCode(err, bloberror.InvalidRange) {
		return fmt.Errorf("%w: %s", drivegate.ErrNotSatisfiable, bloberror.InvalidRange)
	}
	return fmt.Errorf("%w: %v", drivegate.ErrUpstreamFailure, err)
}
