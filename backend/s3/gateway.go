package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/upload"
	"github.com/drivegate/drivegate/utils"
)

// Scheme is this gateway's name in the backend registry.
const Scheme = "s3"

// renameAttempts bounds the probe for a free key under ConflictRename.
const renameAttempts = 100

// Gateway implements drivegate.Gateway over S3. A drive or container ID maps
// to a bucket; an item ID is the object key within it.
//
// Chunked uploads ride on the multipart-upload API. The session handle
// carries the bucket, key, and upload ID, and each chunk's part number
// derives from its byte offset, so no session state lives in this process.
type Gateway struct {
	client Client
}

// NewGateway initializes a Gateway from the given options, or from the
// environment when opts is nil.
func NewGateway(ctx context.Context, opts *Options) (*Gateway, error) {
	if opts == nil {
		opts = NewOptions()
	}
	client, err := getClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Gateway{client: client}, nil
}

// NewGatewayWithClient initializes a Gateway over an existing client.
func NewGatewayWithClient(client Client) *Gateway {
	return &Gateway{client: client}
}

// CreateUploadSession starts a multipart upload and returns a self-contained
// handle. The existence probe happens here so completion can later
// distinguish a created item from a replaced one.
func (g *Gateway) CreateUploadSession(ctx context.Context, driveID, filePath string, behavior drivegate.ConflictBehavior) (string, error) {
	key := utils.RemoveLeadingSlash(filePath)

	existed, err := g.exists(ctx, driveID, key)
	if err != nil {
		return "", utils.WrapSessionError(err)
	}

	if existed {
		switch behavior {
		case drivegate.ConflictFail:
			return "", utils.WrapSessionError(
				fmt.Errorf("%w: %q already exists", drivegate.ErrUpstreamFailure, filePath))
		case drivegate.ConflictRename:
			key, err = g.freeKey(ctx, driveID, key)
			if err != nil {
				return "", utils.WrapSessionError(err)
			}
			existed = false
		}
	}

	created, err := g.client.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(driveID),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", utils.WrapSessionError(mapError(err))
	}

	handle, err := encodeHandle(sessionHandle{
		Bucket:   driveID,
		Key:      key,
		UploadID: aws.ToString(created.UploadId),
		Existed:  existed,
	})
	if err != nil {
		return "", utils.WrapSessionError(err)
	}
	return handle, nil
}

// UploadChunk uploads the payload as one part. When rng is final it completes
// the multipart upload and returns the finished item.
func (g *Gateway) UploadChunk(ctx context.Context, handle string, rng drivegate.ContentRange, payload []byte) (drivegate.ChunkResponse, error) {
	sess, err := decodeHandle(handle)
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}

	_, err = g.client.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:        aws.String(sess.Bucket),
		Key:           aws.String(sess.Key),
		UploadId:      aws.String(sess.UploadID),
		PartNumber:    aws.Int32(partNumber(rng.Start)),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(mapError(err))
	}

	if !rng.IsFinal() {
		return drivegate.ChunkResponse{}, nil
	}

	parts, err := g.uploadedParts(ctx, sess)
	if err != nil {
		g.abortUpload(ctx, sess, err)
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}
	_, err = g.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(sess.Bucket),
		Key:             aws.String(sess.Key),
		UploadId:        aws.String(sess.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		g.abortUpload(ctx, sess, mapError(err))
		return drivegate.ChunkResponse{}, utils.WrapChunkError(mapError(err))
	}

	item, err := g.itemFromHead(ctx, sess.Bucket, sess.Key)
	if err != nil {
		return drivegate.ChunkResponse{}, utils.WrapChunkError(err)
	}
	return drivegate.ChunkResponse{Item: item, Created: !sess.Existed}, nil
}

// ItemMetadata returns the object's head data as an item.
func (g *Gateway) ItemMetadata(ctx context.Context, driveID, itemID string) (*drivegate.Item, error) {
	item, err := g.itemFromHead(ctx, driveID, itemID)
	if err != nil {
		return nil, utils.WrapMetadataError(err)
	}
	return item, nil
}

// ItemContent downloads the object, sliced to rng when bounded.
func (g *Gateway) ItemContent(ctx context.Context, driveID, itemID string, rng *drivegate.ByteRange) ([]byte, error) {
	in := &awss3.GetObjectInput{
		Bucket: aws.String(driveID),
		Key:    aws.String(utils.RemoveLeadingSlash(itemID)),
	}
	if rng != nil {
		in.Range = aws.String(rangeHeader(rng))
	}

	out, err := g.client.GetObject(ctx, in)
	if err != nil {
		return nil, utils.WrapDownloadError(mapError(err))
	}
	defer func() { _ = out.Body.Close() }()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, utils.WrapDownloadError(err)
	}
	return content, nil
}

// ListItems walks the bucket's object listing.
func (g *Gateway) ListItems(ctx context.Context, containerID string) ([]drivegate.Item, error) {
	pager := awss3.NewListObjectsV2Paginator(g.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(containerID),
	})

	var items []drivegate.Item
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, utils.WrapListError(mapError(err))
		}
		for _, obj := range page.Contents {
			items = append(items, itemFromObject(obj))
		}
	}
	return items, nil
}

// PutItem uploads content as a complete object in one call.
func (g *Gateway) PutItem(ctx context.Context, containerID, filePath string, content []byte) (*drivegate.Item, error) {
	key := utils.RemoveLeadingSlash(filePath)

	_, err := g.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(containerID),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, utils.WrapUploadError(mapError(err))
	}

	item, err := g.itemFromHead(ctx, containerID, key)
	if err != nil {
		return nil, utils.WrapUploadError(err)
	}
	return item, nil
}

// UpdateItem applies a rename and/or move via server-side copy plus delete.
func (g *Gateway) UpdateItem(ctx context.Context, driveID, itemID string, changes drivegate.ItemUpdate) (*drivegate.Item, error) {
	if changes.Empty() {
		return nil, utils.WrapUpdateError(
			fmt.Errorf("%w: no changes requested", drivegate.ErrInvalidPath))
	}

	key := utils.RemoveLeadingSlash(itemID)
	newKey := renamedKey(key, changes)
	if newKey == key {
		item, err := g.itemFromHead(ctx, driveID, key)
		if err != nil {
			return nil, utils.WrapUpdateError(err)
		}
		return item, nil
	}

	_, err := g.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(driveID),
		Key:        aws.String(newKey),
		CopySource: aws.String(url.PathEscape(driveID + "/" + key)),
	})
	if err != nil {
		return nil, utils.WrapUpdateError(mapError(err))
	}

	if _, err := g.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(driveID),
		Key:    aws.String(key),
	}); err != nil {
		return nil, utils.WrapUpdateError(mapError(err))
	}

	item, err := g.itemFromHead(ctx, driveID, newKey)
	if err != nil {
		return nil, utils.WrapUpdateError(err)
	}
	return item, nil
}

// DeleteItem removes the object. S3 deletes are idempotent, so a head probe
// runs first to surface ErrNotFound the way the other gateways do.
func (g *Gateway) DeleteItem(ctx context.Context, driveID, itemID string) error {
	key := utils.RemoveLeadingSlash(itemID)

	if _, err := g.itemFromHead(ctx, driveID, key); err != nil {
		return utils.WrapDeleteError(err)
	}
	if _, err := g.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(driveID),
		Key:    aws.String(key),
	}); err != nil {
		return utils.WrapDeleteError(mapError(err))
	}
	return nil
}

func (g *Gateway) exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if errors.Is(mapError(err), drivegate.ErrNotFound) {
			return false, nil
		}
		return false, mapError(err)
	}
	return true, nil
}

// freeKey probes "name (1).ext", "name (2).ext", ... until an unused key
// turns up.
func (g *Gateway) freeKey(ctx context.Context, bucket, key string) (string, error) {
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)

	for i := 1; i <= renameAttempts; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		existed, err := g.exists(ctx, bucket, candidate)
		if err != nil {
			return "", err
		}
		if !existed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free key for %q", drivegate.ErrUpstreamFailure, key)
}

// abortUpload abandons the multipart upload once its commit has failed, so
// staged parts stop accruing storage. Best effort, and never on cancellation:
// a client whose context expired may still retry the final chunk.
func (g *Gateway) abortUpload(ctx context.Context, sess sessionHandle, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return
	}
	_, _ = g.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(sess.Bucket),
		Key:      aws.String(sess.Key),
		UploadId: aws.String(sess.UploadID),
	})
}

// uploadedParts collects every uploaded part of the session in part-number
// order, following the truncation marker until the listing is complete.
func (g *Gateway) uploadedParts(ctx context.Context, sess sessionHandle) ([]types.CompletedPart, error) {
	var parts []types.CompletedPart
	var marker *string

	for {
		out, err := g.client.ListParts(ctx, &awss3.ListPartsInput{
			Bucket:           aws.String(sess.Bucket),
			Key:              aws.String(sess.Key),
			UploadId:         aws.String(sess.UploadID),
			PartNumberMarker: marker,
		})
		if err != nil {
			return nil, mapError(err)
		}
		for _, p := range out.Parts {
			parts = append(parts, types.CompletedPart{
				ETag:       p.ETag,
				PartNumber: p.PartNumber,
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		marker = out.NextPartNumberMarker
	}

	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})
	return parts, nil
}

func (g *Gateway) itemFromHead(ctx context.Context, bucket, key string) (*drivegate.Item, error) {
	key = utils.RemoveLeadingSlash(key)
	out, err := g.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err)
	}

	item := &drivegate.Item{
		ID:          key,
		Name:        path.Base(key),
		Size:        out.ContentLength,
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
		ContentType: out.ContentType,
	}
	if out.LastModified != nil {
		item.LastModified = *out.LastModified
	}
	return item, nil
}

func itemFromObject(obj types.Object) drivegate.Item {
	item := drivegate.Item{
		Size: obj.Size,
		ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
	}
	if obj.Key != nil {
		item.ID = *obj.Key
		item.Name = path.Base(*obj.Key)
	}
	if obj.LastModified != nil {
		item.LastModified = *obj.LastModified
	}
	return item
}

// renamedKey resolves the object key after applying a rename and/or move.
func renamedKey(key string, changes drivegate.ItemUpdate) string {
	dir := path.Dir(key)
	name := path.Base(key)

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

// partNumber derives a strictly increasing S3 part number from the chunk's
// byte offset. Offsets of successive chunks differ by at least the minimum
// chunk size, so numbers never collide; gaps are fine, S3 only requires
// ascending order.
func partNumber(offset int64) int32 {
	return int32(offset/upload.MinChunkSize) + 1
}

// rangeHeader renders the byte range as an HTTP Range header value.
func rangeHeader(rng *drivegate.ByteRange) string {
	if rng.Open {
		return fmt.Sprintf("bytes=%d-", rng.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End)
}

// mapError translates SDK failures into the gateway error taxonomy.
func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "NoSuchUpload":
			return fmt.Errorf("%w: %s", drivegate.ErrNotFound, apiErr.ErrorCode())
		case "InvalidRange":
			return fmt.Errorf("%w: %s", drivegate.ErrNotSatisfiable, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("%w: %v", drivegate.ErrUpstreamFailure, err)
}
