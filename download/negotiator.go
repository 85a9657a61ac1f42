// Package download decides how an item download is served: full content,
// partial content for a satisfiable byte range, not-modified for a matching
// etag, or range-not-satisfiable. The decision order matters: an etag match
// short-circuits before any bytes are fetched, and a range whose start lies
// beyond the item is rejected rather than silently clamped.
package download

import (
	"context"
	"fmt"
	"strings"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/httprange"
	"github.com/drivegate/drivegate/utils"
)

// Status classifies a negotiated download. The set is closed; status-code
// mapping switches over it exhaustively.
type Status int

const (
	// StatusFull - the whole item is served.
	StatusFull Status = iota

	// StatusPartial - a satisfiable sub-range is served with a Content-Range.
	StatusPartial

	// StatusNotModified - the client's etag matches; no bytes are transferred.
	StatusNotModified

	// StatusNotSatisfiable - the requested range starts at or beyond the item size.
	StatusNotSatisfiable
)

// String returns the status name, for logs and metrics labels.
func (s Status) String() string {
	switch s {
	case StatusFull:
		return "full"
	case StatusPartial:
		return "partial"
	case StatusNotModified:
		return "not_modified"
	case StatusNotSatisfiable:
		return "not_satisfiable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is a negotiated download. Content is empty for StatusNotModified and
// StatusNotSatisfiable. Start and End describe the served interval and are
// meaningful only for StatusPartial.
type Result struct {
	Status      Status
	Content     []byte
	ETag        string
	ContentType string
	Start       int64
	End         int64
	TotalSize   int64
}

// ContentRange renders the Content-Range header value for a partial result.
func (r Result) ContentRange() string {
	return httprange.FormatContentRange(r.Start, r.End, r.TotalSize)
}

// Negotiator serves download decisions against item metadata and content
// fetched through the gateway.
type Negotiator struct {
	gateway drivegate.Gateway
}

// NewNegotiator initializes a Negotiator over the given gateway.
func NewNegotiator(gateway drivegate.Gateway) *Negotiator {
	return &Negotiator{gateway: gateway}
}

// Negotiate resolves the item's current metadata and decides how to serve it.
//
// The etag comparison strips surrounding quotes and a weak-validator prefix
// from the client's value, and wins over any Range header: a matching etag
// yields StatusNotModified with zero content even when a range was requested.
// Range clamping favors returning the largest satisfiable suffix, but only
// once the requested start is known to be in bounds; a start at or beyond the
// item size yields StatusNotSatisfiable.
func (n *Negotiator) Negotiate(ctx context.Context, driveID, itemID string, requested *drivegate.ByteRange, ifNoneMatch string) (Result, error) {
	item, err := n.gateway.ItemMetadata(ctx, driveID, itemID)
	if err != nil {
		return Result{}, utils.WrapMetadataError(err)
	}

	size := item.SizeOrZero()
	contentType := "application/octet-stream"
	if item.ContentType != nil {
		contentType = *item.ContentType
	}

	if ifNoneMatch != "" && normalizeETag(ifNoneMatch) == normalizeETag(item.ETag) {
		return Result{
			Status:      StatusNotModified,
			ETag:        item.ETag,
			ContentType: contentType,
			TotalSize:   size,
		}, nil
	}

	if requested == nil {
		content, err := n.gateway.ItemContent(ctx, driveID, itemID, nil)
		if err != nil {
			return Result{}, utils.WrapDownloadError(err)
		}
		return Result{
			Status:      StatusFull,
			Content:     content,
			ETag:        item.ETag,
			ContentType: contentType,
			TotalSize:   size,
		}, nil
	}

	if requested.Start >= size {
		return Result{
			Status:      StatusNotSatisfiable,
			ETag:        item.ETag,
			ContentType: contentType,
			TotalSize:   size,
		}, nil
	}

	end := size - 1
	if !requested.Open && requested.End < end {
		end = requested.End
	}
	start := requested.Start
	if start > end {
		start = end
	}

	clamped := &drivegate.ByteRange{Start: start, End: end}
	content, err := n.gateway.ItemContent(ctx, driveID, itemID, clamped)
	if err != nil {
		return Result{}, utils.WrapDownloadError(err)
	}

	return Result{
		Status:      StatusPartial,
		Content:     content,
		ETag:        item.ETag,
		ContentType: contentType,
		Start:       start,
		End:         end,
		TotalSize:   size,
	}, nil
}

// normalizeETag strips quoting and a weak-validator prefix so stored and
// client-presented forms compare equal.
func normalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}
