// Package mocks provides a deterministic in-memory drivegate.Gateway for
// tests. It holds seeded items per container and replays them with stable
// identifiers, etags, and timestamps, so protocol tests never depend on a
// live upstream or on fabricated data inside the protocol logic.
package mocks

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drivegate/drivegate"
)

// base timestamp for seeded items; each subsequent item is stamped one minute later
var seedEpoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type storedItem struct {
	item    drivegate.Item
	content []byte
}

type session struct {
	driveID  string
	path     string
	behavior drivegate.ConflictBehavior
	buf      []byte
	existed  bool
}

// Gateway is a deterministic fake upstream. The zero value is not usable;
// construct with NewGateway. Error fields, when set, are returned by the
// corresponding method before any state changes, mirroring an upstream
// failure.
type Gateway struct {
	mu       sync.Mutex
	items    map[string]*storedItem // keyed by item ID
	byPath   map[string]string      // "container/path" -> item ID
	sessions map[string]*session
	nextID   int
	nextSess int

	CreateSessionError error
	UploadChunkError   error
	MetadataError      error
	ContentError       error
	ListError          error
	PutError           error
	UpdateError        error
	DeleteError        error
}

// NewGateway initializes an empty fake gateway.
func NewGateway() *Gateway {
	return &Gateway{
		items:    make(map[string]*storedItem),
		byPath:   make(map[string]string),
		sessions: make(map[string]*session),
	}
}

// SeedFile stores content as a file item under containerID at the given path
// and returns the item. Identifiers, etags and timestamps are deterministic
// in seeding order.
func (g *Gateway) SeedFile(containerID, filePath, contentType string, content []byte) drivegate.Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.storeLocked(containerID, filePath, contentType, content)
}

// SeedFolder stores a folder item under containerID.
func (g *Gateway) SeedFolder(containerID, name string, childCount int32) drivegate.Item {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	it := drivegate.Item{
		ID:           fmt.Sprintf("item-%04d", g.nextID),
		Name:         name,
		ETag:         etagOf(nil, g.nextID),
		LastModified: seedEpoch.Add(time.Duration(g.nextID) * time.Minute),
		Folder:       &drivegate.FolderInfo{ChildCount: &childCount},
	}
	g.items[it.ID] = &storedItem{item: it}
	g.byPath[pathKey(containerID, name)] = it.ID
	return it
}

// Content returns the stored bytes for an item ID. Test helper.
func (g *Gateway) Content(itemID string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.items[itemID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), s.content...), true
}

// SessionCount returns the number of open fake upload sessions. Test helper.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// CreateUploadSession issues an opaque handle for a chunked upload.
func (g *Gateway) CreateUploadSession(_ context.Context, driveID, filePath string, behavior drivegate.ConflictBehavior) (string, error) {
	if g.CreateSessionError != nil {
		return "", g.CreateSessionError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	_, existed := g.byPath[pathKey(driveID, filePath)]
	if existed && behavior == drivegate.ConflictFail {
		return "", fmt.Errorf("%w: name already taken", drivegate.ErrUpstreamFailure)
	}

	g.nextSess++
	handle := fmt.Sprintf("https://upstream.invalid/sessions/%06d", g.nextSess)
	g.sessions[handle] = &session{
		driveID:  driveID,
		path:     filePath,
		behavior: behavior,
		existed:  existed,
	}
	return handle, nil
}

// UploadChunk appends the payload to the session buffer and finalizes the
// item when the range is final.
func (g *Gateway) UploadChunk(ctx context.Context, handle string, rng drivegate.ContentRange, payload []byte) (drivegate.ChunkResponse, error) {
	if g.UploadChunkError != nil {
		return drivegate.ChunkResponse{}, g.UploadChunkError
	}
	if err := ctx.Err(); err != nil {
		return drivegate.ChunkResponse{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, ok := g.sessions[handle]
	if !ok {
		return drivegate.ChunkResponse{}, fmt.Errorf("%w: unknown upload session", drivegate.ErrNotFound)
	}

	if int64(len(sess.buf)) != rng.Start {
		return drivegate.ChunkResponse{}, fmt.Errorf("%w: expected offset %d, got %d",
			drivegate.ErrUpstreamFailure, len(sess.buf), rng.Start)
	}
	sess.buf = append(sess.buf, payload...)

	if !rng.IsFinal() {
		return drivegate.ChunkResponse{}, nil
	}

	item := g.storeLocked(sess.driveID, sess.path, "application/octet-stream", sess.buf)
	delete(g.sessions, handle)
	return drivegate.ChunkResponse{Item: &item, Created: !sess.existed}, nil
}

// ItemMetadata returns the stored item.
func (g *Gateway) ItemMetadata(_ context.Context, _, itemID string) (*drivegate.Item, error) {
	if g.MetadataError != nil {
		return nil, g.MetadataError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", drivegate.ErrNotFound, itemID)
	}
	it := s.item
	return &it, nil
}

// ItemContent returns the stored bytes, sliced to rng when bounded.
func (g *Gateway) ItemContent(ctx context.Context, _, itemID string, rng *drivegate.ByteRange) ([]byte, error) {
	if g.ContentError != nil {
		return nil, g.ContentError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", drivegate.ErrNotFound, itemID)
	}
	if rng == nil {
		return append([]byte(nil), s.content...), nil
	}

	size := int64(len(s.content))
	if rng.Start >= size {
		return nil, fmt.Errorf("%w: start %d beyond size %d", drivegate.ErrNotSatisfiable, rng.Start, size)
	}
	end := size - 1
	if !rng.Open && rng.End < end {
		end = rng.End
	}
	return append([]byte(nil), s.content[rng.Start:end+1]...), nil
}

// ListItems returns all items seeded under containerID, in seeding order.
func (g *Gateway) ListItems(_ context.Context, containerID string) ([]drivegate.Item, error) {
	if g.ListError != nil {
		return nil, g.ListError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []drivegate.Item
	for key, id := range g.byPath {
		if strings.HasPrefix(key, containerID+"/") {
			out = append(out, g.items[id].item)
		}
	}
	// map iteration order is random; callers sort, but keep the fake stable anyway
	sortByID(out)
	return out, nil
}

// PutItem stores content as a complete item in one call.
func (g *Gateway) PutItem(_ context.Context, containerID, filePath string, content []byte) (*drivegate.Item, error) {
	if g.PutError != nil {
		return nil, g.PutError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	item := g.storeLocked(containerID, filePath, "application/octet-stream", content)
	return &item, nil
}

// UpdateItem applies a rename and/or move.
func (g *Gateway) UpdateItem(_ context.Context, _, itemID string, changes drivegate.ItemUpdate) (*drivegate.Item, error) {
	if g.UpdateError != nil {
		return nil, g.UpdateError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", drivegate.ErrNotFound, itemID)
	}
	if changes.Name != nil && *changes.Name != "" {
		s.item.Name = *changes.Name
	}
	s.item.ETag = etagOf(s.content, g.nextID+len(s.item.Name))
	it := s.item
	return &it, nil
}

// DeleteItem removes an item.
func (g *Gateway) DeleteItem(_ context.Context, _, itemID string) error {
	if g.DeleteError != nil {
		return g.DeleteError
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.items[itemID]; !ok {
		return fmt.Errorf("%w: %s", drivegate.ErrNotFound, itemID)
	}
	delete(g.items, itemID)
	for key, id := range g.byPath {
		if id == itemID {
			delete(g.byPath, key)
		}
	}
	return nil
}

func (g *Gateway) storeLocked(containerID, filePath, contentType string, content []byte) drivegate.Item {
	key := pathKey(containerID, filePath)
	size := int64(len(content))

	if id, ok := g.byPath[key]; ok {
		s := g.items[id]
		s.content = append([]byte(nil), content...)
		s.item.Size = &size
		s.item.ETag = etagOf(content, g.nextID)
		s.item.LastModified = seedEpoch.Add(time.Duration(g.nextID) * time.Minute)
		return s.item
	}

	g.nextID++
	ct := contentType
	it := drivegate.Item{
		ID:           fmt.Sprintf("item-%04d", g.nextID),
		Name:         path.Base(filePath),
		Size:         &size,
		ETag:         etagOf(content, g.nextID),
		LastModified: seedEpoch.Add(time.Duration(g.nextID) * time.Minute),
		ContentType:  &ct,
	}
	g.items[it.ID] = &storedItem{item: it, content: append([]byte(nil), content...)}
	g.byPath[key] = it.ID
	return it
}

func pathKey(containerID, filePath string) string {
	return containerID + "/" + strings.TrimPrefix(filePath, "/")
}

func etagOf(content []byte, n int) string {
	h := sha256.New()
	h.Write(content)
	fmt.Fprintf(h, "/%d", n)
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}

func sortByID(items []drivegate.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
