package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/download"
	"github.com/drivegate/drivegate/httprange"
	"github.com/drivegate/drivegate/listing"
	"github.com/drivegate/drivegate/upload"
	"github.com/drivegate/drivegate/utils"
)

// uploadSessionResponse is the session-creation body. Field names match what
// upstream-aware clients already expect.
type uploadSessionResponse struct {
	UploadURL          string `json:"uploadUrl"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

// updateItemRequest is the rename/move body.
type updateItemRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentReferenceId"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("id")
	q := r.URL.Query()

	params := listing.Parameters{
		OrderBy:  q.Get("orderBy"),
		OrderDir: q.Get("orderDir"),
	}
	// non-numeric values fall through as zero and pick up the defaults
	params.Top, _ = strconv.Atoi(q.Get("top"))
	params.Skip, _ = strconv.Atoi(q.Get("skip"))

	page, err := s.paginator.Page(r.Context(), containerID, params)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	if page.Items == nil {
		page.Items = []drivegate.Item{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSmallUpload(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("id")
	path := r.PathValue("path")

	if err := utils.ValidatePath(path); err != nil {
		writeValidationError(w, "invalid path")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.uploadLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large",
				"use an upload session for content above the small-upload limit")
			return
		}
		writeValidationError(w, "unreadable request body")
		return
	}
	if len(body) == 0 {
		writeValidationError(w, "request body cannot be empty")
		return
	}

	item, err := s.gateway.PutItem(r.Context(), containerID, path, body)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleCreateUploadSession(w http.ResponseWriter, r *http.Request) {
	driveID := r.PathValue("driveID")
	q := r.URL.Query()

	path := q.Get("path")
	if path == "" {
		writeValidationError(w, "path query parameter is required")
		return
	}
	behavior := drivegate.ParseConflictBehavior(q.Get("conflictBehavior"))

	session, err := s.coordinator.CreateSession(r.Context(), driveID, path, behavior)
	if err != nil {
		if errors.Is(err, drivegate.ErrInvalidPath) {
			writeValidationError(w, "invalid path")
			return
		}
		s.writeGatewayError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadSessionResponse{
		UploadURL:          session.Handle,
		ExpirationDateTime: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	handle := r.Header.Get("Upload-Session-Url")
	contentRange := r.Header.Get("Content-Range")

	if handle == "" {
		writeValidationError(w, "Upload-Session-Url header is required")
		return
	}
	if contentRange == "" {
		writeValidationError(w, "Content-Range header is required")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, upload.MaxChunkSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			chunkOutcomesTotal.WithLabelValues(upload.ChunkTooLarge.String()).Inc()
			writeProblem(w, http.StatusRequestEntityTooLarge, "Chunk Too Large",
				"chunk body exceeds the maximum chunk size")
			return
		}
		writeValidationError(w, "unreadable request body")
		return
	}

	res := s.coordinator.SubmitChunk(r.Context(), handle, contentRange, payload)
	chunkOutcomesTotal.WithLabelValues(res.Outcome.String()).Inc()

	status := statusForChunk(res)
	switch res.Outcome {
	case upload.ChunkCompleted:
		writeJSON(w, status, res.Item)
	case upload.ChunkAccepted:
		w.WriteHeader(status)
	case upload.ChunkRejected:
		writeProblem(w, status, "Invalid Chunk", res.Err.Error())
	case upload.ChunkTooLarge:
		writeProblem(w, status, "Chunk Too Large", res.Err.Error())
	case upload.ChunkCancelled:
		writeProblem(w, status, "Client Closed Request", "chunk upload cancelled")
	case upload.ChunkFailed:
		s.logger.Warn("chunk upload failed", zap.Error(res.Err))
		writeProblem(w, status, "Upload Failed", "upstream rejected the chunk")
	}
}

func (s *Server) handleDownloadContent(w http.ResponseWriter, r *http.Request) {
	driveID := r.PathValue("driveID")
	itemID := r.PathValue("itemID")

	if err := utils.ValidateItemID(itemID); err != nil {
		writeValidationError(w, "itemId is required")
		return
	}

	var rng *drivegate.ByteRange
	if header := r.Header.Get("Range"); header != "" {
		parsed, err := httprange.ParseRange(header)
		if err != nil {
			writeValidationError(w, "invalid Range header")
			return
		}
		rng = parsed
	}

	res, err := s.negotiator.Negotiate(r.Context(), driveID, itemID, rng, r.Header.Get("If-None-Match"))
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	downloadStatusTotal.WithLabelValues(res.Status.String()).Inc()

	w.Header().Set("ETag", `"`+res.ETag+`"`)
	w.Header().Set("Accept-Ranges", "bytes")

	switch res.Status {
	case download.StatusNotModified:
		w.WriteHeader(statusForDownload(res.Status))
	case download.StatusNotSatisfiable:
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(res.TotalSize, 10))
		writeProblem(w, statusForDownload(res.Status), "Range Not Satisfiable",
			"requested range starts beyond the item size")
	case download.StatusPartial:
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Range", res.ContentRange())
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
		w.WriteHeader(statusForDownload(res.Status))
		_, _ = w.Write(res.Content)
	case download.StatusFull:
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
		w.WriteHeader(statusForDownload(res.Status))
		_, _ = w.Write(res.Content)
	}
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	driveID := r.PathValue("driveID")
	itemID := r.PathValue("itemID")

	if err := utils.ValidateItemID(itemID); err != nil {
		writeValidationError(w, "itemId is required")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "malformed request body")
		return
	}
	if req.Name == "" && req.ParentID == "" {
		writeValidationError(w, "at least one of 'name' or 'parentReferenceId' must be provided")
		return
	}
	if req.Name != "" {
		if err := utils.ValidateFileName(req.Name); err != nil {
			writeValidationError(w, "invalid file name")
			return
		}
	}

	changes := drivegate.ItemUpdate{}
	if req.Name != "" {
		changes.Name = &req.Name
	}
	if req.ParentID != "" {
		changes.ParentID = &req.ParentID
	}

	item, err := s.gateway.UpdateItem(r.Context(), driveID, itemID, changes)
	if err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	driveID := r.PathValue("driveID")
	itemID := r.PathValue("itemID")

	if err := utils.ValidateItemID(itemID); err != nil {
		writeValidationError(w, "itemId is required")
		return
	}

	if err := s.gateway.DeleteItem(r.Context(), driveID, itemID); err != nil {
		s.writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeGatewayError translates a failed gateway call into the status class
// the client can act on: 404 for unresolvable items, 499 for its own
// cancellation, 502 for everything the upstream got wrong.
func (s *Server) writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, drivegate.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "item not found")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, StatusClientClosedRequest, "Client Closed Request", "request cancelled")
	default:
		s.logger.Warn("upstream call failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "try again later")
	}
}
