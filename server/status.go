package server

import (
	"github.com/drivegate/drivegate/download"
	"github.com/drivegate/drivegate/upload"
)

// StatusClientClosedRequest is the non-standard code for a request the client
// abandoned mid-flight.
const StatusClientClosedRequest = 499

// statusForChunk maps every chunk outcome to its HTTP status. The outcome set
// is closed; keep this switch total when adding outcomes.
func statusForChunk(res upload.ChunkResult) int {
	switch res.Outcome {
	case upload.ChunkAccepted:
		return 202
	case upload.ChunkCompleted:
		if res.Created {
			return 201
		}
		return 200
	case upload.ChunkRejected:
		return 400
	case upload.ChunkTooLarge:
		return 413
	case upload.ChunkCancelled:
		return StatusClientClosedRequest
	case upload.ChunkFailed:
		return 502
	default:
		return 500
	}
}

// statusForDownload maps every negotiated download status to its HTTP status.
func statusForDownload(status download.Status) int {
	switch status {
	case download.StatusFull:
		return 200
	case download.StatusPartial:
		return 206
	case download.StatusNotModified:
		return 304
	case download.StatusNotSatisfiable:
		return 416
	default:
		return 500
	}
}
