package azure

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/drivegate/drivegate"
)

// sessionHandle is the state an upload session needs to survive across
// instances. It rides inside the opaque handle returned to the caller, so a
// chunk may land on any instance and still resolve the target blob.
type sessionHandle struct {
	Container string                     `json:"c"`
	Path      string                     `json:"p"`
	Behavior  drivegate.ConflictBehavior `json:"b"`
	Existed   bool                       `json:"e"`
}

func encodeHandle(h sessionHandle) (string, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeHandle(handle string) (sessionHandle, error) {
	raw, err := base64.RawURLEncoding.DecodeString(handle)
	if err != nil {
		return sessionHandle{}, fmt.Errorf("%w: malformed session handle", drivegate.ErrNotFound)
	}
	var h sessionHandle
	if err := json.Unmarshal(raw, &h); err != nil {
		return sessionHandle{}, fmt.Errorf("%w: malformed session handle", drivegate.ErrNotFound)
	}
	if h.Container == "" || h.Path == "" {
		return sessionHandle{}, fmt.Errorf("%w: incomplete session handle", drivegate.ErrNotFound)
	}
	return h, nil
}
