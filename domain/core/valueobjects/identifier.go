package valueobjects

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDPrefix tags every completion request id issued by this process
// so host-side tooling can recognize them in logs and transport traces.
const RequestIDPrefix = "ai-req-"

// RequestID is a value object identifying one completion request.
// IDs are unique across the process lifetime.
type RequestID struct {
	value string
}

// NewRequestID creates a fresh, globally unique request id
func NewRequestID() RequestID {
	return RequestID{value: RequestIDPrefix + uuid.New().String()}
}

// NewRequestIDFromString validates and wraps an existing request id
func NewRequestIDFromString(id string) (RequestID, error) {
	if id == "" {
		return RequestID{}, errors.New("request ID cannot be empty")
	}
	if !strings.HasPrefix(id, RequestIDPrefix) {
		return RequestID{}, fmt.Errorf("request ID must carry the %q prefix", RequestIDPrefix)
	}
	return RequestID{value: id}, nil
}

// String returns the string representation
func (id RequestID) String() string {
	return id.value
}

// Equals checks if two RequestIDs are equal
func (id RequestID) Equals(other RequestID) bool {
	return id.value == other.value
}

// IsZero checks if the RequestID is the zero value
func (id RequestID) IsZero() bool {
	return id.value == ""
}

// NewEdgeID generates an edge id for records synthesized by the manual
// splice path. Timestamp plus a random suffix keeps collisions negligible
// without claiming cryptographic uniqueness.
func NewEdgeID() string {
	var suffix [3]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// Degrade to a time-only suffix rather than failing edge creation.
		return fmt.Sprintf("edge-%d-%06x", time.Now().UnixMilli(), time.Now().UnixNano()&0xffffff)
	}
	return fmt.Sprintf("edge-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix[:]))
}
