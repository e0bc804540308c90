package durability

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/loctrack/internal/location"
)

// FormatSnapshot identifies the envelope layout.
// Version suffix enables future format migration.
const FormatSnapshot = "loctrack/snapshot/v1"

type envelope struct {
	Format   string          `json:"format"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// checksumWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func checksumWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Encode serializes a snapshot into the envelope format.
func Encode(snap location.Snapshot) ([]byte, error) {
	if snap.Samples == nil {
		snap.Samples = []location.Sample{}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	data, err := json.Marshal(envelope{
		Format:   FormatSnapshot,
		Checksum: checksumWithDomain(FormatSnapshot, payload),
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses an envelope and verifies its checksum.
func Decode(data []byte) (location.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return location.Snapshot{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Format != FormatSnapshot {
		return location.Snapshot{}, fmt.Errorf("unsupported snapshot format %q", env.Format)
	}
	if len(env.Payload) == 0 {
		return location.Snapshot{}, fmt.Errorf("snapshot payload missing")
	}
	if got := checksumWithDomain(FormatSnapshot, env.Payload); got != env.Checksum {
		return location.Snapshot{}, fmt.Errorf("checksum mismatch: stored %q, computed %q", env.Checksum, got)
	}

	var snap location.Snapshot
	if err := json.Unmarshal(env.Payload, &snap); err != nil {
		return location.Snapshot{}, fmt.Errorf("decode payload: %w", err)
	}
	if snap.Samples == nil {
		snap.Samples = []location.Sample{}
	}
	return snap, nil
}
