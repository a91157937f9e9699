// Package model defines the core memory data types.
package model

import "time"

// SpeakerMarker replaces the speaker reference on every record surfaced to a caller.
const SpeakerMarker = "hashed"

// Sentiment is the label/score pair produced by the language service.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Record is a persisted memory as it lives in the store.
// ContentPlain mirrors the decrypted content for substring search and is
// not confidential.
type Record struct {
	ID            string    `json:"id"`
	ContentCipher string    `json:"content_cipher"`
	ContentPlain  string    `json:"content_plain"`
	SpeakerRef    string    `json:"speaker_ref"`
	CreatedAt     time.Time `json:"created_at"`
	LastAccessed  time.Time `json:"last_accessed"`
	Tags          []string  `json:"tags"`
	Media         []string  `json:"media"`
	Sentiment     Sentiment `json:"sentiment"`
	ContextCipher string    `json:"context_cipher,omitempty"`
	UsageCount    int       `json:"usage_count"`
	Indexed       bool      `json:"indexed"`
}

// ArchivedRecord is a record moved to cold storage.
type ArchivedRecord struct {
	Record
	ArchivedAt time.Time `json:"archived_at"`
	Reason     string    `json:"reason"`
	BatchID    string    `json:"batch_id,omitempty"`
}

// Archive reasons.
const (
	ArchiveRetention = "retention"
	ArchiveManual    = "manual"
)

// Mapping links a vector index ordinal to a record.
type Mapping struct {
	Ordinal  int64  `json:"ordinal"`
	RecordID string `json:"record_id"`
}

// Memory is the decrypted view of a record returned to callers.
type Memory struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Context      string    `json:"context,omitempty"`
	Speaker      string    `json:"speaker"`
	Tags         []string  `json:"tags"`
	Media        []string  `json:"media"`
	Sentiment    Sentiment `json:"sentiment"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	UsageCount   int       `json:"usage_count"`
	Distance     *float32  `json:"distance,omitempty"`
	DecryptError string    `json:"decrypt_error,omitempty"`
}
