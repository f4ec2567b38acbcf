package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RequestID identifies a scholarship verification request.
type RequestID uuid.UUID

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

// ParseRequestID validates and returns a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, fmt.Errorf("invalid request id %q: %w", s, err)
	}
	return RequestID(u), nil
}

func (id RequestID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText renders the ID as its canonical UUID string.
func (id RequestID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID string form.
func (id *RequestID) UnmarshalText(data []byte) error {
	parsed, err := ParseRequestID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil returns true if the ID is the zero value.
func (id RequestID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// DocumentID identifies a single uploaded document.
type DocumentID uuid.UUID

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

// ParseDocumentID validates and returns a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document id %q: %w", s, err)
	}
	return DocumentID(u), nil
}

func (id DocumentID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText renders the ID as its canonical UUID string.
func (id DocumentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID string form.
func (id *DocumentID) UnmarshalText(data []byte) error {
	parsed, err := ParseDocumentID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil returns true if the ID is the zero value.
func (id DocumentID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// SubjectID identifies the student a request belongs to. Subject records come
// from an external user store, so the ID is treated as an opaque string.
type SubjectID string

func (id SubjectID) String() string {
	return string(id)
}

// IsNil returns true if the subject ID is empty.
func (id SubjectID) IsNil() bool {
	return id == ""
}
