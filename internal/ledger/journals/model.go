package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal entry lifecycle values. Drafts are
// freely editable; a posted entry is immutable except for reversal.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// JournalEntry captures a balanced set of debit/credit lines recording
// one accounting event.
type JournalEntry struct {
	ID          uuid.UUID
	ClientID    int64
	Date        time.Time
	Reference   string
	Description string
	Status      EntryStatus
	PostedAt    *time.Time
	PostedBy    *int64
	ReversalOf  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine stores a pure debit or pure credit amount for a GL code.
type JournalLine struct {
	ID          int64
	EntryID     uuid.UUID
	GLCode      string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}
