package models

// AuditKind names a family of audit records in the analytics ledger.
type AuditKind string

const (
	AuditFound     AuditKind = "FOUND"     // CIK universe collected for a day
	AuditSaving    AuditKind = "SAVING"    // idempotency ledger, one per chunk
	AuditOwners    AuditKind = "OWNERS"    // owner-report fetch outcome per chunk
	AuditIssuers   AuditKind = "ISSUERS"   // issuer-report fetch outcome per chunk
	AuditCompanies AuditKind = "COMPANIES" // company directory sync
)

// AuditKindFor maps a file type to the audit kind recording its fetches.
func AuditKindFor(f FileType) AuditKind {
	if f == FileTypeOwner {
		return AuditOwners
	}
	return AuditIssuers
}

// Period is the window GetAnalytics reads around a date.
type Period int

const (
	PeriodDay Period = iota
	PeriodMonth
)

// AuditMessage is the payload of an audit record. Which fields are set
// depends on the record kind.
type AuditMessage struct {
	Received  []CIK `json:"received,omitempty"`
	Processed []CIK `json:"processed,omitempty"`
	Codes     []int `json:"codes,omitempty"`
	Dropped   []CIK `json:"dropped,omitempty"`
}

// AuditRecord is a persisted ledger entry. TransactionTime is unique per
// record and serves as its key.
type AuditRecord struct {
	Kind            AuditKind    `json:"kind"            firestore:"Kind"`
	Description     string       `json:"description"     firestore:"Description"`
	Message         AuditMessage `json:"message"         firestore:"Message"`
	Date            string       `json:"date"            firestore:"Date"` // YYYY-MM-DD
	Count           int          `json:"count"           firestore:"Count"`
	RequestID       string       `json:"request_id"      firestore:"RequestId"`
	ChunkID         string       `json:"chunk_id"        firestore:"ChunkId"`
	TransactionTime string       `json:"transaction_time" firestore:"TransactionTime"`
	Processed       bool         `json:"processed"       firestore:"Processed"`
}

// NonOKCodes returns the recorded status codes other than 200.
func (r AuditRecord) NonOKCodes() []int {
	var out []int
	for _, c := range r.Message.Codes {
		if c != 200 {
			out = append(out, c)
		}
	}
	return out
}

// DispatchMessage is the queue payload for one chunk of work.
type DispatchMessage struct {
	Date      int    `json:"Date"` // YYYYMMDD
	CIK       []CIK  `json:"CIK"`
	RequestID string `json:"RequestId"`
	ChunkID   string `json:"ChunkId"`
}
