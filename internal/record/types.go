package record

import (
	"io"
	"time"
)

// Submission is one pending inspection outcome for exactly one target.
// It is created by the queue, replaced wholesale on re-enqueue for the same
// target, and deleted only after the remote end confirms acceptance.
type Submission struct {
	// TargetID identifies the inspected entity. Primary key of the queue
	// collection: at most one pending submission per target at any time.
	TargetID int64 `json:"targetId"`

	Status      Status `json:"status"`
	Observation string `json:"observacao"`

	// UserID is the acting inspector. Required, never zero.
	UserID int64 `json:"userId"`

	// Checklist is the ordered per-service applicability data. May be empty.
	// The entries are opaque to the sync core; they travel to the server as a
	// JSON-encoded array.
	Checklist []ChecklistEntry `json:"checklist"`

	// Photos is never empty for a persisted submission.
	Photos []PhotoBlob `json:"photos"`

	// CapturedAt is set once when the submission is built and never changes.
	CapturedAt time.Time `json:"capturedAt"`

	// PendingSync is always true while the record sits in the queue. It marks
	// the collection semantically; nothing gates on it.
	PendingSync bool `json:"pendingSync"`
}

// PhotoBlob is one photograph in storable form: raw bytes, never a live
// file handle, so it survives store transactions and process restarts.
type PhotoBlob struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// PhotoSource is an in-memory binary photo object as handed over by the
// collaborator (a camera capture, a file on disk). The codec turns it into a
// PhotoBlob by reading Reader to EOF.
type PhotoSource struct {
	Name     string
	MIMEType string
	Reader   io.Reader
}

// ChecklistEntry is one answered checklist item. Field names mirror the wire
// format of the status-update endpoint.
type ChecklistEntry struct {
	Service  string `json:"servico" yaml:"servico"`
	Kind     string `json:"tipo,omitempty" yaml:"tipo"`
	Modality string `json:"modalidade,omitempty" yaml:"modalidade"`
	Applies  *bool  `json:"aplicaSe,omitempty" yaml:"aplicaSe"`

	// Identification of the professional/company responsible, filled only
	// when the service applies.
	ART              string `json:"art,omitempty" yaml:"art"`
	CompanyName      string `json:"nomeEmpresa,omitempty" yaml:"nomeEmpresa"`
	ProfessionalName string `json:"nomeProfissional,omitempty" yaml:"nomeProfissional"`
	CNPJ             string `json:"cnpj,omitempty" yaml:"cnpj"`
	CPF              string `json:"cpf,omitempty" yaml:"cpf"`
	Phone            string `json:"telefone,omitempty" yaml:"telefone"`
	Email            string `json:"email,omitempty" yaml:"email"`
}

// Request is what the collaborator hands to the sync core, either for the
// immediate-submit path or for enqueueing. Photos are live binary objects;
// the core encodes them before anything is persisted.
type Request struct {
	TargetID    int64
	Status      Status
	Observation string
	UserID      int64
	Checklist   []ChecklistEntry
	Photos      []PhotoSource
}

// Validate checks the request invariants the core re-enforces regardless of
// what the collaborator already checked.
func (r Request) Validate() error {
	if r.TargetID <= 0 {
		return &ValidationError{Field: "targetId", Message: "must be a positive identifier"}
	}
	if r.UserID <= 0 {
		return &ValidationError{Field: "userId", Message: "acting user is required"}
	}
	if !r.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + string(r.Status)}
	}
	if len(r.Photos) == 0 {
		return &ValidationError{Field: "photos", Message: "at least one photo is required"}
	}
	return nil
}
