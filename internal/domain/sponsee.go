package domain

import "time"

// Sponsee is a program participant who writes letters. The raw identifier is
// never stored; IdentifierHash is a keyed digest of its normalized form.
type Sponsee struct {
	Index          int64
	Code           string
	IdentifierHash string
	CreatedAt      time.Time
}

// Actor is whoever triggers a change. Its ID is written to the audit log.
type Actor struct {
	ID    string
	Admin bool
}

func (a Actor) String() string { return a.ID }

// SystemActor is used by maintenance jobs.
var SystemActor = Actor{ID: "system"}

// OCRResult is the output of the external OCR engine for one envelope.
type OCRResult struct {
	Text                   string
	Confidence             float64
	ExtractedReturnAddress *string
	ArtifactPath           string
	ExtractedID            *string
}

// EnvelopeScan describes a scanned envelope as handed over by the scanning
// station. Paths are opaque references into file storage.
type EnvelopeScan struct {
	EnvelopeImagePath    string
	LetterPagesImagePath *string
	DatePickedUp         *time.Time
	DatePostmarked       *time.Time
	StepWork             *string
}
