package domain

import (
	"fmt"
	"strings"
)

// StatusRequirements lists the date fields a letter must carry while in the
// given status. Requirements accumulate along the main path; archived letters
// carry none.
func StatusRequirements(s Status) []LetterField {
	switch s {
	case StatusScanned, StatusProcessing:
		return []LetterField{FieldDateScanned}
	case StatusResponseStarted:
		return []LetterField{FieldDateScanned, FieldDateResponseStarted}
	case StatusResponded, StatusMailed:
		return []LetterField{FieldDateScanned, FieldDateResponseStarted, FieldDateResponseFinished}
	}
	return nil
}

// transitionRule is one edge of the lifecycle graph. check inspects the letter
// as it would be after the update and returns false when the precondition
// does not hold.
type transitionRule struct {
	precondition string
	check        func(next *Letter) bool
}

type transitionKey struct {
	from, to Status
}

var transitions = map[transitionKey]transitionRule{
	{StatusPickedUp, StatusScanned}: {
		precondition: "date_scanned must be set",
		check:        func(next *Letter) bool { return next.DateScanned != nil },
	},
	{StatusScanned, StatusProcessing}: {
		precondition: "ocr_text or processor_notes must be non-empty",
		check: func(next *Letter) bool {
			return nonEmpty(next.OCRText) || nonEmpty(next.ProcessorNotes)
		},
	},
	{StatusProcessing, StatusResponseStarted}: {
		precondition: "date_response_started must be set",
		check:        func(next *Letter) bool { return next.DateResponseStarted != nil },
	},
	{StatusResponseStarted, StatusResponded}: {
		precondition: "date_response_finished must be set",
		check:        func(next *Letter) bool { return next.DateResponseFinished != nil },
	},
	{StatusResponded, StatusMailed}: {
		precondition: "none",
		check:        func(*Letter) bool { return true },
	},
}

// NextStatuses returns the statuses reachable from s by a regular transition.
// Archiving is not included.
func NextStatuses(s Status) []Status {
	var out []Status
	for _, to := range Statuses() {
		if _, ok := transitions[transitionKey{s, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}

// CheckTransition validates moving current to the status of next, where next
// is current with the proposed update applied. A nil error means the change
// is allowed (including when the status does not change). Archiving is
// rejected here; use CheckArchive.
func CheckTransition(current, next *Letter) error {
	from, to := current.Status, next.Status
	if from == to {
		return nil
	}

	reject := func(msg string) error {
		return &TransitionError{
			LetterID:     current.ID,
			From:         from,
			To:           to,
			Precondition: msg,
			Current:      current.Clone(),
		}
	}

	if from == StatusArchived {
		return reject("archived letters are terminal")
	}
	if to == StatusArchived {
		return reject("archiving requires an administrative action")
	}

	rule, ok := transitions[transitionKey{from, to}]
	if !ok {
		allowed := make([]string, 0, 1)
		for _, s := range NextStatuses(from) {
			allowed = append(allowed, s.String())
		}
		msg := fmt.Sprintf("no transition from %s to %s", from, to)
		if len(allowed) > 0 {
			msg += "; allowed: " + strings.Join(allowed, ", ")
		}
		return reject(msg)
	}
	if !rule.check(next) {
		return reject(rule.precondition)
	}
	return nil
}

// CheckArchive validates archiving current. Only admin actors may archive and
// an archived letter cannot be archived again.
func CheckArchive(current *Letter, actor Actor) error {
	if !actor.Admin {
		return fmt.Errorf("archive letter %d: %w", current.ID, ErrForbidden)
	}
	if current.Status == StatusArchived {
		return &TransitionError{
			LetterID:     current.ID,
			From:         current.Status,
			To:           StatusArchived,
			Precondition: "archived letters are terminal",
			Current:      current.Clone(),
		}
	}
	return nil
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
