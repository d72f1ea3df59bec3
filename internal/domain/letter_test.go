package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLetter() *Letter {
	scanned := time.Date(2025, time.September, 21, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, time.September, 21, 14, 0, 0, 0, time.UTC)
	return &Letter{
		ID:           12,
		SponseeIndex: 4,
		SponseeCode:  "KQD417",
		DateScanned:  &scanned,
		OCRText:      Ptr("Dear sponsor"),
		Status:       StatusScanned,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestLetter_Value(t *testing.T) {
	t.Parallel()

	l := sampleLetter()
	l.OCRConfidence = Ptr(0.875)

	assert.Equal(t, "12", l.Value(FieldLetterID))
	assert.Equal(t, "4", l.Value(FieldSponseeIndex))
	assert.Equal(t, "2025-09-21", l.Value(FieldDateScanned))
	assert.Equal(t, "", l.Value(FieldDatePickedUp))
	assert.Equal(t, "", l.Value(FieldStepWork))
	assert.Equal(t, "0.875", l.Value(FieldOCRConfidence))
	assert.Equal(t, "scanned", l.Value(FieldStatus))
	assert.Equal(t, "Dear sponsor", l.Value(FieldOCRText))
}

func TestLetter_Set(t *testing.T) {
	t.Parallel()

	l := sampleLetter()

	require.NoError(t, l.Set(FieldStepWork, Ptr("Step 6")))
	assert.Equal(t, "Step 6", *l.StepWork)

	require.NoError(t, l.Set(FieldDatePostmarked, Ptr("18Sep2025")))
	assert.Equal(t, "2025-09-18", l.Value(FieldDatePostmarked))

	require.NoError(t, l.Set(FieldStatus, Ptr("sent")))
	assert.Equal(t, StatusMailed, l.Status)

	require.NoError(t, l.Set(FieldOCRText, nil))
	assert.Nil(t, l.OCRText)

	require.NoError(t, l.Set(FieldStepWork, Ptr("")))
	assert.Nil(t, l.StepWork)
}

func TestLetter_Set_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		field  LetterField
		value  *string
		target error
	}{
		{"letter_id immutable", FieldLetterID, Ptr("99"), ErrImmutableField},
		{"created_at immutable", FieldCreatedAt, Ptr("2025-01-01"), ErrImmutableField},
		{"updated_at immutable", FieldUpdatedAt, Ptr("2025-01-01"), ErrImmutableField},
		{"unknown field", LetterField("color"), Ptr("red"), ErrValidation},
		{"bad date", FieldDateScanned, Ptr("soon"), ErrValidation},
		{"confidence out of range", FieldOCRConfidence, Ptr("1.5"), ErrValidation},
		{"confidence not a number", FieldOCRConfidence, Ptr("high"), ErrValidation},
		{"sponsee index cleared", FieldSponseeIndex, nil, ErrValidation},
		{"status cleared", FieldStatus, nil, ErrValidation},
		{"unknown status", FieldStatus, Ptr("lost"), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := sampleLetter()
			err := l.Set(tt.field, tt.value)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestLetter_Set_ImmutableFieldNamesField(t *testing.T) {
	t.Parallel()

	err := sampleLetter().Set(FieldLetterID, Ptr("1"))

	var ife *ImmutableFieldError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, FieldLetterID, ife.Field)
}

func TestLetter_CloneIsDeep(t *testing.T) {
	t.Parallel()

	l := sampleLetter()
	c := l.Clone()
	require.NoError(t, c.Set(FieldOCRText, Ptr("changed")))
	*c.DateScanned = c.DateScanned.AddDate(0, 0, 1)

	assert.Equal(t, "Dear sponsor", *l.OCRText)
	assert.Equal(t, "2025-09-21", l.Value(FieldDateScanned))
}

func TestLetter_Changed(t *testing.T) {
	t.Parallel()

	l := sampleLetter()
	next := l.Clone()
	require.NoError(t, next.Set(FieldStatus, Ptr("processing")))
	require.NoError(t, next.Set(FieldStepWork, Ptr("Step 4")))

	assert.Equal(t, []LetterField{FieldStepWork, FieldStatus}, l.Changed(next))
	assert.Empty(t, l.Changed(l.Clone()))
}

func TestLetter_Populated(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]LetterField{FieldSponseeIndex, FieldSponseeCode, FieldDateScanned, FieldOCRText, FieldStatus},
		sampleLetter().Populated(),
	)
}

func TestLetter_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleLetter().Validate())

	t.Run("scanned without date_scanned", func(t *testing.T) {
		l := sampleLetter()
		l.DateScanned = nil
		err := l.Validate()
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "date_scanned", ve.Errors[0].Field)
	})

	t.Run("responded requires both response dates", func(t *testing.T) {
		l := sampleLetter()
		l.Status = StatusResponded
		l.DateResponseStarted = Ptr(time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC))
		err := l.Validate()
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		require.Len(t, ve.Errors, 1)
		assert.Equal(t, "date_response_finished", ve.Errors[0].Field)
	})

	t.Run("updated before created", func(t *testing.T) {
		l := sampleLetter()
		l.UpdatedAt = l.CreatedAt.Add(-time.Second)
		assert.ErrorIs(t, l.Validate(), ErrValidation)
	})

	t.Run("archived carries no date requirements", func(t *testing.T) {
		l := sampleLetter()
		l.Status = StatusArchived
		l.DateScanned = nil
		assert.NoError(t, l.Validate())
	})

	t.Run("picked up without scan date", func(t *testing.T) {
		l := sampleLetter()
		l.Status = StatusPickedUp
		l.DateScanned = nil
		assert.NoError(t, l.Validate())
	})
}
