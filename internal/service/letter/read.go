package letter

import (
	"context"
	"iter"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Get returns a letter by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Letter, error) {
	l, err := s.letters.GetByID(ctx, id)
	if err != nil {
		return nil, wrapErr("get letter", err)
	}
	return l, nil
}

// List streams the letters matching filter in letter id order.
func (s *Service) List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
	if err := filter.Validate(); err != nil {
		return func(yield func(*domain.Letter, error) bool) { yield(nil, err) }
	}
	return func(yield func(*domain.Letter, error) bool) {
		for l, err := range s.letters.List(ctx, filter) {
			if err != nil {
				yield(nil, wrapErr("list letters", err))
				return
			}
			if !yield(l, nil) {
				return
			}
		}
	}
}

// Collect drains a letter sequence into a slice.
func Collect(seq iter.Seq2[*domain.Letter, error]) ([]*domain.Letter, error) {
	var out []*domain.Letter
	for l, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
