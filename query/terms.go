package query

import (
	"errors"
	"fmt"
)

var ErrInvalidTerms = errors.New("invalid terms")

// InputTypeError is returned when a term argument is neither a single string
// nor a sequence of strings.
type InputTypeError struct {
	Value any
}

func (e *InputTypeError) Error() string {
	return fmt.Sprintf("query should be a string or a list of strings, got %T", e.Value)
}

func (e *InputTypeError) Is(target error) bool {
	return target == ErrInvalidTerms
}

// Terms is either a SingleTerm or a TermList.
type Terms interface {
	values() []string
}

type SingleTerm string

func (t SingleTerm) values() []string {
	return []string{string(t)}
}

type TermList []string

func (t TermList) values() []string {
	values := make([]string, len(t))
	copy(values, t)
	return values
}

// ParseTerms resolves a decoded JSON value into Terms.
func ParseTerms(value any) (Terms, error) {
	switch v := value.(type) {
	case string:
		return SingleTerm(v), nil
	case []string:
		return TermList(v), nil
	case []any:
		terms := make(TermList, 0, len(v))
		for _, item := range v {
			term, ok := item.(string)
			if !ok {
				return nil, &InputTypeError{Value: value}
			}
			terms = append(terms, term)
		}
		return terms, nil
	default:
		return nil, &InputTypeError{Value: value}
	}
}

func resolveTerms(terms Terms) ([]string, error) {
	if terms == nil {
		return nil, &InputTypeError{Value: terms}
	}
	return terms.values(), nil
}
