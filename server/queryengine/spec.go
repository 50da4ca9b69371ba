// Package queryengine translates high-level content requests into
// document store queries, serving repeated reads from the response cache.
package queryengine

import (
	"fmt"
	"strconv"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
)

// OperationKind identifies the kind of content request.
type OperationKind string

const (
	// OperationList lists posts matching the filters.
	OperationList OperationKind = "list"
	// OperationGetByID fetches a single post (with its comments).
	OperationGetByID OperationKind = "getById"
	// OperationSearchText runs a full-text search over the index.
	OperationSearchText OperationKind = "searchText"
	// OperationSearchBoolean runs a boolean filter query.
	OperationSearchBoolean OperationKind = "searchBoolean"
)

// Operator is a filter operator.
type Operator string

const (
	// OperatorEqual matches a field equal to the single value.
	OperatorEqual Operator = "eq"
	// OperatorIn matches a field equal to any of the values (logical OR
	// across clauses).
	OperatorIn Operator = "in"
	// OperatorContains matches content containing every value as a
	// case-insensitive substring.
	OperatorContains Operator = "contains"
)

// Filter fields understood by the translator.
const (
	FieldID      = "id"
	FieldUID     = "uid"
	FieldCreator = "creator"
	FieldTag     = "tag"
	FieldContent = "content"
)

// Filter is one clause of a boolean query.
type Filter struct {
	Field    string
	Operator Operator
	Values   []string
}

// Spec describes a single content request. It is built per request,
// consumed by Resolve, and never persisted.
type Spec struct {
	Operation OperationKind
	Filters   []Filter
	TextTerms []string

	// Pagination. Zero means no limit.
	Limit  int
	Offset int
}

// operatorsByField lists which operators each field supports.
var operatorsByField = map[string]map[Operator]bool{
	FieldID:      {OperatorEqual: true, OperatorIn: true},
	FieldUID:     {OperatorEqual: true},
	FieldCreator: {OperatorEqual: true, OperatorIn: true},
	FieldTag:     {OperatorEqual: true, OperatorIn: true},
	FieldContent: {OperatorContains: true},
}

// Validate checks the spec for malformed content. Failures carry the
// INVALID_QUERY code and are never retried.
func (s *Spec) Validate() error {
	switch s.Operation {
	case OperationList, OperationGetByID, OperationSearchText, OperationSearchBoolean:
	default:
		return qerrors.InvalidQuery(fmt.Sprintf("unknown operation kind: %q", s.Operation))
	}

	for _, f := range s.Filters {
		ops, ok := operatorsByField[f.Field]
		if !ok {
			return qerrors.InvalidQuery(fmt.Sprintf("unknown filter field: %q", f.Field))
		}
		if !ops[f.Operator] {
			return qerrors.InvalidQuery(fmt.Sprintf("operator %q not supported on field %q", f.Operator, f.Field))
		}
		if len(f.Values) == 0 {
			return qerrors.InvalidQuery(fmt.Sprintf("filter on field %q has no values", f.Field))
		}
		if f.Operator == OperatorEqual && len(f.Values) != 1 {
			return qerrors.InvalidQuery(fmt.Sprintf("equality filter on field %q requires exactly one value", f.Field))
		}
		if f.Field == FieldID || (f.Field == FieldCreator && f.Operator != OperatorContains) {
			for _, v := range f.Values {
				if _, err := strconv.ParseInt(v, 10, 32); err != nil {
					return qerrors.InvalidQuery(fmt.Sprintf("filter on field %q requires numeric values, got %q", f.Field, v))
				}
			}
		}
	}

	switch s.Operation {
	case OperationSearchText:
		if len(normalizeTerms(s.TextTerms)) == 0 {
			return qerrors.InvalidQuery("searchText requires at least one text term")
		}
	case OperationGetByID:
		if !s.hasFilterOn(FieldID) && !s.hasFilterOn(FieldUID) {
			return qerrors.InvalidQuery("getById requires an id or uid filter")
		}
	}

	if s.Limit < 0 || s.Offset < 0 {
		return qerrors.InvalidQuery("limit and offset must not be negative")
	}
	return nil
}

func (s *Spec) hasFilterOn(field string) bool {
	for _, f := range s.Filters {
		if f.Field == field {
			return true
		}
	}
	return false
}
