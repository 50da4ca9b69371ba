package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey_Deterministic(t *testing.T) {
	spec := &Spec{
		Operation: OperationList,
		Filters: []Filter{
			{Field: FieldTag, Operator: OperatorEqual, Values: []string{"go"}},
		},
	}
	assert.Equal(t, BuildKey(spec), BuildKey(spec))
}

func TestBuildKey_FilterOrderIndependent(t *testing.T) {
	a := &Spec{
		Operation: OperationSearchBoolean,
		Filters: []Filter{
			{Field: FieldCreator, Operator: OperatorEqual, Values: []string{"7"}},
			{Field: FieldTag, Operator: OperatorEqual, Values: []string{"go"}},
		},
	}
	b := &Spec{
		Operation: OperationSearchBoolean,
		Filters: []Filter{
			{Field: FieldTag, Operator: OperatorEqual, Values: []string{"go"}},
			{Field: FieldCreator, Operator: OperatorEqual, Values: []string{"7"}},
		},
	}
	assert.Equal(t, BuildKey(a), BuildKey(b))
}

func TestBuildKey_InValueOrderIndependent(t *testing.T) {
	a := &Spec{
		Operation: OperationList,
		Filters: []Filter{
			{Field: FieldTag, Operator: OperatorIn, Values: []string{"go", "sqlite", "cache"}},
		},
	}
	b := &Spec{
		Operation: OperationList,
		Filters: []Filter{
			{Field: FieldTag, Operator: OperatorIn, Values: []string{"cache", "go", "sqlite"}},
		},
	}
	assert.Equal(t, BuildKey(a), BuildKey(b))
}

func TestBuildKey_TextTermNormalization(t *testing.T) {
	a := &Spec{Operation: OperationSearchText, TextTerms: []string{"Hello", "  WORLD  "}}
	b := &Spec{Operation: OperationSearchText, TextTerms: []string{"world", "hello"}}
	assert.Equal(t, BuildKey(a), BuildKey(b))
}

func TestBuildKey_Distinguishes(t *testing.T) {
	base := &Spec{Operation: OperationList}

	t.Run("Operation", func(t *testing.T) {
		other := &Spec{Operation: OperationSearchBoolean}
		assert.NotEqual(t, BuildKey(base), BuildKey(other))
	})

	t.Run("Filters", func(t *testing.T) {
		other := &Spec{
			Operation: OperationList,
			Filters:   []Filter{{Field: FieldTag, Operator: OperatorEqual, Values: []string{"go"}}},
		}
		assert.NotEqual(t, BuildKey(base), BuildKey(other))
	})

	t.Run("Pagination", func(t *testing.T) {
		other := &Spec{Operation: OperationList, Limit: 10}
		assert.NotEqual(t, BuildKey(base), BuildKey(other))
	})

	t.Run("Terms", func(t *testing.T) {
		a := &Spec{Operation: OperationSearchText, TextTerms: []string{"alpha"}}
		b := &Spec{Operation: OperationSearchText, TextTerms: []string{"beta"}}
		assert.NotEqual(t, BuildKey(a), BuildKey(b))
	})
}
