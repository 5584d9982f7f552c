package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectAnnotations(t *testing.T) {
	c := testContext(t, `package values

import (
	"fmt"

	_ "github.com/jhump/autovalue"
)

// Plain is not a value type.
type Plain interface {
	Name() string
}

type (
	// First is a value type.
	// @autovalue.AutoValue
	First interface {
		// Label is the label.
		// @autovalue.Nullable
		Label() fmt.Stringer
		// @autovalue.Nullable(false)
		Other() fmt.Stringer
	}

	// @autovalue.AutoValue{false}
	Second interface {
		Count() int
	}
)

// @autovalue.AutoValue{
//     CacheHashCode: true,
// }
type Third interface {
	Size() int
}
`)
	require.Len(t, c.annotated, 3)
	assert.Empty(t, c.failures)

	names := make([]string, len(c.annotated))
	for i, at := range c.annotated {
		names[i] = at.obj.Name()
		assert.NoError(t, at.err, at.obj.Name())
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)
	assert.True(t, c.annotated[0].config.CacheHashCode)
	assert.False(t, c.annotated[1].config.CacheHashCode)
	assert.True(t, c.annotated[2].config.CacheHashCode)

	var nullable []string
	for fn := range c.Nullable() {
		nullable = append(nullable, fn.Name())
	}
	assert.Equal(t, []string{"Label"}, nullable)

	var valueTypes []string
	for _, obj := range c.ValueTypes() {
		valueTypes = append(valueTypes, obj.Name())
	}
	assert.Equal(t, names, valueTypes)
}

func TestCollectAnnotations_DotImport(t *testing.T) {
	c := testContext(t, `package values

import . "github.com/jhump/autovalue"

// @AutoValue{CacheHashCode: false}
type Thing interface {
	// @Nullable
	Next() *int
}

var _ Nullable
`)
	require.Len(t, c.annotated, 1)
	require.NoError(t, c.annotated[0].err)
	assert.False(t, c.annotated[0].config.CacheHashCode)
	assert.Len(t, c.Nullable(), 1)
}

func TestCollectAnnotations_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		decl   string
		line   int
		detail string
	}{
		{
			name:   "syntax",
			decl:   "// @autovalue.AutoValue{CacheHashCode: }\ntype Thing interface{}",
			line:   5,
			detail: "syntax error",
		},
		{
			name:   "parens on struct",
			decl:   "// @autovalue.AutoValue(true)\ntype Thing interface{}",
			line:   5,
			detail: "must be in braces",
		},
		{
			name:   "nullable on type",
			decl:   "// @autovalue.AutoValue\n// @autovalue.Nullable\ntype Thing interface{}",
			line:   6,
			detail: "cannot be used on a type",
		},
		{
			name:   "auto value on method",
			decl:   "// @autovalue.AutoValue\ntype Thing interface {\n\t// @autovalue.AutoValue\n\tName() string\n}",
			line:   7,
			detail: "cannot be used on a method",
		},
		{
			name:   "nullable with struct",
			decl:   "// @autovalue.AutoValue\ntype Thing interface {\n\t// @autovalue.Nullable{true}\n\tName() *string\n}",
			line:   7,
			detail: "takes a bool value",
		},
		{
			name:   "too many values",
			decl:   "// @autovalue.AutoValue{true, false}\ntype Thing interface{}",
			line:   5,
			detail: "too many values",
		},
		{
			name:   "set twice",
			decl:   "// @autovalue.AutoValue{CacheHashCode: true, CacheHashCode: false}\ntype Thing interface{}",
			line:   5,
			detail: "set more than once",
		},
		{
			name:   "not a constant",
			decl:   "// @autovalue.AutoValue{CacheHashCode: missing}\ntype Thing interface{}",
			line:   5,
			detail: "is not a constant",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := testContext(t, `package values

import _ "github.com/jhump/autovalue"

`+tc.decl+`
`)
			var err error
			switch {
			case len(c.annotated) == 1:
				err = c.annotated[0].err
			case len(c.failures) == 1:
				err = c.failures[0].Err
			default:
				t.Fatalf("expecting one annotated type or failure; got %d and %d", len(c.annotated), len(c.failures))
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.detail)

			var withPos *ErrorWithPosition
			require.True(t, errors.As(err, &withPos))
			assert.Equal(t, tc.line, withPos.Pos().Line)
			assert.Equal(t, "/src/values/values.go", withPos.Pos().Filename)
		})
	}
}
