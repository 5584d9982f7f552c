package processor

import (
	"errors"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Order(t *testing.T) {
	vt, err := extract(t, `package values

import _ "github.com/jhump/autovalue"

type Named interface {
	Name() string
}

type Aged interface {
	Age() uint8
	Named
}

// Person is a person.
// @autovalue.AutoValue
type Person interface {
	Aged
	ID() int
	Email() string
	Active() bool
	Name() string
}
`, "Person")
	require.NoError(t, err)
	assert.Equal(t, "Person", vt.Name)
	assert.Equal(t, "example.com/values.Person", vt.QualifiedName())
	assert.False(t, vt.IsGeneric())
	assert.True(t, vt.CacheHashCode)
	assert.Equal(t, []string{"name", "age", "id", "email", "active"}, propertyNames(vt))
	assert.Equal(t, 16, vt.Pos.Line)

	methods := make([]string, len(vt.Properties))
	for i, p := range vt.Properties {
		methods[i] = p.Method
	}
	assert.Equal(t, []string{"Name", "Age", "ID", "Email", "Active"}, methods)
}

func TestExtract_Names(t *testing.T) {
	testCases := []struct {
		name    string
		methods string
		want    []string
	}{
		{
			name:    "all prefixed",
			methods: "GetName() string\n\tIsActive() bool\n\tGetURLPath() string\n\tgetID() int",
			want:    []string{"name", "active", "urlPath", "id"},
		},
		{
			name:    "mixed",
			methods: "GetName() string\n\tAge() int",
			want:    []string{"getName", "age"},
		},
		{
			name:    "is on non-bool",
			methods: "GetName() string\n\tIsActive() string",
			want:    []string{"getName", "isActive"},
		},
		{
			name:    "prefix not a word",
			methods: "Getter() int\n\tGetName() string",
			want:    []string{"getter", "getName"},
		},
		{
			name:    "initialisms",
			methods: "ID() int\n\tHTTPServer() string\n\tX() float64\n\tURL() string",
			want:    []string{"id", "httpServer", "x", "url"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vt, err := extract(t, `package values

import _ "github.com/jhump/autovalue"

// @autovalue.AutoValue
type Thing interface {
	`+tc.methods+`
}
`, "Thing")
			require.NoError(t, err)
			assert.Equal(t, tc.want, propertyNames(vt))
		})
	}
}

func TestExtract_Reserved(t *testing.T) {
	vt, err := extract(t, `package values

import (
	"fmt"

	_ "github.com/jhump/autovalue"
)

// @autovalue.AutoValue
type Money interface {
	fmt.Stringer
	Cents() int64
	Hash() uint64
	Equal(other any) bool
	Currency() string
}
`, "Money")
	require.NoError(t, err)
	assert.Equal(t, []string{"cents", "currency"}, propertyNames(vt))
	require.NotNil(t, vt.EqualParam)
	_, ok := vt.EqualParam.Underlying().(*types.Interface)
	assert.True(t, ok)
}

func TestExtract_Malformed(t *testing.T) {
	testCases := []struct {
		method string
		name   string
		reason string
	}{
		{"Name(prefix string) string", "Name", "must not have parameters"},
		{"Reset()", "Reset", "must return a value"},
		{"Bounds() (int, int)", "Bounds", "exactly one value"},
		{"String() int", "String", "String() string"},
		{"Hash() int", "Hash", "Hash() uint64"},
		{"Equal(other Thing)", "Equal", "Equal(T) bool"},
		{"Equal(other int) bool", "Equal", "must be an interface type"},
		{"computeHash() uint64", "computeHash", "used by generated code"},
		{"cachedHash() int", "cachedHash", "used by generated code"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extract(t, `package values

import _ "github.com/jhump/autovalue"

// @autovalue.AutoValue
type Thing interface {
	Size() int
	`+tc.method+`
}
`, "Thing")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedAccessor))
			assert.False(t, errors.Is(err, ErrValidation))

			var malformed *MalformedAccessorError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, "Thing", malformed.Type)
			assert.Equal(t, tc.name, malformed.Method)
			assert.Contains(t, malformed.Reason, tc.reason)

			var withPos *ErrorWithPosition
			require.True(t, errors.As(err, &withPos))
			assert.Equal(t, "/src/values/values.go", withPos.Pos().Filename)
			assert.Equal(t, 8, withPos.Pos().Line)
		})
	}
}

func TestExtract_Kinds(t *testing.T) {
	vt, err := extract(t, `package values

import (
	"time"

	_ "github.com/jhump/autovalue"
)

type Celsius float64

// @autovalue.AutoValue
type Reading interface {
	Count() int
	Temp() Celsius
	Ratio() complex64
	Valid() bool
	Samples() []float64
	Window() [3]int
	Label() string
	At() time.Time
	Next() *Reading
	// @autovalue.Nullable
	Prev() *Reading
	Err() error
	// @autovalue.Nullable
	Cause() error
}
`, "Reading")
	require.NoError(t, err)
	want := map[string]Kind{
		"count":   KindNumeric,
		"temp":    KindNumeric,
		"ratio":   KindNumeric,
		"valid":   KindBoolean,
		"samples": KindArray,
		"window":  KindArray,
		"label":   KindReference,
		"at":      KindReference,
		"next":    KindReference,
		"prev":    KindNullableReference,
		"err":     KindReference,
		"cause":   KindNullableReference,
	}
	for name, kind := range want {
		assert.Equal(t, kind, property(t, vt, name).Kind, name)
	}
	assert.True(t, property(t, vt, "prev").Nullable)
	assert.False(t, property(t, vt, "next").Nullable)
}

func TestExtract_NotAnInterface(t *testing.T) {
	testCases := []struct {
		name string
		decl string
		kind ValidationKind
	}{
		{"struct", "type Bad struct{ X int }", NotAnInterface},
		{"basic", "type Bad int", NotAnInterface},
		{"alias", "type Bad = interface{ X() int }", NotAnInterface},
		{"constraint", "type Bad interface{ ~int | ~float64 }", ConstraintInterface},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extract(t, `package values

import _ "github.com/jhump/autovalue"

// @autovalue.AutoValue
`+tc.decl+`
`, "Bad")
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.kind, verr.Kind)
			assert.Equal(t, "Bad", verr.Type)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestExtract_Generic(t *testing.T) {
	vt, err := extract(t, `package values

import _ "github.com/jhump/autovalue"

// @autovalue.AutoValue
type Pair[K comparable, V any] interface {
	Key() K
	Value() V
}
`, "Pair")
	require.NoError(t, err)
	assert.True(t, vt.IsGeneric())
	assert.Equal(t, 2, vt.TypeParams.Len())
	assert.Equal(t, []string{"key", "value"}, propertyNames(vt))
	assert.Equal(t, KindReference, property(t, vt, "key").Kind)
}
