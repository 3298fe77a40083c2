package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/umcp/internal/domain"
)

func TestTypeTag_Schema(t *testing.T) {
	tests := []struct {
		name string
		in   domain.TypeTag
		want string // expected JSON
	}{
		{name: "null", in: domain.TypeNull, want: `{"type":"null"}`},
		{name: "string", in: domain.TypeString, want: `{"type":"string"}`},
		{name: "int", in: domain.TypeInt, want: `{"type":"integer"}`},
		{name: "float", in: domain.TypeFloat, want: `{"type":"number"}`},
		{name: "bool", in: domain.TypeBool, want: `{"type":"boolean"}`},
		{name: "untyped array", in: domain.TypeArray, want: `{"type":"array"}`},
		{name: "typed array", in: domain.TypeArrayOf(domain.TypeString), want: `{"type":"array","items":{"type":"string"}}`},
		{name: "nested array", in: domain.TypeArrayOf(domain.TypeArrayOf(domain.TypeInt)), want: `{"type":"array","items":{"type":"array","items":{"type":"integer"}}}`},
		{name: "object", in: domain.TypeObject, want: `{"type":"object"}`},
		// Optional unwraps to its element and drops nullability.
		{name: "optional string unwraps", in: domain.TypeOptionalOf(domain.TypeString), want: `{"type":"string"}`},
		{name: "optional float unwraps", in: domain.TypeOptionalOf(domain.TypeFloat), want: `{"type":"number"}`},
		// The translator is total: anything unknown degrades to string.
		{name: "unknown degrades to string", in: domain.TypeUnknown, want: `{"type":"string"}`},
		{name: "bare optional degrades to string", in: domain.TypeTag{Kind: domain.OptionalType}, want: `{"type":"string"}`},
		{name: "out-of-range kind degrades to string", in: domain.TypeTag{Kind: domain.TypeKind(99)}, want: `{"type":"string"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := tt.in.Schema()
			require.NotNil(t, schema, "translation must be total")
			data, err := json.Marshal(schema)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
