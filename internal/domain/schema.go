package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TypeKind enumerates the semantic parameter types a handler can declare.
type TypeKind int

const (
	UnknownType TypeKind = iota
	NullType
	StringType
	IntType
	FloatType
	BoolType
	ArrayType
	ObjectType
	OptionalType
)

// TypeTag is the declared type of a handler parameter. Array tags may carry
// an element type; Optional tags always wrap exactly one element type.
type TypeTag struct {
	Kind TypeKind
	Elem *TypeTag
}

// Predeclared tags for the common scalar and untyped container cases.
var (
	TypeUnknown = TypeTag{Kind: UnknownType}
	TypeNull    = TypeTag{Kind: NullType}
	TypeString  = TypeTag{Kind: StringType}
	TypeInt     = TypeTag{Kind: IntType}
	TypeFloat   = TypeTag{Kind: FloatType}
	TypeBool    = TypeTag{Kind: BoolType}
	TypeArray   = TypeTag{Kind: ArrayType}
	TypeObject  = TypeTag{Kind: ObjectType}
)

// TypeArrayOf declares an ordered sequence with a known element type.
func TypeArrayOf(elem TypeTag) TypeTag {
	return TypeTag{Kind: ArrayType, Elem: &elem}
}

// TypeOptionalOf declares a nullable union with a single non-null alternative.
func TypeOptionalOf(elem TypeTag) TypeTag {
	return TypeTag{Kind: OptionalType, Elem: &elem}
}

// JSONSchemaProps represents the properties of a JSON schema describing
// handler input. Properties preserve parameter declaration order, which is
// why an ordered map is used instead of a plain map (encoding/json would
// sort plain map keys alphabetically on output).
type JSONSchemaProps struct {
	Type       string                                           `json:"type"`
	Items      *JSONSchemaProps                                 `json:"items,omitempty"`
	Properties *orderedmap.OrderedMap[string, *JSONSchemaProps] `json:"properties,omitempty"`
	Required   []string                                         `json:"required,omitempty"`
}

// Schema translates the tag into a JSON-schema fragment. The translation is
// total: unknown tags fall back to "string" rather than failing. Optional
// tags unwrap to their element's translation; the emitted schema does not
// mark nullability.
func (t TypeTag) Schema() *JSONSchemaProps {
	switch t.Kind {
	case NullType:
		return &JSONSchemaProps{Type: "null"}
	case StringType:
		return &JSONSchemaProps{Type: "string"}
	case IntType:
		return &JSONSchemaProps{Type: "integer"}
	case FloatType:
		return &JSONSchemaProps{Type: "number"}
	case BoolType:
		return &JSONSchemaProps{Type: "boolean"}
	case ArrayType:
		schema := &JSONSchemaProps{Type: "array"}
		if t.Elem != nil {
			schema.Items = t.Elem.Schema()
		}
		return schema
	case ObjectType:
		return &JSONSchemaProps{Type: "object"}
	case OptionalType:
		if t.Elem != nil {
			return t.Elem.Schema()
		}
		return &JSONSchemaProps{Type: "string"}
	default:
		return &JSONSchemaProps{Type: "string"}
	}
}
