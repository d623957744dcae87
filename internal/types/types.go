// Package types implements grug's primitive type system: the four
// concrete runtime types, the opaque id/entity handle type, and the two
// abstract manifest-only kinds (resource, entity) that are represented as
// string at runtime but carry extra validation at their use sites.
package types

// Kind is one of the primitive or abstract type kinds spec.md §3.1 names.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	I32
	F32
	String
	Id

	// Abstract kinds: only ever appear in manifest signatures. The type
	// checker reclassifies a string literal argument into one of these
	// at the call site (spec.md §4.3); neither may be the declared type
	// of a local, global, parameter or return value.
	Resource
	Entity
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case String:
		return "string"
	case Id:
		return "id"
	case Resource:
		return "resource"
	case Entity:
		return "entity"
	default:
		return "invalid"
	}
}

// Size is the byte size a value of this kind occupies in a globals block
// or a stack slot. Resource/Entity never reach here directly (they are
// always lowered to String before layout), but Size still reports the
// String size for them so a caller that forgets to lower first fails
// loudly rather than silently computing 0.
func (k Kind) Size() int {
	switch k {
	case Bool:
		return 1
	case I32, F32:
		return 4
	case String, Id, Resource, Entity:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether k supports the arithmetic operators.
func (k Kind) IsNumeric() bool { return k == I32 || k == F32 }

// Type is a fully resolved type: a Kind, plus for Id the entity-type tag
// (e.g. "Weapon"); the empty tag means "any entity type", which is how
// `me` is typed when the checker doesn't yet know — in practice `me`
// always carries the compiling file's own entity type.
type Type struct {
	Kind       Kind
	EntityType string // only meaningful when Kind == Id or Kind == Entity
}

func (t Type) String() string {
	if t.EntityType != "" && (t.Kind == Id || t.Kind == Entity) {
		return t.Kind.String() + "<" + t.EntityType + ">"
	}
	return t.Kind.String()
}

// Equal reports whether t and other are assignment-compatible in the
// sense spec.md §4.3 describes: ordinary kinds must match exactly, except
// that either side being Id matches any Id regardless of EntityType (the
// "id-family" escape hatch spec.md calls out for assignment). Two Entity
// types match only when their EntityType tags are equal too.
func (t Type) Equal(other Type) bool {
	if t.Kind == Id && other.Kind == Id {
		return true
	}
	if t.Kind == Entity && other.Kind == Entity {
		return t.EntityType == other.EntityType
	}
	return t.Kind == other.Kind
}

var (
	TBool = Type{Kind: Bool}
	TI32  = Type{Kind: I32}
	TF32  = Type{Kind: F32}
	TStr  = Type{Kind: String}
)

func TId(entityType string) Type { return Type{Kind: Id, EntityType: entityType} }
