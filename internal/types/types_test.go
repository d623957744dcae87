package types

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Bool, "bool"},
		{I32, "i32"},
		{F32, "f32"},
		{String, "string"},
		{Id, "id"},
		{Resource, "resource"},
		{Entity, "entity"},
		{Invalid, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSize(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Bool, 1},
		{I32, 4},
		{F32, 4},
		{String, 8},
		{Id, 8},
		{Resource, 8},
		{Entity, 8},
		{Invalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindIsNumeric(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{I32, true},
		{F32, true},
		{Bool, false},
		{String, false},
		{Id, false},
		{Resource, false},
		{Entity, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.IsNumeric(); got != tt.want {
				t.Errorf("IsNumeric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{"bool", TBool, "bool"},
		{"i32", TI32, "i32"},
		{"f32", TF32, "f32"},
		{"string", TStr, "string"},
		{"untagged id", Type{Kind: Id}, "id"},
		{"tagged id", TId("Weapon"), "id<Weapon>"},
		{"tagged entity", Type{Kind: Entity, EntityType: "Enemy"}, "entity<Enemy>"},
		{"entity tag ignored on non-id/entity kind", Type{Kind: Bool, EntityType: "Weapon"}, "bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"bool equals bool", TBool, TBool, true},
		{"i32 equals i32", TI32, TI32, true},
		{"i32 not equal f32", TI32, TF32, false},
		{"string not equal bool", TStr, TBool, false},
		{"untagged id equals untagged id", Type{Kind: Id}, Type{Kind: Id}, true},
		{"same-tagged id equals", TId("Weapon"), TId("Weapon"), true},
		{"differently-tagged id still equal", TId("Weapon"), TId("Enemy"), true},
		{"untagged id equals tagged id", Type{Kind: Id}, TId("Weapon"), true},
		{"id not equal string", Type{Kind: Id}, TStr, false},
		{"entity kind does not get id's escape hatch", Type{Kind: Entity, EntityType: "Weapon"}, Type{Kind: Entity, EntityType: "Enemy"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() not symmetric: b.Equal(a) = %v, want %v", got, tt.want)
			}
		})
	}
}
