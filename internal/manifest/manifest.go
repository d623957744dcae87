package manifest

import (
	"fmt"
	"os"
	"sort"

	"github.com/grugscript/grug/internal/types"
)

// Param is one parameter of a game function or an on_ hook, as declared
// in the manifest.
type Param struct {
	Name string
	Type types.Type
}

// GameFunction is a function the game engine exposes to mods, callable
// from helper functions and on_ hooks (spec.md §6.4).
type GameFunction struct {
	Name       string
	Params     []Param
	ReturnType *types.Type // nil for a void game function
}

// OnHookDecl is one on_ hook an entity type may define, with the
// parameter list mods must match exactly.
type OnHookDecl struct {
	Name   string
	Params []Param
}

// Entity is one entity type the manifest declares, naming the on_ hooks
// a mod file for that type may implement.
type Entity struct {
	Name  string
	Hooks []OnHookDecl
}

// Manifest is the game's mod API surface: the entity types a mod may
// define, and the game functions available to call. It is loaded once
// at startup and is immutable afterward.
type Manifest struct {
	Entities      map[string]*Entity
	GameFunctions map[string]*GameFunction
}

// Load reads and validates the manifest JSON file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	root, err := ParseJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	if root.Kind != JSONObject {
		return nil, fmt.Errorf("manifest: %s: root must be a JSON object", path)
	}

	m := &Manifest{
		Entities:      map[string]*Entity{},
		GameFunctions: map[string]*GameFunction{},
	}

	if entitiesVal, ok := root.Get("entities"); ok {
		if entitiesVal.Kind != JSONObject {
			return nil, fmt.Errorf("manifest: %s: \"entities\" must be an object", path)
		}
		for _, name := range entitiesVal.Keys {
			ev := entitiesVal.Fields[name]
			ent, err := parseEntity(name, ev)
			if err != nil {
				return nil, fmt.Errorf("manifest: %s: %w", path, err)
			}
			m.Entities[name] = ent
		}
	}

	if fnsVal, ok := root.Get("game_functions"); ok {
		if fnsVal.Kind != JSONObject {
			return nil, fmt.Errorf("manifest: %s: \"game_functions\" must be an object", path)
		}
		for _, name := range fnsVal.Keys {
			fv := fnsVal.Fields[name]
			fn, err := parseGameFunction(name, fv)
			if err != nil {
				return nil, fmt.Errorf("manifest: %s: %w", path, err)
			}
			m.GameFunctions[name] = fn
		}
	}

	return m, nil
}

func parseEntity(name string, v *JSONValue) (*Entity, error) {
	if v.Kind != JSONObject {
		return nil, fmt.Errorf("entity %q: must be an object", name)
	}
	ent := &Entity{Name: name}
	hooksVal, ok := v.Get("on_functions")
	if !ok {
		return ent, nil
	}
	if hooksVal.Kind != JSONObject {
		return nil, fmt.Errorf("entity %q: \"on_functions\" must be an object", name)
	}
	for _, hookName := range hooksVal.Keys {
		hv := hooksVal.Fields[hookName]
		params, err := parseParams(hv)
		if err != nil {
			return nil, fmt.Errorf("entity %q hook %q: %w", name, hookName, err)
		}
		ent.Hooks = append(ent.Hooks, OnHookDecl{Name: hookName, Params: params})
	}
	sort.Slice(ent.Hooks, func(i, j int) bool { return ent.Hooks[i].Name < ent.Hooks[j].Name })
	return ent, nil
}

func parseGameFunction(name string, v *JSONValue) (*GameFunction, error) {
	if v.Kind != JSONObject {
		return nil, fmt.Errorf("game function %q: must be an object", name)
	}
	fn := &GameFunction{Name: name}
	if paramsVal, ok := v.Get("arguments"); ok {
		params, err := parseParamList(paramsVal)
		if err != nil {
			return nil, fmt.Errorf("game function %q: %w", name, err)
		}
		fn.Params = params
	}
	if retVal, ok := v.Get("return_type"); ok {
		if retVal.Kind != JSONString {
			return nil, fmt.Errorf("game function %q: \"return_type\" must be a string", name)
		}
		t, err := parseTypeName(retVal.Str)
		if err != nil {
			return nil, fmt.Errorf("game function %q: %w", name, err)
		}
		fn.ReturnType = &t
	}
	return fn, nil
}

// parseParams reads a hook's `{"arguments": [...]}` object.
func parseParams(v *JSONValue) ([]Param, error) {
	argsVal, ok := v.Get("arguments")
	if !ok {
		return nil, nil
	}
	return parseParamList(argsVal)
}

func parseParamList(v *JSONValue) ([]Param, error) {
	if v.Kind != JSONArray {
		return nil, fmt.Errorf("\"arguments\" must be an array")
	}
	params := make([]Param, 0, len(v.Array))
	for _, elem := range v.Array {
		if elem.Kind != JSONObject {
			return nil, fmt.Errorf("argument entry must be an object")
		}
		nameVal, ok := elem.Get("name")
		if !ok || nameVal.Kind != JSONString {
			return nil, fmt.Errorf("argument entry missing string \"name\"")
		}
		typeVal, ok := elem.Get("type")
		if !ok || typeVal.Kind != JSONString {
			return nil, fmt.Errorf("argument %q missing string \"type\"", nameVal.Str)
		}
		t, err := parseTypeName(typeVal.Str)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", nameVal.Str, err)
		}
		params = append(params, Param{Name: nameVal.Str, Type: t})
	}
	return params, nil
}

func parseTypeName(name string) (types.Type, error) {
	switch name {
	case "bool":
		return types.TBool, nil
	case "i32":
		return types.TI32, nil
	case "f32":
		return types.TF32, nil
	case "string":
		return types.TStr, nil
	case "id":
		return types.TId(""), nil
	case "resource":
		return types.Type{Kind: types.Resource}, nil
	case "entity":
		return types.Type{Kind: types.Entity}, nil
	default:
		return types.Type{}, fmt.Errorf("unknown type name %q", name)
	}
}
