package manifest

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// DumpEntityDebug renders an entity's manifest-declared hooks as
// pretty-printed JSON for `grug inspect` (spec.md §6.4
// supplement, grounded on original_source/grug.c's entity debug dump).
// It round-trips through gjson/sjson rather than constructing the
// string by hand, so field quoting and escaping stay correct even for
// hook or parameter names containing JSON-special characters.
func DumpEntityDebug(ent *Entity) (string, error) {
	doc := `{"name":""}`
	doc, err := sjson.Set(doc, "name", ent.Name)
	if err != nil {
		return "", fmt.Errorf("dump entity %q: %w", ent.Name, err)
	}
	for i, hook := range ent.Hooks {
		path := fmt.Sprintf("on_functions.%d", i)
		doc, err = sjson.Set(doc, path+".name", hook.Name)
		if err != nil {
			return "", fmt.Errorf("dump entity %q: %w", ent.Name, err)
		}
		for j, p := range hook.Params {
			argPath := fmt.Sprintf("%s.arguments.%d", path, j)
			doc, err = sjson.Set(doc, argPath+".name", p.Name)
			if err != nil {
				return "", fmt.Errorf("dump entity %q: %w", ent.Name, err)
			}
			doc, err = sjson.Set(doc, argPath+".type", p.Type.String())
			if err != nil {
				return "", fmt.Errorf("dump entity %q: %w", ent.Name, err)
			}
		}
	}
	return string(pretty.Pretty([]byte(doc))), nil
}

// DumpGameFunctionsDebug renders the manifest's game function table,
// sorted by name.
func DumpGameFunctionsDebug(m *Manifest) string {
	doc := "{}"
	names := make([]string, 0, len(m.GameFunctions))
	for name := range m.GameFunctions {
		names = append(names, name)
	}
	sortStrings(names)

	for i, name := range names {
		fn := m.GameFunctions[name]
		path := fmt.Sprintf("game_functions.%d", i)
		doc, _ = sjson.Set(doc, path+".name", fn.Name)
		for j, p := range fn.Params {
			argPath := fmt.Sprintf("%s.arguments.%d", path, j)
			doc, _ = sjson.Set(doc, argPath+".name", p.Name)
			doc, _ = sjson.Set(doc, argPath+".type", p.Type.String())
		}
		if fn.ReturnType != nil {
			doc, _ = sjson.Set(doc, path+".return_type", fn.ReturnType.String())
		}
	}
	return string(pretty.Pretty([]byte(doc)))
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// LookupField uses gjson to pull one field out of a raw manifest document
// for error messages that want to quote the offending JSON text verbatim,
// without re-parsing the whole document through the strict reader.
func LookupField(rawJSON, path string) (string, bool) {
	res := gjson.Get(rawJSON, path)
	if !res.Exists() {
		return "", false
	}
	return strings.TrimSpace(res.Raw), true
}
