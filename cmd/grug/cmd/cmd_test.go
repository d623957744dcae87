package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGrugFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEntityTypeFromFilename(t *testing.T) {
	got, err := entityTypeFromFilename("sword-Weapon.grug")
	if err != nil {
		t.Fatalf("entityTypeFromFilename: %v", err)
	}
	if got != "Weapon" {
		t.Fatalf("got %q, want Weapon", got)
	}
}

func TestEntityTypeFromFilenameRejectsMissingDash(t *testing.T) {
	if _, err := entityTypeFromFilename("sword.grug"); err == nil {
		t.Fatal("expected an error for a filename without a dash")
	}
}

func TestRunParseOnHelperOnlyFile(t *testing.T) {
	path := writeGrugFile(t, "helpers.grug", "helper_add(a: i32, b: i32) i32 {\n    return a + b\n}\n")
	if err := runParse(nil, []string{path}); err != nil {
		t.Fatalf("runParse: %v", err)
	}
}

func TestRunParseReportsSyntaxError(t *testing.T) {
	path := writeGrugFile(t, "broken.grug", "helper_add(a: i32 i32 {\n    return a\n}\n")
	if err := runParse(nil, []string{path}); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRunCheckOnHelperOnlyFile(t *testing.T) {
	// A helper-only file's name has no dash, so --entity-type must be
	// passed explicitly rather than derived from the filename.
	path := writeGrugFile(t, "helpers.grug", "helper_add(a: i32, b: i32) i32 {\n    return a + b\n}\n")

	prevModAPI, prevEntityType := checkModAPI, checkEntityType
	defer func() { checkModAPI, checkEntityType = prevModAPI, prevEntityType }()

	checkModAPI = writeModAPIFixture(t)
	checkEntityType = "Weapon"

	if err := runCheck(nil, []string{path}); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
}

func writeModAPIFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mod_api.json")
	content := `{
		"entities": {
			"Weapon": {
				"on_functions": {}
			}
		},
		"game_functions": {}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
