package modtree

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const validAboutJSON = `{
	"name": "bomb_mod",
	"version": "1.0.0",
	"game_version": "2.1.3",
	"author": "someone"
}`

func TestReadAboutJSONValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "about.json"), validAboutJSON)

	about, err := readAbout(dir)
	if err != nil {
		t.Fatalf("readAbout: %v", err)
	}
	if about == nil {
		t.Fatalf("readAbout: want a non-nil About")
	}
	if about.Name != "bomb_mod" || about.Version != "1.0.0" || about.GameVersion != "2.1.3" || about.Author != "someone" {
		t.Fatalf("readAbout: got %+v", about)
	}
}

func TestReadAboutJSONWrongFieldOrderIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "about.json"), `{
		"version": "1.0.0",
		"name": "bomb_mod",
		"game_version": "2.1.3",
		"author": "someone"
	}`)

	if _, err := readAbout(dir); err == nil {
		t.Fatalf("want an error for an out-of-order about.json")
	}
}

func TestReadAboutJSONEmptyFieldIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "about.json"), `{
		"name": "",
		"version": "1.0.0",
		"game_version": "2.1.3",
		"author": "someone"
	}`)

	if _, err := readAbout(dir); err == nil {
		t.Fatalf("want an error for an empty \"name\" field")
	}
}

func TestReadAboutYAMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "about.yaml"), "name: bomb_mod\nversion: 1.0.0\ngame_version: 2.1.3\nauthor: someone\n")

	about, err := readAbout(dir)
	if err != nil {
		t.Fatalf("readAbout: %v", err)
	}
	if about == nil || about.Name != "bomb_mod" {
		t.Fatalf("readAbout: got %+v", about)
	}
}

func TestReadAboutMissingReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()

	about, err := readAbout(dir)
	if err != nil {
		t.Fatalf("readAbout: %v", err)
	}
	if about != nil {
		t.Fatalf("readAbout: want nil for a directory with no about file, got %+v", about)
	}
}

func TestParseFilenameValid(t *testing.T) {
	p, err := ParseFilename("boss-Enemy.grug")
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if p.EntityName != "boss" || p.EntityType != "Enemy" {
		t.Fatalf("ParseFilename: got %+v", p)
	}
}

func TestParseFilenameLastDashSplits(t *testing.T) {
	p, err := ParseFilename("fire-breathing-dragon-Enemy.grug")
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if p.EntityName != "fire-breathing-dragon" || p.EntityType != "Enemy" {
		t.Fatalf("ParseFilename: got %+v", p)
	}
}

func TestParseFilenameMissingDashIsAnError(t *testing.T) {
	if _, err := ParseFilename("boss.grug"); err == nil {
		t.Fatalf("want an error for a filename with no '-'")
	}
}

func TestParseFilenameNonPascalCaseEntityTypeIsAnError(t *testing.T) {
	if _, err := ParseFilename("boss-enemy.grug"); err == nil {
		t.Fatalf("want an error for a lowercase entity type")
	}
}

func TestParseFilenameWrongExtensionIsAnError(t *testing.T) {
	if _, err := ParseFilename("boss-Enemy.txt"); err == nil {
		t.Fatalf("want an error for a non-.grug extension")
	}
}

func TestWalkDiscoversModAndFiles(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "bomb_mod")
	writeFile(t, filepath.Join(modDir, "about.json"), validAboutJSON)
	writeFile(t, filepath.Join(modDir, "boss-Enemy.grug"), "on_spawn() {\n}\n")
	writeFile(t, filepath.Join(modDir, "weapons", "sword-Weapon.grug"), "on_hit() {\n}\n")

	tree, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Mods) != 1 {
		t.Fatalf("Mods: want 1, got %d", len(tree.Mods))
	}
	mod := tree.Mods[0]
	if mod.About.Name != "bomb_mod" {
		t.Fatalf("About.Name: got %q", mod.About.Name)
	}

	var found []string
	mod.Walk(func(f *File) { found = append(found, f.Name) })
	if len(found) != 2 {
		t.Fatalf("want 2 files discovered, got %v", found)
	}
}

func TestWalkRejectsGrugFileOutsideAnyMod(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stray-Enemy.grug"), "on_spawn() {\n}\n")

	if _, err := Walk(root); err == nil {
		t.Fatalf("want an error for a .grug file with no ancestor about.json")
	}
}

func TestWalkOrdersEntriesNaturally(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "weapons_mod")
	writeFile(t, filepath.Join(modDir, "about.json"), validAboutJSON)
	writeFile(t, filepath.Join(modDir, "weapon10-Weapon.grug"), "")
	writeFile(t, filepath.Join(modDir, "weapon2-Weapon.grug"), "")

	tree, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	files := tree.Mods[0].Root.Files
	if len(files) != 2 {
		t.Fatalf("want 2 files, got %d", len(files))
	}
	if files[0].Name != "weapon2-Weapon.grug" || files[1].Name != "weapon10-Weapon.grug" {
		t.Fatalf("want natural order [weapon2 weapon10], got [%s %s]", files[0].Name, files[1].Name)
	}
}

func TestWalkSkipsGrugignoredEntries(t *testing.T) {
	root := t.TempDir()
	modDir := filepath.Join(root, "bomb_mod")
	writeFile(t, filepath.Join(modDir, "about.json"), validAboutJSON)
	writeFile(t, filepath.Join(modDir, "boss-Enemy.grug"), "")
	writeFile(t, filepath.Join(modDir, "draft-Enemy.grug"), "")
	writeFile(t, filepath.Join(modDir, ignoreFileName), "draft-*.grug\n")

	tree, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	files := tree.Mods[0].Root.Files
	if len(files) != 1 || files[0].Name != "boss-Enemy.grug" {
		t.Fatalf("want only boss-Enemy.grug to survive .grugignore, got %v", files)
	}
}
