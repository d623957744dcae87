package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// These tests exercise the pure-Go logic around the reload cycle —
// path derivation, resource-mtime diffing, and cross-entity
// verification — without ever calling dlopen/dlclose, since doing so
// for real requires a `.so` the Go toolchain built this module, which
// this package cannot produce without running `go build`.

func TestTargetSoPath(t *testing.T) {
	modsRoot := "/mods"
	dllRoot := "/dlls"
	src := filepath.Join(modsRoot, "weapons", "sword-Weapon.grug")

	got := targetSoPath(modsRoot, dllRoot, src)
	want := filepath.Join(dllRoot, "weapons", "sword-Weapon.so")

	if got != want {
		t.Fatalf("targetSoPath() = %q, want %q", got, want)
	}
}

func TestTargetSoPathOutsideModsRootFallsBackToBase(t *testing.T) {
	got := targetSoPath("/mods", "/dlls", "/elsewhere/thing-Thing.grug")
	want := filepath.Join("/dlls", "thing-Thing.so")

	if got != want {
		t.Fatalf("targetSoPath() = %q, want %q", got, want)
	}
}

func TestDiffResourceMTimesQueuesNewAndAdvancedResources(t *testing.T) {
	dir := t.TempDir()
	resPath := filepath.Join(dir, "sword.png")
	if err := os.WriteFile(resPath, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{mods: map[string]*loadedMod{}, entityIndex: map[string]*LoadedFile{}}
	lf := &LoadedFile{
		exports:        &objectExports{resources: []string{resPath}},
		resourceMTimes: map[string]time.Time{},
	}

	w.diffResourceMTimes(lf)
	if len(w.ResourceReloadQueue) != 1 {
		t.Fatalf("first diff: got %d queued, want 1", len(w.ResourceReloadQueue))
	}
	if w.ResourceReloadQueue[0].Path != resPath {
		t.Fatalf("queued path = %q, want %q", w.ResourceReloadQueue[0].Path, resPath)
	}

	w.ResourceReloadQueue = nil
	w.diffResourceMTimes(lf)
	if len(w.ResourceReloadQueue) != 0 {
		t.Fatalf("unchanged resource should not requeue, got %d", len(w.ResourceReloadQueue))
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(resPath, future, future); err != nil {
		t.Fatal(err)
	}
	w.diffResourceMTimes(lf)
	if len(w.ResourceReloadQueue) != 1 {
		t.Fatalf("advanced mtime should requeue, got %d", len(w.ResourceReloadQueue))
	}
}

func TestDiffResourceMTimesIgnoresMissingResource(t *testing.T) {
	w := &Watcher{}
	lf := &LoadedFile{
		exports:        &objectExports{resources: []string{"/does/not/exist.png"}},
		resourceMTimes: map[string]time.Time{},
	}

	w.diffResourceMTimes(lf)
	if len(w.ResourceReloadQueue) != 0 {
		t.Fatalf("missing resource should not be queued, got %d", len(w.ResourceReloadQueue))
	}
}

func newTestWatcherWithEntities() *Watcher {
	w := &Watcher{
		mods:        map[string]*loadedMod{},
		entityIndex: map[string]*LoadedFile{},
	}
	sword := &LoadedFile{Path: "sword-Weapon.grug", EntityType: "Weapon", QualifiedName: "weapons:sword"}
	goblin := &LoadedFile{
		Path:          "goblin-Enemy.grug",
		EntityType:    "Enemy",
		QualifiedName: "enemies:goblin",
		exports: &objectExports{
			entities:    []string{"weapons:sword"},
			entityTypes: []string{"Weapon"},
		},
	}
	w.entityIndex["weapons:sword"] = sword
	w.entityIndex["enemies:goblin"] = goblin
	w.mods["weapons"] = &loadedMod{files: map[string]*LoadedFile{sword.Path: sword}}
	w.mods["enemies"] = &loadedMod{files: map[string]*LoadedFile{goblin.Path: goblin}}
	return w
}

func TestVerifyEntityReferencesAcceptsMatchingType(t *testing.T) {
	w := newTestWatcherWithEntities()
	if err := w.verifyEntityReferences(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyEntityReferencesAcceptsEmptyType(t *testing.T) {
	w := newTestWatcherWithEntities()
	w.mods["enemies"].files["goblin-Enemy.grug"].exports.entityTypes[0] = ""
	if err := w.verifyEntityReferences(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyEntityReferencesRejectsMissingEntity(t *testing.T) {
	w := newTestWatcherWithEntities()
	delete(w.entityIndex, "weapons:sword")
	if err := w.verifyEntityReferences(); err == nil {
		t.Fatal("expected an error for a reference to a removed entity")
	}
}

func TestVerifyEntityReferencesRejectsMismatchedType(t *testing.T) {
	w := newTestWatcherWithEntities()
	w.mods["enemies"].files["goblin-Enemy.grug"].exports.entityTypes[0] = "Armor"
	if err := w.verifyEntityReferences(); err == nil {
		t.Fatal("expected an error for a type mismatch")
	}
}

func TestGetEntityFile(t *testing.T) {
	w := newTestWatcherWithEntities()

	lf, ok := w.GetEntityFile("weapons:sword")
	if !ok {
		t.Fatal("expected weapons:sword to resolve")
	}
	if lf.EntityType != "Weapon" {
		t.Fatalf("EntityType = %q, want Weapon", lf.EntityType)
	}

	if _, ok := w.GetEntityFile("weapons:shield"); ok {
		t.Fatal("expected weapons:shield to not resolve")
	}
}
