// Package watcher implements the mod-tree walk, compile-on-change,
// dlopen-swap, resource-mtime tracking and cross-entity verification
// cycle spec.md §4.6/§4.9 describes as one unit: regenerate_modified_mods.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grugscript/grug/internal/checker"
	"github.com/grugscript/grug/internal/codegen"
	"github.com/grugscript/grug/internal/elflink"
	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/manifest"
	"github.com/grugscript/grug/internal/modtree"
	"github.com/grugscript/grug/internal/parser"
	"github.com/grugscript/grug/internal/runtime"
)

// LoadedFile is one compiled-and-dlopen'd mod source, kept across
// Regenerate calls so an unchanged file is neither recompiled nor
// reopened.
type LoadedFile struct {
	Path          string // source .grug path
	DLLPath       string
	EntityName    string
	EntityType    string
	QualifiedName string // modtree.QualifiedEntityName(mod, entity)

	so      *sharedObject
	exports *objectExports

	sourceMTime    time.Time
	resourceMTimes map[string]time.Time
}

// ReloadEntry is one compiled-and-opened (or freshly-loaded) file, queued
// for the host to pick up (spec.md §4.6 step 4).
type ReloadEntry struct {
	Path      string
	OldHandle bool // true if this reload replaced a previously loaded file
	NewFile   *LoadedFile
}

// ResourceReloadEntry names one resource file whose mtime advanced since
// it was last seen (spec.md §4.6 step 5).
type ResourceReloadEntry struct {
	Path string
}

type loadedMod struct {
	files map[string]*LoadedFile // keyed by source path
}

// Watcher owns every mod currently loaded and the two reload queues
// Regenerate repopulates on each call. The compile/reload pipeline is
// single-threaded and non-reentrant (spec.md §5): callers must not call
// Regenerate from more than one goroutine concurrently.
type Watcher struct {
	Manifest *manifest.Manifest
	ModsRoot string
	DLLRoot  string
	Env      *runtime.Env

	mods        map[string]*loadedMod
	entityIndex map[string]*LoadedFile

	ReloadQueue         []ReloadEntry
	ResourceReloadQueue []ResourceReloadEntry
}

// New creates a Watcher over modsRoot, compiling `.so` files into
// dllRoot. env backs the runtime-support symbols every compiled object
// imports (internal/runtime/cgo_exports.go); the caller is responsible
// for having installed it via runtime.SetDefaultEnv.
func New(man *manifest.Manifest, modsRoot, dllRoot string, env *runtime.Env) *Watcher {
	return &Watcher{
		Manifest:    man,
		ModsRoot:    modsRoot,
		DLLRoot:     dllRoot,
		Env:         env,
		mods:        map[string]*loadedMod{},
		entityIndex: map[string]*LoadedFile{},
	}
}

// GetEntityFile resolves a "<mod>:<entity-name>" qualified name (spec.md
// §6.1's get_entity_file).
func (w *Watcher) GetEntityFile(qualifiedEntity string) (*LoadedFile, bool) {
	lf, ok := w.entityIndex[qualifiedEntity]
	return lf, ok
}

// Regenerate runs one full cycle of spec.md §4.6's seven steps: walk,
// compile-on-change, dlopen-swap, resource mtime diffing, reconciliation
// of disappeared entries, and cross-entity reference verification.
func (w *Watcher) Regenerate() error {
	tree, err := modtree.Walk(w.ModsRoot)
	if err != nil {
		return err
	}

	w.ReloadQueue = nil
	w.ResourceReloadQueue = nil

	seenMods := map[string]bool{}
	seenFiles := map[string]bool{}

	for _, mod := range tree.Mods {
		seenMods[mod.Name] = true
		lm, ok := w.mods[mod.Name]
		if !ok {
			lm = &loadedMod{files: map[string]*LoadedFile{}}
			w.mods[mod.Name] = lm
		}

		var walkErr error
		mod.Walk(func(mf *modtree.File) {
			if walkErr != nil {
				return
			}
			seenFiles[mf.Path] = true
			walkErr = w.reloadFile(mod, lm, mf)
		})
		if walkErr != nil {
			return walkErr
		}
	}

	for _, lm := range w.mods {
		for _, lf := range lm.files {
			w.diffResourceMTimes(lf)
		}
	}

	w.reconcile(seenMods, seenFiles)

	return w.verifyEntityReferences()
}

// reconcile swap-removes mods and files the walk no longer found (spec.md
// §4.6 step 6).
func (w *Watcher) reconcile(seenMods, seenFiles map[string]bool) {
	for modName, lm := range w.mods {
		if !seenMods[modName] {
			for _, lf := range lm.files {
				w.unload(lf)
			}
			delete(w.mods, modName)
			continue
		}
		for path, lf := range lm.files {
			if !seenFiles[path] {
				w.unload(lf)
				delete(lm.files, path)
			}
		}
	}
}

func (w *Watcher) unload(lf *LoadedFile) {
	delete(w.entityIndex, lf.QualifiedName)
	_ = lf.so.close()
}

// targetSoPath derives a source file's `.so` path by substituting the
// extension and rooting at dllRoot instead of modsRoot (spec.md §4.6
// step 2).
func targetSoPath(modsRoot, dllRoot, srcPath string) string {
	rel, err := filepath.Rel(modsRoot, srcPath)
	if err != nil {
		rel = filepath.Base(srcPath)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".so"
	return filepath.Join(dllRoot, rel)
}

// reloadFile implements spec.md §4.6 steps 2-4 for one source file:
// recompile only if no `.so` exists yet or the source outdates it, then
// (re)open it, closing any previously loaded handle only after the new
// one opens successfully.
func (w *Watcher) reloadFile(mod *modtree.Mod, lm *loadedMod, mf *modtree.File) error {
	dllPath := targetSoPath(w.ModsRoot, w.DLLRoot, mf.Path)
	existing := lm.files[mf.Path]

	dllInfo, statErr := os.Stat(dllPath)
	needsCompile := statErr != nil || mf.ModTime.After(dllInfo.ModTime())

	if !needsCompile {
		if existing != nil {
			return nil
		}
		// An up-to-date .so already exists on disk but this process has no
		// in-memory record of it yet (e.g. just started) — open it as-is.
		return w.openAndRecord(mod, lm, mf, dllPath, nil)
	}

	if err := os.MkdirAll(filepath.Dir(dllPath), 0o755); err != nil {
		return errors.New(errors.KindIO, dllPath, 0, "%v", err)
	}

	soBytes, err := w.compile(mf)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dllPath, soBytes, 0o755); err != nil {
		return errors.New(errors.KindIO, dllPath, 0, "%v", err)
	}

	return w.openAndRecord(mod, lm, mf, dllPath, existing)
}

// compile runs the full tokenize-parse-check-codegen-link pipeline for
// one source file and returns the finished ELF bytes.
func (w *Watcher) compile(mf *modtree.File) ([]byte, error) {
	src, err := os.ReadFile(mf.Path)
	if err != nil {
		return nil, errors.New(errors.KindIO, mf.Path, 0, "%v", err)
	}

	prog, err := parser.New(string(src), mf.Path).ParseProgram()
	if err != nil {
		return nil, err
	}

	if err := checker.New(mf.Path, string(src), w.Manifest, mf.EntityType).Check(prog); err != nil {
		return nil, err
	}

	obj, err := codegen.Compile(prog, w.Manifest, mf.EntityType)
	if err != nil {
		return nil, err
	}

	var ent *manifest.Entity
	if w.Manifest != nil {
		ent = w.Manifest.Entities[mf.EntityType]
	}

	return elflink.Link(obj, ent)
}

// openAndRecord dlopen's dllPath, closing existing's old handle (if any)
// only once the new one has opened successfully, then records the
// resulting LoadedFile and queues a ReloadEntry.
func (w *Watcher) openAndRecord(mod *modtree.Mod, lm *loadedMod, mf *modtree.File, dllPath string, existing *LoadedFile) error {
	so, err := dlopen(dllPath)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := existing.so.close(); err != nil {
			return err
		}
	}

	exports, err := readExports(so)
	if err != nil {
		return err
	}

	qualified := modtree.QualifiedEntityName(mod.Name, mf.EntityName)
	lf := &LoadedFile{
		Path:           mf.Path,
		DLLPath:        dllPath,
		EntityName:     mf.EntityName,
		EntityType:     mf.EntityType,
		QualifiedName:  qualified,
		so:             so,
		exports:        exports,
		sourceMTime:    mf.ModTime,
		resourceMTimes: map[string]time.Time{},
	}
	lm.files[mf.Path] = lf
	w.entityIndex[qualified] = lf

	w.ReloadQueue = append(w.ReloadQueue, ReloadEntry{Path: mf.Path, OldHandle: existing != nil, NewFile: lf})
	w.diffResourceMTimes(lf)

	return nil
}

// diffResourceMTimes stats every resource lf's object declares, queuing
// any whose mtime advanced since it was last recorded (spec.md §4.6
// step 5). A resource that can no longer be stat'd is left alone rather
// than queued or dropped — the game, not the watcher, decides what to do
// about a missing asset.
func (w *Watcher) diffResourceMTimes(lf *LoadedFile) {
	for _, res := range lf.exports.resources {
		info, err := os.Stat(res)
		if err != nil {
			continue
		}
		prev, ok := lf.resourceMTimes[res]
		mtime := info.ModTime()
		if !ok || mtime.After(prev) {
			w.ResourceReloadQueue = append(w.ResourceReloadQueue, ResourceReloadEntry{Path: res})
			lf.resourceMTimes[res] = mtime
		}
	}
}

// verifyEntityReferences implements spec.md §4.6 step 7: every entity
// name any loaded file's "entities" array names must resolve through the
// global entity index, and its paired "entity_types" entry must either
// be empty or match what that entity actually is.
func (w *Watcher) verifyEntityReferences() error {
	for _, lm := range w.mods {
		for _, lf := range lm.files {
			for i, refName := range lf.exports.entities {
				target, ok := w.entityIndex[refName]
				if !ok {
					return errors.New(errors.KindResourceOrEntity, lf.Path, 0, "references entity %q, which does not exist", refName)
				}
				wantType := lf.exports.entityTypes[i]
				if wantType != "" && wantType != target.EntityType {
					return errors.New(errors.KindResourceOrEntity, lf.Path, 0,
						"references entity %q as type %q, but it is a %q", refName, wantType, target.EntityType)
				}
			}
		}
	}
	return nil
}
