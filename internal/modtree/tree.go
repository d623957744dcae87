package modtree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"

	"github.com/grugscript/grug/internal/errors"
)

// MaxDirectoryDepth bounds how deeply a mod's own directory structure may
// nest (spec.md §4.6 step 1).
const MaxDirectoryDepth = 42

// File is one discovered grug source file inside a mod.
type File struct {
	Path       string // filesystem path
	Name       string // base name, e.g. "boss-Enemy.grug"
	EntityName string
	EntityType string
	ModTime    time.Time
}

// Dir is one directory inside a mod's own tree: the mod root itself, or
// one of its subdirectories.
type Dir struct {
	Path  string
	Name  string
	Files []*File
	Dirs  []*Dir
}

// Mod is one directory declaring about.json/about.yaml, plus every grug
// source file found anywhere beneath it.
type Mod struct {
	Name  string // the directory's own base name
	Path  string
	About *About
	Root  *Dir
}

// Tree is the result of walking a mods root directory.
type Tree struct {
	Mods []*Mod
}

// Walk discovers every mod under root (spec.md §4.6 step 1). It is two
// recursions: the outer one below only looks for a directory declaring
// about.json/about.yaml, recursing into plain directories and rejecting a
// .grug file found before any ancestor has declared one; once a mod
// boundary is found, walkMod takes over and freely recurses through that
// mod's own subdirectories.
func Walk(root string) (*Tree, error) {
	t := &Tree{}
	if err := walkOuter(root, 0, t); err != nil {
		return nil, err
	}
	sort.Slice(t.Mods, func(i, j int) bool { return natural.Less(t.Mods[i].Name, t.Mods[j].Name) })
	return t, nil
}

func walkOuter(dir string, depth int, t *Tree) error {
	if depth > MaxDirectoryDepth {
		return errors.New(errors.KindIO, dir, 0, "exceeded the maximum directory depth of %d", MaxDirectoryDepth)
	}

	about, err := readAbout(dir)
	if err != nil {
		return err
	}
	if about != nil {
		root, err := walkMod(dir, 0)
		if err != nil {
			return err
		}
		t.Mods = append(t.Mods, &Mod{Name: filepath.Base(dir), Path: dir, About: about, Root: root})
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New(errors.KindIO, dir, 0, "%v", err)
	}
	ignore, err := loadIgnoreList(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if ignore.matches(e.Name()) {
			continue
		}
		entryPath := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := walkOuter(entryPath, depth+1, t); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(e.Name(), grugExt) {
			return errors.New(errors.KindResourceOrEntity, entryPath, 0,
				"grug files must be contained in a valid mod directory, however no parent of %q has an about.json or about.yaml", entryPath)
		}
	}
	return nil
}

// walkMod recurses freely through one mod's own directory tree, bounded
// by MaxDirectoryDepth, collecting every .grug file it finds.
func walkMod(dir string, depth int) (*Dir, error) {
	if depth > MaxDirectoryDepth {
		return nil, errors.New(errors.KindIO, dir, 0, "there is a mod that contains more than %d levels of nested directories", MaxDirectoryDepth)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.KindIO, dir, 0, "%v", err)
	}
	ignore, err := loadIgnoreList(dir)
	if err != nil {
		return nil, err
	}

	d := &Dir{Path: dir, Name: filepath.Base(dir)}
	for _, e := range entries {
		if ignore.matches(e.Name()) {
			continue
		}
		entryPath := filepath.Join(dir, e.Name())

		if e.IsDir() {
			sub, err := walkMod(entryPath, depth+1)
			if err != nil {
				return nil, err
			}
			d.Dirs = append(d.Dirs, sub)
			continue
		}

		if !strings.HasSuffix(e.Name(), grugExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, errors.New(errors.KindIO, entryPath, 0, "%v", err)
		}
		parsed, err := ParseFilename(e.Name())
		if err != nil {
			return nil, err
		}
		d.Files = append(d.Files, &File{
			Path:       entryPath,
			Name:       e.Name(),
			EntityName: parsed.EntityName,
			EntityType: parsed.EntityType,
			ModTime:    info.ModTime(),
		})
	}

	sort.Slice(d.Dirs, func(i, j int) bool { return natural.Less(d.Dirs[i].Name, d.Dirs[j].Name) })
	sort.Slice(d.Files, func(i, j int) bool { return natural.Less(d.Files[i].Name, d.Files[j].Name) })

	return d, nil
}

// Walk calls fn for every file in the mod's tree, depth-first, in the
// same natural order walkMod sorted them into.
func (m *Mod) Walk(fn func(*File)) {
	walkDirFiles(m.Root, fn)
}

func walkDirFiles(d *Dir, fn func(*File)) {
	for _, f := range d.Files {
		fn(f)
	}
	for _, sub := range d.Dirs {
		walkDirFiles(sub, fn)
	}
}
