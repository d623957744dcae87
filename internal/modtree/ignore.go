package modtree

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grugscript/grug/internal/errors"
)

// ignoreFileName is the per-directory ignore-list grug.c's hot-reloading
// walk never implemented but that the rest of its design invites: one
// filepath.Match glob per non-blank, non-comment line, matched against
// the base name of every entry the walk would otherwise visit.
//
// A single filepath.Match per pattern is enough here: patterns apply to
// one directory's immediate entries, never to multi-segment paths, so a
// dedicated glob library would add a dependency this feature doesn't need.
const ignoreFileName = ".grugignore"

// ignoreList is the parsed, non-empty contents of one directory's
// .grugignore, or nil if the directory has none.
type ignoreList []string

func loadIgnoreList(dir string) (ignoreList, error) {
	data, err := os.ReadFile(filepath.Join(dir, ignoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.KindIO, filepath.Join(dir, ignoreFileName), 0, "%v", err)
	}

	var patterns ignoreList
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// matches reports whether base (an entry's own file/directory name, not a
// full path) matches any pattern in the list.
func (l ignoreList) matches(base string) bool {
	for _, pattern := range l {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
