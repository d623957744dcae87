// Package modtree discovers the mod directory tree beneath a game's mods
// root: which directories are mods (declare an about.json/about.yaml),
// which files inside each mod are grug sources, and how each source
// file's name decomposes into an entity name and entity type
// (spec.md §4.6).
package modtree

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/grugscript/grug/internal/errors"
	"github.com/grugscript/grug/internal/manifest"
)

// About is a mod's declared identity, read from about.json or, failing
// that, about.yaml in the mod's root directory.
type About struct {
	Name        string
	Version     string
	GameVersion string
	Author      string
}

// aboutFieldOrder is the exact key order read_about_json enforces.
var aboutFieldOrder = [4]string{"name", "version", "game_version", "author"}

// readAbout reads dir's about.json or about.yaml, returning (nil, nil)
// when the directory declares neither and so is not a mod boundary.
func readAbout(dir string) (*About, error) {
	jsonPath := filepath.Join(dir, "about.json")
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		return parseAboutJSON(jsonPath, string(data))
	}
	if !os.IsNotExist(err) {
		return nil, errors.New(errors.KindIO, jsonPath, 0, "%v", err)
	}

	yamlPath := filepath.Join(dir, "about.yaml")
	data, err = os.ReadFile(yamlPath)
	if err == nil {
		return parseAboutYAML(yamlPath, data)
	}
	if !os.IsNotExist(err) {
		return nil, errors.New(errors.KindIO, yamlPath, 0, "%v", err)
	}

	return nil, nil
}

// parseAboutJSON enforces the field order and non-emptiness validate_
// about_file checks: "name", "version", "game_version", "author" must be
// the first four keys, in that order, each a non-empty string. Fields
// after the fourth only need a non-empty key.
func parseAboutJSON(path, src string) (*About, error) {
	root, err := manifest.ParseJSON(src)
	if err != nil {
		return nil, errors.New(errors.KindManifestShape, path, 0, "%v", err)
	}
	if root.Kind != manifest.JSONObject {
		return nil, errors.New(errors.KindManifestShape, path, 0, "root must be an object")
	}
	if len(root.Keys) < len(aboutFieldOrder) {
		return nil, errors.New(errors.KindManifestShape, path, 0,
			"must have at least these 4 fields, in this order: \"name\", \"version\", \"game_version\", \"author\"")
	}
	for i, want := range aboutFieldOrder {
		if root.Keys[i] != want {
			return nil, errors.New(errors.KindManifestShape, path, 0,
				"its root object must have %q as its field %d", want, i+1)
		}
	}
	for _, key := range root.Keys[len(aboutFieldOrder):] {
		if key == "" {
			return nil, errors.New(errors.KindManifestShape, path, 0, "a field key must not be an empty string")
		}
	}

	field := func(name string) (string, error) {
		v := root.Fields[name]
		if v.Kind != manifest.JSONString {
			return "", errors.New(errors.KindManifestShape, path, 0, "its %q field must have a string as its value", name)
		}
		if v.Str == "" {
			return "", errors.New(errors.KindManifestShape, path, 0, "its %q field value must not be an empty string", name)
		}
		return v.Str, nil
	}

	name, err := field("name")
	if err != nil {
		return nil, err
	}
	version, err := field("version")
	if err != nil {
		return nil, err
	}
	gameVersion, err := field("game_version")
	if err != nil {
		return nil, err
	}
	author, err := field("author")
	if err != nil {
		return nil, err
	}

	return &About{Name: name, Version: version, GameVersion: gameVersion, Author: author}, nil
}

// yamlAbout is the about.yaml decode target; field order is not
// meaningful in YAML so only presence/non-emptiness is validated.
type yamlAbout struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	GameVersion string `yaml:"game_version"`
	Author      string `yaml:"author"`
}

func parseAboutYAML(path string, data []byte) (*About, error) {
	var y yamlAbout
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, errors.New(errors.KindManifestShape, path, 0, "%v", err)
	}

	required := []struct {
		name, value string
	}{
		{"name", y.Name},
		{"version", y.Version},
		{"game_version", y.GameVersion},
		{"author", y.Author},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, errors.New(errors.KindManifestShape, path, 0, "its %q field value must not be an empty string", f.name)
		}
	}

	return &About{Name: y.Name, Version: y.Version, GameVersion: y.GameVersion, Author: y.Author}, nil
}
