package modtree

import (
	"path/filepath"
	"strings"

	"github.com/grugscript/grug/internal/errors"
)

// grugExt is the required extension of every mod source file.
const grugExt = ".grug"

// ParsedFilename is the decomposition of a "<entity-name>-<EntityType>.grug"
// filename (spec.md §4.6). Entity name may itself contain dashes; the
// *last* dash is the one that separates it from the entity type.
type ParsedFilename struct {
	EntityName string
	EntityType string
}

// ParseFilename decomposes the base name (no directory component) of a
// mod source file. A missing extension, a missing dash, an empty entity
// name, or a non-PascalCase entity type are all errors.
func ParseFilename(name string) (ParsedFilename, error) {
	ext := filepath.Ext(name)
	if ext != grugExt {
		return ParsedFilename{}, errors.New(errors.KindResourceOrEntity, name, 0, "must have a %q extension", grugExt)
	}
	base := strings.TrimSuffix(name, ext)

	i := strings.LastIndexByte(base, '-')
	if i < 0 {
		return ParsedFilename{}, errors.New(errors.KindResourceOrEntity, name, 0, "missing '-' separating entity name from entity type")
	}

	entityName, entityType := base[:i], base[i+1:]
	if entityName == "" {
		return ParsedFilename{}, errors.New(errors.KindResourceOrEntity, name, 0, "entity name must not be empty")
	}
	if !isPascalCase(entityType) {
		return ParsedFilename{}, errors.New(errors.KindResourceOrEntity, name, 0, "entity type %q must be PascalCase", entityType)
	}

	return ParsedFilename{EntityName: entityName, EntityType: entityType}, nil
}

// isPascalCase reports whether s starts with an uppercase ASCII letter
// and contains only ASCII letters and digits.
func isPascalCase(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// QualifiedEntityName returns the "<mod>:<entity-name>" form used as the
// key into the global cross-mod entity index (form_entity).
func QualifiedEntityName(modName, entityName string) string {
	return modName + ":" + entityName
}
