// Package config holds small, package-independent constants shared across
// the verifier: its own version string and the file-extension/type-name
// vocabulary other packages would otherwise have to duplicate.
package config

// Version is the current specverify version, set at build time via
// -ldflags or left at this default for local builds.
var Version = "0.1.0"

// SourceFileExt is the canonical extension for hand-authored domain
// specs; DomainFileExtensions lists every extension domainio accepts.
const SourceFileExt = ".yaml"

// DomainFileExtensions are the recognized on-disk domain spec formats.
var DomainFileExtensions = []string{".json", ".yaml", ".yml"}

// TrimSourceExt removes any recognized domain extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range DomainFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasDomainExt returns true if the path ends with any recognized domain
// spec extension.
func HasDomainExt(path string) bool {
	for _, ext := range DomainFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// BuiltinPrimitiveNames are the scalar types internal/symbols preloads
// into the prelude scope; ast.PrimitiveType.Name must be one of these.
var BuiltinPrimitiveNames = []string{
	"String", "Int", "Decimal", "Boolean", "UUID",
	"Timestamp", "Duration", "Bytes",
}

// ImplicitEntityFields are entity fields the unused-field checks (C8,
// E0324) never flag, since every entity carries them by convention
// rather than by explicit use.
var ImplicitEntityFields = map[string]bool{
	"id": true, "createdAt": true, "updatedAt": true, "version": true,
	"deleted": true, "createdBy": true, "updatedBy": true, "tenantId": true,
}
