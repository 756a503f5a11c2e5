// Package filetype is the file-kind registry of the ingest pipeline.
//
// Every recognised document or media kind is a *FileType descriptor carrying
// its identification keys (canonical MIME type, alias MIME types, filename
// extensions) and its dispatch metadata (which partitioner handles it and
// which packages that partitioner needs). The registry is seeded with the
// built-in set at package init and is append-only for the process lifetime:
// plugins may add types and bind partitioners at startup, nothing is ever
// removed.
//
// All mutation goes through Create and RegisterPartitioner. Both are meant
// to be called during startup from a single goroutine (init functions,
// main); the registry is unguarded and lookups assume registration has
// finished.
package filetype

import (
	"fmt"
	"sort"
	"strings"
)

// FileType describes one recognised file kind. Descriptors are created by
// the registry (built-ins at init, plugins via Create) and are shared;
// callers compare them by pointer identity.
type FileType struct {
	name       string
	mimeType   string
	aliasMimes []string
	extensions []string

	// shortname templates the partitioner function name and package.
	// Empty means the type is not partitionable.
	shortname string

	// extraPackages lists the modules the partitioner needs at runtime,
	// extraName the install group bundling them. Diagnostic metadata only.
	extraPackages []string
	extraName     string

	// Set by RegisterPartitioner.
	handler     any
	handlerName string
	handlerPkg  string
}

// Name returns the registry name of the type, e.g. "docx".
func (ft *FileType) Name() string { return ft.name }

func (ft *FileType) String() string { return ft.name }

// MimeType returns the canonical MIME type written verbatim into the
// metadata of every element extracted from a file of this type.
func (ft *FileType) MimeType() string { return ft.mimeType }

// AliasMimeTypes returns the additional MIME types that resolve to this type.
func (ft *FileType) AliasMimeTypes() []string {
	return append([]string(nil), ft.aliasMimes...)
}

// Extensions returns the recognised filename extensions, leading dot included.
func (ft *FileType) Extensions() []string {
	return append([]string(nil), ft.extensions...)
}

// ExtraPackages returns the packages the partitioner for this type needs.
func (ft *FileType) ExtraPackages() []string {
	return append([]string(nil), ft.extraPackages...)
}

// ExtraName returns the install-group name bundling ExtraPackages.
func (ft *FileType) ExtraName() string { return ft.extraName }

// IsPartitionable reports whether a partitioner shortname is bound to this
// type. Check it before calling PartitionerFunction or PartitionerPackage.
func (ft *FileType) IsPartitionable() bool { return ft.shortname != "" }

// PartitionerShortname returns the shortname templating the partitioner
// function name, or "" when the type is not partitionable. Unlike
// PartitionerFunction it never fails, so callers can group types by
// shortname (the image family all share "image") without error handling.
func (ft *FileType) PartitionerShortname() string { return ft.shortname }

// PartitionerFunction returns the name of the partitioner function for this
// type. When a handler has been registered the reflected name of that
// function is returned; otherwise the name is derived from the shortname
// template ("Partition" + capitalised shortname).
//
// Calling this on a non-partitionable type is a programming error and
// returns a descriptive one.
func (ft *FileType) PartitionerFunction() (string, error) {
	if ft.shortname == "" {
		return "", ft.notPartitionable()
	}
	if ft.handlerName != "" {
		return ft.handlerName, nil
	}
	return "Partition" + capitalize(ft.shortname), nil
}

// PartitionerPackage returns the import path of the package defining the
// partitioner for this type: the registering function's own package when a
// handler is bound, the default partitioner package otherwise. Same failure
// contract as PartitionerFunction.
func (ft *FileType) PartitionerPackage() (string, error) {
	if ft.shortname == "" {
		return "", ft.notPartitionable()
	}
	if ft.handlerPkg != "" {
		return ft.handlerPkg, nil
	}
	return defaultPartitionerPackage, nil
}

// Partitioner returns the handler bound via RegisterPartitioner, untyped.
// The dispatcher owning the concrete signature asserts it back. ok is false
// when no handler has been bound, including for partitionable types whose
// handler never got registered.
func (ft *FileType) Partitioner() (any, bool) {
	return ft.handler, ft.handler != nil
}

// Compare orders file types by name, so that sorted output is stable for
// any consumer grouping by type.
func (ft *FileType) Compare(other *FileType) int {
	return strings.Compare(ft.name, other.name)
}

func (ft *FileType) notPartitionable() error {
	return fmt.Errorf("file type %q is not partitionable; guard with IsPartitionable before resolving dispatch metadata", ft.name)
}

// defaultPartitionerPackage is where the built-in partitioners live.
const defaultPartitionerPackage = "github.com/hazyhaar/ingestkit/partition"

var registry = struct {
	types  []*FileType
	byName map[string]*FileType
	byMime map[string]*FileType
}{
	byName: make(map[string]*FileType),
	byMime: make(map[string]*FileType),
}

// register adds ft to the registry, rejecting identity collisions with
// already-registered types.
func register(ft *FileType) error {
	if ft.name == "" {
		return fmt.Errorf("file type name must not be empty")
	}
	if _, exists := registry.byName[ft.name]; exists {
		return fmt.Errorf("file type %q already registered", ft.name)
	}
	if ft.mimeType == "" {
		return fmt.Errorf("file type %q needs a canonical MIME type", ft.name)
	}
	if owner, taken := registry.byMime[ft.mimeType]; taken {
		return fmt.Errorf("MIME type %q already owned by %q", ft.mimeType, owner.name)
	}
	for _, alias := range ft.aliasMimes {
		if owner, taken := registry.byMime[alias]; taken {
			return fmt.Errorf("alias MIME type %q already owned by %q", alias, owner.name)
		}
	}
	for _, ext := range ft.extensions {
		if other := lookupExtension(ext); other != nil {
			return fmt.Errorf("extension %q already owned by %q", ext, other.name)
		}
	}

	registry.types = append(registry.types, ft)
	registry.byName[ft.name] = ft
	registry.byMime[ft.mimeType] = ft
	for _, alias := range ft.aliasMimes {
		registry.byMime[alias] = ft
	}
	return nil
}

func mustRegister(ft *FileType) *FileType {
	if err := register(ft); err != nil {
		panic("filetype: " + err.Error())
	}
	return ft
}

func lookupExtension(ext string) *FileType {
	for _, ft := range registry.types {
		for _, e := range ft.extensions {
			if e == ext {
				return ft
			}
		}
	}
	return nil
}

// FromExtension resolves a filename extension (leading dot included, e.g.
// ".pdf") to its file type. The empty string, a bare dot, and unknown
// extensions all yield nil: an unrecognised extension is not an error,
// callers fall back to other detection strategies.
func FromExtension(ext string) *FileType {
	if ext == "" || ext == "." {
		return nil
	}
	return lookupExtension(strings.ToLower(ext))
}

// FromMimeType resolves a MIME type string, matching either a canonical
// MIME type or any registered alias. Unknown and empty inputs yield nil.
func FromMimeType(mime string) *FileType {
	if mime == "" {
		return nil
	}
	return registry.byMime[mime]
}

// ByName returns the type registered under name, or nil.
func ByName(name string) *FileType {
	return registry.byName[name]
}

// All returns a name-sorted snapshot of every registered type. The slice is
// a copy; mutating it does not affect the registry.
func All() []*FileType {
	out := append([]*FileType(nil), registry.types...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
