package filetype

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// partitionerPrefix is stripped from a registered function's name to derive
// the shortname: PartitionDocx → "docx".
const partitionerPrefix = "Partition"

// Create registers a brand-new file type at runtime. The new type is
// immediately visible to FromExtension and FromMimeType without touching
// any existing member. Extensions must include the leading dot.
//
// Meant for plugin modules adding support for a format this registry does
// not ship: call Create at init time, then RegisterPartitioner to bind the
// extraction routine.
func Create(name, canonicalMime string, extensions []string) (*FileType, error) {
	ft := &FileType{
		name:       strings.ToLower(name),
		mimeType:   canonicalMime,
		extensions: lowercase(extensions),
	}
	if err := register(ft); err != nil {
		return nil, err
	}
	return ft, nil
}

// RegisterPartitioner binds fn as the partitioner for ft. fn must be a named
// top-level function whose name starts with "Partition"; the remainder,
// lowercased, becomes the type's shortname, and the function's own defining
// package is recorded as the partitioner package. Dispatch metadata thus
// reflects where the handler actually lives, so plugins registering from
// their own module report their module, not this registry's.
//
// For built-in types that carry a static shortname the derived shortname
// must match it; this keeps the family aliases (xls/xlsx, the image types)
// honest when the shared handler is bound to each member.
func RegisterPartitioner(ft *FileType, fn any) error {
	if ft == nil {
		return fmt.Errorf("register partitioner: nil file type")
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("register partitioner for %q: handler must be a function, got %T", ft.name, fn)
	}

	pkg, funcName, err := funcIdentity(v)
	if err != nil {
		return fmt.Errorf("register partitioner for %q: %w", ft.name, err)
	}
	if !strings.HasPrefix(funcName, partitionerPrefix) || len(funcName) == len(partitionerPrefix) {
		return fmt.Errorf("register partitioner for %q: function %s must be named %s<Shortname>", ft.name, funcName, partitionerPrefix)
	}
	shortname := strings.ToLower(funcName[len(partitionerPrefix):])

	if ft.shortname != "" && ft.shortname != shortname {
		return fmt.Errorf("register partitioner for %q: %s derives shortname %q, type already bound to %q", ft.name, funcName, shortname, ft.shortname)
	}
	if ft.handler != nil {
		return fmt.Errorf("register partitioner for %q: handler already bound", ft.name)
	}

	ft.shortname = shortname
	ft.handler = fn
	ft.handlerName = funcName
	ft.handlerPkg = pkg
	return nil
}

// funcIdentity resolves the defining package path and bare name of fn.
// Closures and method values are rejected: the registry records a stable
// function identity, and anonymous functions have none.
func funcIdentity(v reflect.Value) (pkg, name string, err error) {
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "", "", fmt.Errorf("cannot resolve function identity")
	}
	full := rf.Name() // e.g. github.com/hazyhaar/ingestkit/partition.PartitionDocx

	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", "", fmt.Errorf("unexpected function name %q", full)
	}
	dot += slash + 1
	pkg, name = full[:dot], full[dot+1:]

	if strings.ContainsAny(name, ".-") {
		return "", "", fmt.Errorf("handler must be a named top-level function, got %q", full)
	}
	return pkg, name, nil
}

func lowercase(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
