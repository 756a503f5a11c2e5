package filetype

import (
	"sort"
	"strings"
	"testing"
)

func TestFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want *FileType
	}{
		{".pdf", PDF},
		{".docx", DOCX},
		{".doc", DOC},
		{".html", HTML},
		{".htm", HTML},
		{".md", MD},
		{".markdown", MD},
		{".txt", TXT},
		{".log", TXT},
		{".jpg", JPG},
		{".jpeg", JPG},
		{".csv", CSV},
		{".tsv", TSV},
		{".xls", XLS},
		{".xlsx", XLSX},
		{".eml", EML},
		{".zip", ZIP},
		{".PDF", PDF}, // case-insensitive
		{"", nil},
		{".", nil},
		{".nope", nil},
		{"pdf", nil}, // leading dot required
	}
	for _, tt := range tests {
		if got := FromExtension(tt.ext); got != tt.want {
			t.Errorf("FromExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestFromMimeType(t *testing.T) {
	tests := []struct {
		mime string
		want *FileType
	}{
		{"application/pdf", PDF},
		{"text/html", HTML},
		{"application/xhtml+xml", HTML}, // alias
		{"text/csv", CSV},
		{"application/csv", CSV}, // alias
		{"application/x-csv", CSV},
		{"text/markdown", MD},
		{"text/x-markdown", MD},
		{"message/rfc822", EML},
		{"application/msword", DOC},
		{"inode/x-empty", EMPTY},
		{"", nil},
		{"application/x-nonexistent", nil},
	}
	for _, tt := range tests {
		if got := FromMimeType(tt.mime); got != tt.want {
			t.Errorf("FromMimeType(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestCanonicalMimeOwnership(t *testing.T) {
	// Every canonical MIME type resolves back to its owner.
	for _, ft := range All() {
		if got := FromMimeType(ft.MimeType()); got != ft {
			t.Errorf("FromMimeType(%q) = %v, want %v", ft.MimeType(), got, ft)
		}
		for _, alias := range ft.AliasMimeTypes() {
			if got := FromMimeType(alias); got != ft {
				t.Errorf("FromMimeType(alias %q) = %v, want %v", alias, got, ft)
			}
		}
	}
}

func TestExtensionsDisjoint(t *testing.T) {
	seen := map[string]string{}
	for _, ft := range All() {
		for _, ext := range ft.Extensions() {
			if owner, dup := seen[ext]; dup {
				t.Errorf("extension %q registered for both %s and %s", ext, owner, ft.Name())
			}
			seen[ext] = ft.Name()
			if !strings.HasPrefix(ext, ".") {
				t.Errorf("extension %q of %s lacks leading dot", ext, ft.Name())
			}
		}
	}
}

func TestPartitionerMetadata(t *testing.T) {
	// Partitionable members resolve both accessors without error.
	for _, ft := range All() {
		fn, fnErr := ft.PartitionerFunction()
		pkg, pkgErr := ft.PartitionerPackage()

		if ft.IsPartitionable() {
			if fnErr != nil || pkgErr != nil {
				t.Errorf("%s: partitionable but metadata errored: %v / %v", ft.Name(), fnErr, pkgErr)
				continue
			}
			if !strings.HasPrefix(fn, "Partition") {
				t.Errorf("%s: function name %q lacks Partition prefix", ft.Name(), fn)
			}
			if pkg == "" {
				t.Errorf("%s: empty partitioner package", ft.Name())
			}
		} else {
			if fnErr == nil || pkgErr == nil {
				t.Errorf("%s: not partitionable but metadata resolved (%q, %q)", ft.Name(), fn, pkg)
			}
		}
	}
}

func TestNotPartitionableError(t *testing.T) {
	for _, ft := range []*FileType{ZIP, EMPTY} {
		if ft.IsPartitionable() {
			t.Fatalf("%s unexpectedly partitionable", ft.Name())
		}
		_, err := ft.PartitionerFunction()
		if err == nil {
			t.Fatalf("%s: PartitionerFunction returned no error", ft.Name())
		}
		// The error names the offending type and the guard property.
		if !strings.Contains(err.Error(), ft.Name()) || !strings.Contains(err.Error(), "IsPartitionable") {
			t.Errorf("%s: undescriptive error %q", ft.Name(), err)
		}
		if _, err := ft.PartitionerPackage(); err == nil {
			t.Errorf("%s: PartitionerPackage returned no error", ft.Name())
		}
	}
}

func TestTemplatedNames(t *testing.T) {
	// Unbound partitionable members derive both names from the shortname.
	tests := []struct {
		ft       *FileType
		wantFunc string
	}{
		{XLSX, "PartitionXlsx"},
		{XLS, "PartitionXlsx"},
		{PPT, "PartitionPpt"},
		{RTF, "PartitionRtf"},
	}
	for _, tt := range tests {
		if _, bound := tt.ft.Partitioner(); bound {
			continue // another test bound a handler; derived name covered there
		}
		fn, err := tt.ft.PartitionerFunction()
		if err != nil {
			t.Fatalf("%s: %v", tt.ft.Name(), err)
		}
		if fn != tt.wantFunc {
			t.Errorf("%s: function name = %q, want %q", tt.ft.Name(), fn, tt.wantFunc)
		}
		pkg, err := tt.ft.PartitionerPackage()
		if err != nil {
			t.Fatalf("%s: %v", tt.ft.Name(), err)
		}
		if pkg != defaultPartitionerPackage {
			t.Errorf("%s: package = %q, want %q", tt.ft.Name(), pkg, defaultPartitionerPackage)
		}
	}
}

func TestSharedShortnames(t *testing.T) {
	if XLS.PartitionerShortname() != "xlsx" || XLSX.PartitionerShortname() != "xlsx" {
		t.Error("xls and xlsx should share the xlsx shortname")
	}
	for _, ft := range []*FileType{BMP, HEIC, JPG, PNG, TIFF} {
		if ft.PartitionerShortname() != "image" {
			t.Errorf("%s: shortname = %q, want image", ft.Name(), ft.PartitionerShortname())
		}
	}
	if ZIP.PartitionerShortname() != "" {
		t.Errorf("zip: shortname = %q, want empty", ZIP.PartitionerShortname())
	}
}

func TestAllSorted(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("empty registry")
	}
	if !sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Name() < all[j].Name() }) {
		t.Error("All() not sorted by name")
	}
	if EML.Compare(HTML) >= 0 || HTML.Compare(XML) >= 0 {
		t.Error("expected eml < html < xml")
	}
	// Snapshot semantics: mutating the returned slice must not corrupt the registry.
	all[0] = nil
	if All()[0] == nil {
		t.Error("All() returned registry-backed slice")
	}
}
