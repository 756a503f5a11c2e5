package filetype

// Built-in file types. Exported vars so dispatch code and tests can refer
// to members directly; identity is pointer identity.
//
// Extension sets are disjoint across members. Aliasing happens through
// shared shortnames instead: XLS and XLSX are distinct members dispatching
// to the same partitioner, and the raster image family all shares the
// "image" shortname.
var (
	BMP = mustRegister(&FileType{
		name:      "bmp",
		mimeType:  "image/bmp",
		aliasMimes: []string{"image/x-ms-bmp"},
		extensions: []string{".bmp"},
		shortname: "image",
	})

	CSV = mustRegister(&FileType{
		name:       "csv",
		mimeType:   "text/csv",
		aliasMimes: []string{"application/csv", "application/x-csv"},
		extensions: []string{".csv"},
		shortname:  "csv",
	})

	DOC = mustRegister(&FileType{
		name:       "doc",
		mimeType:   "application/msword",
		extensions: []string{".doc"},
		shortname:  "doc",
	})

	DOCX = mustRegister(&FileType{
		name:       "docx",
		mimeType:   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		extensions: []string{".docx"},
		shortname:  "docx",
	})

	EML = mustRegister(&FileType{
		name:       "eml",
		mimeType:   "message/rfc822",
		extensions: []string{".eml"},
		shortname:  "email",
	})

	EPUB = mustRegister(&FileType{
		name:       "epub",
		mimeType:   "application/epub",
		aliasMimes: []string{"application/epub+zip"},
		extensions: []string{".epub"},
		shortname:  "epub",
	})

	HEIC = mustRegister(&FileType{
		name:       "heic",
		mimeType:   "image/heic",
		extensions: []string{".heic"},
		shortname:  "image",
	})

	HTML = mustRegister(&FileType{
		name:       "html",
		mimeType:   "text/html",
		aliasMimes: []string{"application/xhtml+xml"},
		extensions: []string{".html", ".htm"},
		shortname:  "html",
		extraPackages: []string{
			"golang.org/x/net",
			"github.com/microcosm-cc/bluemonday",
			"github.com/JohannesKaufmann/html-to-markdown/v2",
		},
		extraName: "html",
	})

	JPG = mustRegister(&FileType{
		name:       "jpg",
		mimeType:   "image/jpeg",
		extensions: []string{".jpg", ".jpeg"},
		shortname:  "image",
	})

	JSON = mustRegister(&FileType{
		name:       "json",
		mimeType:   "application/json",
		extensions: []string{".json", ".jsonl", ".ndjson"},
		shortname:  "json",
	})

	MD = mustRegister(&FileType{
		name:          "md",
		mimeType:      "text/markdown",
		aliasMimes:    []string{"text/x-markdown"},
		extensions:    []string{".md", ".markdown"},
		shortname:     "md",
		extraPackages: []string{"github.com/yuin/goldmark"},
		extraName:     "md",
	})

	ODT = mustRegister(&FileType{
		name:       "odt",
		mimeType:   "application/vnd.oasis.opendocument.text",
		extensions: []string{".odt"},
		shortname:  "odt",
	})

	PDF = mustRegister(&FileType{
		name:          "pdf",
		mimeType:      "application/pdf",
		extensions:    []string{".pdf"},
		shortname:     "pdf",
		extraPackages: []string{"github.com/pdfcpu/pdfcpu"},
		extraName:     "pdf",
	})

	PNG = mustRegister(&FileType{
		name:       "png",
		mimeType:   "image/png",
		extensions: []string{".png"},
		shortname:  "image",
	})

	PPT = mustRegister(&FileType{
		name:       "ppt",
		mimeType:   "application/vnd.ms-powerpoint",
		extensions: []string{".ppt"},
		shortname:  "ppt",
	})

	PPTX = mustRegister(&FileType{
		name:       "pptx",
		mimeType:   "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		extensions: []string{".pptx"},
		shortname:  "pptx",
	})

	RTF = mustRegister(&FileType{
		name:       "rtf",
		mimeType:   "text/rtf",
		aliasMimes: []string{"application/rtf"},
		extensions: []string{".rtf"},
		shortname:  "rtf",
	})

	TIFF = mustRegister(&FileType{
		name:       "tiff",
		mimeType:   "image/tiff",
		extensions: []string{".tif", ".tiff"},
		shortname:  "image",
	})

	TSV = mustRegister(&FileType{
		name:       "tsv",
		mimeType:   "text/tsv",
		aliasMimes: []string{"text/tab-separated-values"},
		extensions: []string{".tsv", ".tab"},
		shortname:  "tsv",
	})

	TXT = mustRegister(&FileType{
		name:       "txt",
		mimeType:   "text/plain",
		extensions: []string{".txt", ".text", ".log"},
		shortname:  "text",
	})

	XLS = mustRegister(&FileType{
		name:       "xls",
		mimeType:   "application/vnd.ms-excel",
		extensions: []string{".xls"},
		shortname:  "xlsx",
	})

	XLSX = mustRegister(&FileType{
		name:       "xlsx",
		mimeType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		extensions: []string{".xlsx"},
		shortname:  "xlsx",
	})

	XML = mustRegister(&FileType{
		name:       "xml",
		mimeType:   "application/xml",
		aliasMimes: []string{"text/xml"},
		extensions: []string{".xml"},
		shortname:  "xml",
	})

	// ZIP and EMPTY are recognised but never partitioned: archives are
	// expanded upstream, empty files carry nothing to extract.
	ZIP = mustRegister(&FileType{
		name:       "zip",
		mimeType:   "application/zip",
		aliasMimes: []string{"application/x-zip-compressed"},
		extensions: []string{".zip"},
	})

	EMPTY = mustRegister(&FileType{
		name:     "empty",
		mimeType: "inode/x-empty",
	})
)
