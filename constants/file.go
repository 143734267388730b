package constants

import "strings"

// Format is the declared format of a source artifact, derived from its name suffix.
type Format string

const (
	FormatDelimited   Format = "delimited-text"
	FormatSpreadsheet Format = "spreadsheet-binary"
	FormatImage       Format = "image"
)

// TabularExtensions are the suffixes the tabular decoder accepts (lowercase, without '.').
var TabularExtensions = map[string]Format{
	"csv":  FormatDelimited,
	"xlsx": FormatSpreadsheet,
	"xls":  FormatSpreadsheet,
}

// ImageExtensions are the suffixes handed to the OCR engine.
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"heic": {},
	"heif": {},
}

// AllowedExtensions holds every suffix accepted for ingestion.
var AllowedExtensions = func() map[string]struct{} {
	m := make(map[string]struct{}, len(TabularExtensions)+len(ImageExtensions))
	for ext := range TabularExtensions {
		m[ext] = struct{}{}
	}
	for ext := range ImageExtensions {
		m[ext] = struct{}{}
	}
	return m
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the format for a normalized extension, or "" when unsupported.
func MapExtToFormat(ext string) Format {
	if f, ok := TabularExtensions[ext]; ok {
		return f
	}
	if _, ok := ImageExtensions[ext]; ok {
		return FormatImage
	}
	return ""
}

// IsHEICExt reports whether ext needs conversion before OCR.
func IsHEICExt(ext string) bool {
	return ext == "heic" || ext == "heif"
}
