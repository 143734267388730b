package ingest

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/john-shalamon/exam-hall-system/constants"
)

// AllowedExt checks if a file extension is one the pipeline can ingest.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}

// Filter decides which discovered files are handed to the pipeline. A file
// must carry a supported suffix and, when Include is set, match one of its
// doublestar patterns relative to the root it was found under.
type Filter struct {
	Include    []string
	SkipHidden bool
}

// Validate rejects malformed include patterns up front.
func (f Filter) Validate() error {
	for _, p := range f.Include {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

func (f Filter) Match(root, path string) bool {
	if !AllowedExt(filepath.Ext(path)) {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if f.SkipHidden && hiddenSegment(rel) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func hiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if IsHidden(seg) {
			return true
		}
	}
	return false
}

type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid include pattern " + `"` + e.Pattern + `"`
}
