package github

import (
	"strings"

	"github.com/google/go-github/v57/github"
)

// CodeExtensions lists the file suffixes treated as source code
var CodeExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".py", ".java", ".cpp", ".c",
	".html", ".css", ".php", ".rb", ".go",
}

// ExcludedDirs are matched as substrings anywhere in the path
var ExcludedDirs = []string{
	"node_modules",
	"dist",
	"build",
	".next",
	"out",
	"coverage",
	"__pycache__",
}

// IsCodeFile reports whether path passes both the exclude-list and the
// extension allow-list
func IsCodeFile(path string) bool {
	for _, dir := range ExcludedDirs {
		if strings.Contains(path, dir) {
			return false
		}
	}

	lower := strings.ToLower(path)
	for _, ext := range CodeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FilterCodeFiles keeps blob entries whose path is a code file
func FilterCodeFiles(entries []*github.TreeEntry) []*github.TreeEntry {
	files := make([]*github.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.GetType() != "blob" {
			continue
		}
		if IsCodeFile(e.GetPath()) {
			files = append(files, e)
		}
	}
	return files
}
