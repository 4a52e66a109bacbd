package photo

import (
	"path/filepath"
	"strings"
)

// DefaultPrefix is prepended to every exported file name
const DefaultPrefix = "arxaplan"

// ExportName builds <prefix>_[HD_]<basename>.<ext> from the uploaded file name.
func ExportName(prefix string, hd bool, original string, f Format) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("_")
	if hd {
		b.WriteString("HD_")
	}
	b.WriteString(base)
	b.WriteString(".")
	b.WriteString(f.Ext())
	return b.String()
}
