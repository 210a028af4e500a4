package fulfillment

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// ArchiveEntry is one file destined for the download archive.
type ArchiveEntry struct {
	Name string
	R    io.Reader
}

// BuildArchive streams entries into a ZIP archive. Duplicate names get a
// numeric suffix so no entry silently overwrites another.
func BuildArchive(w io.Writer, entries []ArchiveEntry) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		name := sanitizeEntryName(entry.Name)
		if n := seen[name]; n > 0 {
			name = dedupeName(name, n)
		}
		seen[sanitizeEntryName(entry.Name)]++

		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
		if _, err := io.Copy(fw, entry.R); err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "/") || strings.HasPrefix(name, "../") {
		name = strings.TrimPrefix(name, "/")
		name = strings.TrimPrefix(name, "../")
	}
	name = strings.ReplaceAll(name, "/../", "/")
	if name == "" {
		name = "photo"
	}
	return name
}

func dedupeName(name string, n int) string {
	if dot := strings.LastIndex(name, "."); dot > 0 {
		return fmt.Sprintf("%s-%d%s", name[:dot], n, name[dot:])
	}
	return fmt.Sprintf("%s-%d", name, n)
}
