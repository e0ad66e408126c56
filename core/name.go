package img

import (
	"io/fs"
	"strings"
)

// EntryName returns the archive entry name for a file path: its last
// element, with both '/' and '\' treated as separators.
//
// It performs the following transformations:
//   - Strips directories: "mods/cars/taxi.dff" → "taxi.dff"
//   - Accepts Windows separators: `mods\taxi.dff` → "taxi.dff"
//   - Strips trailing separators: "mods/taxi.dff/" → "taxi.dff"
//   - Converts empty input to "": "" → "", "/" → ""
//
// The result is not validated; see ValidName.
func EntryName(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// ValidName reports whether name can be used as a file name inside a
// destination directory without escaping it.
func ValidName(name string) bool {
	return fs.ValidPath(name) && name != "." && !strings.ContainsAny(name, `/\:`)
}
