package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string    // Bundled name, or the file name without .css
	Path    string    // Empty for bundled themes
	CSS     string    // Imports already inlined
	ModTime time.Time // Zero for bundled themes
}

// Bundled reports whether the theme came from the embedded set.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// NewTheme loads a CSS file, inlining its imports.
func NewTheme(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// NewBundledTheme returns the embedded theme called name.
func NewBundledTheme(name string) (*Theme, error) {
	css, ok := GetEmbeddedTheme(name)
	if !ok {
		return nil, fmt.Errorf("unknown theme %q (bundled: %s)", name, strings.Join(ListEmbeddedThemes(), ", "))
	}
	return &Theme{Name: name, CSS: ProcessImports(css, "", nil)}, nil
}

// Resolve turns the appearance.theme setting into a Theme. A value ending
// in .css or containing a path separator names a file (relative to baseDir);
// anything else is a bundled theme name.
func Resolve(value, baseDir string) (*Theme, error) {
	if value == "" {
		value = DefaultThemeName
	}
	if !strings.HasSuffix(value, ".css") && !strings.ContainsRune(value, os.PathSeparator) {
		return NewBundledTheme(value)
	}

	path := value
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return NewTheme(strings.TrimSuffix(filepath.Base(path), ".css"), path)
}

// ProcessImports resolves and inlines @import statements in CSS relative to
// baseDir. Imports that are not on disk fall back to embedded partials and
// themes. seen guards against cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		submatch := importRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		importPath := submatch[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import prevented: " + importPath + " */"
		}
		seen[fullPath] = true

		if baseDir == "" {
			return importEmbedded(importPath, nil, seen)
		}
		imported, err := os.ReadFile(fullPath)
		if err != nil {
			return importEmbedded(importPath, err, seen)
		}
		return "/* imported: " + importPath + " */\n" +
			ProcessImports(string(imported), filepath.Dir(fullPath), seen)
	})
}

func importEmbedded(importPath string, readErr error, seen map[string]bool) string {
	baseName := filepath.Base(importPath)
	if strings.HasPrefix(baseName, "_") {
		if css, ok := GetEmbeddedPartial(baseName); ok {
			return "/* imported (embedded): " + importPath + " */\n" + css
		}
	}
	if css, ok := GetEmbeddedTheme(strings.TrimSuffix(baseName, ".css")); ok {
		return "/* imported (embedded): " + importPath + " */\n" + ProcessImports(css, "", seen)
	}
	if readErr == nil {
		readErr = os.ErrNotExist
	}
	return "/* import failed: " + importPath + " - " + readErr.Error() + " */"
}

// Reload re-reads a file theme. It reports whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled() {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	css, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	old := t.CSS
	t.CSS = ProcessImports(string(css), filepath.Dir(t.Path), nil)
	t.ModTime = info.ModTime()
	return old != t.CSS, nil
}
