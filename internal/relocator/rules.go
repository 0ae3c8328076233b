package relocator

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

// Rules maps normalised file extensions to destination roots.
// A Rules value is immutable once built and safe for concurrent use.
type Rules struct {
	roots map[string]string
	// maxDots is the largest number of dots in any key; it bounds Classify.
	maxDots int
}

// NormalizeExt lower-cases ext, converts it to NFC and ensures a leading dot.
// "PDF", ".Pdf" and ".pdf" all normalise to ".pdf". Whitespace is significant:
// "report.pdf " does not end in ".pdf".
func NormalizeExt(ext string) string {
	ext = strings.ToLower(norm.NFC.String(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NewRules builds the classification table from an extension → root mapping.
// Keys are trimmed before normalisation; relative roots are resolved against
// watchRoot. Keys that are empty, contain a path separator or collide after
// normalisation are rejected.
func NewRules(mapping map[string]string, watchRoot string) (Rules, error) {
	if len(mapping) == 0 {
		return Rules{}, domainerrors.Config("file_paths must map at least one extension")
	}

	// Iterate in key order so duplicate errors are deterministic.
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rules := Rules{roots: make(map[string]string, len(mapping))}
	seen := make(map[string]string, len(mapping))
	for _, key := range keys {
		ext := NormalizeExt(strings.TrimSpace(key))
		if len(ext) < 2 || strings.ContainsAny(ext, `/\`) {
			return Rules{}, domainerrors.Configf("file_paths: invalid extension %q", key)
		}
		if prev, ok := seen[ext]; ok {
			return Rules{}, domainerrors.Configf("file_paths: %q and %q both normalise to %q", prev, key, ext)
		}
		seen[ext] = key

		root := strings.TrimSpace(mapping[key])
		if root == "" {
			return Rules{}, domainerrors.Configf("file_paths: empty destination for %q", key)
		}
		if !filepath.IsAbs(root) {
			root = filepath.Join(watchRoot, root)
		}
		rules.roots[ext] = filepath.Clean(root)
		rules.maxDots = max(rules.maxDots, strings.Count(ext, "."))
	}

	return rules, nil
}

// Lookup returns the destination root for ext. ext is normalised first.
func (r Rules) Lookup(ext string) (string, bool) {
	root, ok := r.roots[NormalizeExt(ext)]
	return root, ok
}

// Classify finds the rule for a file name. The longest matching extension
// wins, so "backup.tar.gz" matches ".tar.gz" before ".gz". The returned ext is
// the matching suffix of name in its original case.
func (r Rules) Classify(name string) (ext, root string, ok bool) {
	dots := 0
	for i := len(name) - 1; i >= 0 && dots < r.maxDots; i-- {
		if name[i] != '.' {
			continue
		}
		dots++
		// Scanning leftwards, so each later hit is longer than the previous one.
		if found, hit := r.Lookup(name[i:]); hit {
			ext, root, ok = name[i:], found, true
		}
	}
	return ext, root, ok
}

// Extensions returns the normalised extensions in sorted order.
func (r Rules) Extensions() []string {
	exts := make([]string, 0, len(r.roots))
	for ext := range r.roots {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Len returns the number of rules.
func (r Rules) Len() int {
	return len(r.roots)
}
