package relocator

import (
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

const (
	// DateLayout names the per-day destination folder.
	DateLayout = "2006-01-02"
	// StampLayout is appended to colliding names.
	StampLayout = "20060102150405"
	// maxCounter bounds the same-second disambiguation counter.
	maxCounter = 999
)

// DayFolder returns the destination folder for files relocated at now.
func DayFolder(root string, now time.Time) string {
	return filepath.Join(root, now.Format(DateLayout))
}

// Candidates yields destination paths for name in folder, in preference order:
//
//	report.pdf
//	report_20261019093005.pdf
//	report_20261019093005_1.pdf ... report_20261019093005_999.pdf
//
// ext is the suffix of name kept after the stamp (".pdf", ".tar.gz").
func Candidates(folder, name, ext string, now time.Time) iter.Seq[string] {
	base := strings.TrimSuffix(name, ext)
	stamp := base + "_" + now.Format(StampLayout)

	return func(yield func(string) bool) {
		if !yield(filepath.Join(folder, name)) {
			return
		}
		if !yield(filepath.Join(folder, stamp+ext)) {
			return
		}
		for n := 1; n <= maxCounter; n++ {
			if !yield(filepath.Join(folder, stamp+"_"+strconv.Itoa(n)+ext)) {
				return
			}
		}
	}
}

// ResolveDestination walks Candidates and hands the first name for which
// exists reports false to claim. A claim error wrapping fs.ErrExist means the
// name was taken in the meantime, so the next candidate is tried. Any other
// claim error is returned together with the name it was for. When every
// candidate is taken the returned name is empty.
func ResolveDestination(folder, name, ext string, now time.Time, exists func(string) bool, claim func(string) error) (string, error) {
	for dest := range Candidates(folder, name, ext, now) {
		if exists(dest) {
			continue
		}
		err := claim(dest)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return dest, err
	}
	return "", domainerrors.IO("no free destination name for " + name + " in " + folder)
}
