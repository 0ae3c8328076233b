package relocator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{".pdf", ".pdf"},
		{".PDF", ".pdf"},
		{"pdf", ".pdf"},
		{".Jpg", ".jpg"},
		{".pdf ", ".pdf "},
		{".tar.GZ", ".tar.gz"},
		{"", ""},
		// "e" followed by a combining acute accent composes to "é".
		{".cafe\u0301", ".caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeExt(tt.in))
		})
	}
}

func TestNewRules(t *testing.T) {
	rules, err := NewRules(map[string]string{
		".pdf": "/home/me/Documents",
		"JPG":  "/home/me/Pictures/",
	}, "/downloads")
	require.NoError(t, err)

	assert.Equal(t, 2, rules.Len())
	assert.Equal(t, []string{".jpg", ".pdf"}, rules.Extensions())

	root, ok := rules.Lookup(".PDF")
	assert.True(t, ok)
	assert.Equal(t, "/home/me/Documents", root)

	root, ok = rules.Lookup("jpg")
	assert.True(t, ok)
	assert.Equal(t, "/home/me/Pictures", root, "roots are cleaned")

	_, ok = rules.Lookup(".exe")
	assert.False(t, ok)
}

func TestNewRules_RelativeRootsResolveAgainstWatchRoot(t *testing.T) {
	rules, err := NewRules(map[string]string{".pdf": "../docs", ".jpg": "pictures"}, "/downloads")
	require.NoError(t, err)

	root, _ := rules.Lookup(".pdf")
	assert.Equal(t, filepath.Clean("/docs"), root)

	root, _ = rules.Lookup(".jpg")
	assert.Equal(t, filepath.Join("/downloads", "pictures"), root)
}

func TestNewRules_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[string]string
	}{
		{"empty mapping", map[string]string{}},
		{"nil mapping", nil},
		{"bare dot", map[string]string{".": "/docs"}},
		{"separator in key", map[string]string{".a/b": "/docs"}},
		{"empty destination", map[string]string{".pdf": "  "}},
		{"duplicate after normalisation", map[string]string{".PDF": "/a", "pdf": "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRules(tt.mapping, "/downloads")
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrConfig))
		})
	}
}

func TestRules_Classify(t *testing.T) {
	rules, err := NewRules(map[string]string{
		".pdf":    "/docs",
		".gz":     "/compressed",
		".tar.gz": "/archives",
	}, "/downloads")
	require.NoError(t, err)

	tests := []struct {
		name     string
		wantExt  string
		wantRoot string
		wantOK   bool
	}{
		{"report.pdf", ".pdf", "/docs", true},
		{"REPORT.PDF", ".PDF", "/docs", true},
		{"report.v2.pdf", ".pdf", "/docs", true},
		{"backup.tar.gz", ".tar.gz", "/archives", true},
		{"backup.TAR.GZ", ".TAR.GZ", "/archives", true},
		{"log.gz", ".gz", "/compressed", true},
		{"a.b.c.gz", ".gz", "/compressed", true},
		{"setup.exe", "", "", false},
		{"report.pdf ", "", "", false},
		{"report. pdf", "", "", false},
		{"README", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, root, ok := rules.Classify(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantExt, ext)
			assert.Equal(t, tt.wantRoot, root)
		})
	}
}

func TestNewRules_TrimsConfiguredKeys(t *testing.T) {
	rules, err := NewRules(map[string]string{" .Jpg ": "/pictures"}, "/downloads")
	require.NoError(t, err)

	assert.Equal(t, []string{".jpg"}, rules.Extensions())

	_, root, ok := rules.Classify("photo.jpg")
	require.True(t, ok)
	assert.Equal(t, "/pictures", root)

	_, _, ok = rules.Classify("photo.jpg ")
	assert.False(t, ok, "trailing whitespace in a file name is part of its extension")
}
