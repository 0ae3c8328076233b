package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/instance"
	"github.com/listenupapp/dropsort/internal/relocator"
)

type cliTestEnv struct {
	base       string
	downloads  string
	docs       string
	pictures   string
	configPath string
	lockDir    string
}

func setupCLITestEnv(t *testing.T) cliTestEnv {
	t.Helper()

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "DROPSORT_") {
			t.Setenv(key, "")
			os.Unsetenv(key) //nolint:errcheck // Restored by t.Setenv
		}
	}

	base := t.TempDir()
	env := cliTestEnv{
		base:       base,
		downloads:  filepath.Join(base, "downloads"),
		docs:       filepath.Join(base, "docs"),
		pictures:   filepath.Join(base, "pictures"),
		configPath: filepath.Join(base, "config.json"),
		lockDir:    filepath.Join(base, "locks"),
	}
	require.NoError(t, os.Mkdir(env.downloads, 0o755))

	content := fmt.Sprintf(`{
  "downloads_dir": %q,
  "file_paths": {".pdf": %q, ".jpg": "../pictures"},
  "settle_delay": "10ms"
}`, env.downloads, env.docs)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o644))

	return env
}

func (e cliTestEnv) runCLI(ctx context.Context, args ...string) (string, string, error) {
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{
		"--config", e.configPath,
		"--env-file", filepath.Join(e.base, "missing.env"),
		"--lock-dir", e.lockDir,
		"--log-format", "text",
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func (e cliTestEnv) write(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.downloads, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	return path
}

func today() string {
	return time.Now().Format(relocator.DateLayout)
}

func TestRulesCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.runCLI(context.Background(), "rules")
	require.NoError(t, err)

	assert.Contains(t, out, "Extension")
	assert.Contains(t, out, ".pdf")
	assert.Contains(t, out, env.docs)
	assert.Contains(t, out, filepath.Join(env.pictures, today()))
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.runCLI(context.Background(), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Extensions: 2")
	assert.Contains(t, out, "Settle delay: 10ms")
	assert.Contains(t, out, "Configuration valid")
}

func TestConfigValidate_Invalid(t *testing.T) {
	env := setupCLITestEnv(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte(`{"file_paths": {".pdf": "/tmp"}}`), 0o644))

	_, _, err := env.runCLI(context.Background(), "config", "validate")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err, io.Discard))
}

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.base, "new", "config.toml")

	out, _, err := env.runCLI(context.Background(), "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample rules")
	assert.FileExists(t, target)

	_, _, err = env.runCLI(context.Background(), "config", "init", "--path", target)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err, io.Discard))
}

func TestSweepCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.write(t, "report.pdf")
	env.write(t, "photo.jpg")
	leftover := env.write(t, "notes.xyz")

	out, _, err := env.runCLI(context.Background(), "sweep")
	require.NoError(t, err)

	assert.Contains(t, out, "| Moved | Skipped | Failed |")
	assert.FileExists(t, filepath.Join(env.docs, today(), "report.pdf"))
	assert.FileExists(t, filepath.Join(env.pictures, today(), "photo.jpg"))
	assert.FileExists(t, leftover)
}

func TestSweepCommand_AlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := instance.Acquire(env.lockDir, env.downloads)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Release() })

	src := env.write(t, "report.pdf")

	_, _, err = env.runCLI(context.Background(), "sweep")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err, io.Discard))
	assert.FileExists(t, src)
}

func TestWatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.write(t, "existing.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		stderr string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		_, stderr, err := env.runCLI(ctx, "watch", "--sweep")
		done <- result{stderr, err}
	}()

	fileAppears := func(path string) func() bool {
		return func() bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}

	// The sweep only runs once the watch is established.
	require.Eventually(t, fileAppears(filepath.Join(env.docs, today(), "existing.pdf")), 5*time.Second, 20*time.Millisecond)

	env.write(t, "photo.jpg")
	require.Eventually(t, fileAppears(filepath.Join(env.pictures, today(), "photo.jpg")), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, 0, exitCode(res.err, io.Discard))
		assert.Contains(t, res.stderr, "dropsort stopped")
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}

	// The lock is released on the way out.
	lock, err := instance.Acquire(env.lockDir, env.downloads)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"interrupted", fmt.Errorf("watch: %w", context.Canceled), 0},
		{"plain error", errors.New("boom"), 1},
		{"config", domainerrors.Config("bad rules"), 2},
		{"validation", domainerrors.Validation("bad field"), 2},
		{"already running", domainerrors.AlreadyRunning("busy"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.want, exitCode(tt.err, &buf))
			if tt.want == 0 {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), "dropsort: ")
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil, false))

	out := renderTable(
		[]string{"Extension", "Destination"},
		[][]string{{".pdf", "/docs"}, {".jpg"}},
		[]columnAlignment{alignLeft, alignRight},
		false,
	)
	assert.Contains(t, out, "Extension", "headers keep their spelling")
	assert.NotContains(t, out, "EXTENSION")
	assert.Contains(t, out, ".pdf")
	assert.Contains(t, out, "+-")
	assert.Equal(t, 6, strings.Count(out, "\n")+1, "header, two rows and three rules")
}
