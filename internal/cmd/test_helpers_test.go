package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
)

type testEnv struct {
	home    string
	dataDir string
	dbPath  string
}

// setupTestEnv points every texo path at a temporary directory and clears
// environment that would leak in from the developer's shell.
func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	env := testEnv{
		home:    filepath.Join(root, "home"),
		dataDir: filepath.Join(root, "data"),
		dbPath:  filepath.Join(root, "data", "texo", "texo.db"),
	}

	t.Setenv("HOME", env.home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", env.dataDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("TEXO_DB", env.dbPath)
	for _, k := range []string{"TEXO_EDITOR", "TEXO_DEBUG", "TEXO_LOG_LEVEL", "TEXO_PICKER_BACKEND", "VISUAL", "EDITOR", "COLUMNS"} {
		t.Setenv(k, "")
	}

	oldNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = oldNoColor })

	withRootGlobals(t)
	return env
}

// withRootGlobals resets flag-bound package state around a test.
func withRootGlobals(t *testing.T) {
	t.Helper()
	old := struct {
		printOnly bool
		colorMode string
		listLimit int
		listJSON  bool
	}{printOnly, colorMode, listLimit, listJSON}

	printOnly, colorMode, listLimit, listJSON = false, "auto", 0, false

	t.Cleanup(func() {
		printOnly = old.printOnly
		colorMode = old.colorMode
		listLimit = old.listLimit
		listJSON = old.listJSON
	})
}

// executeTexo runs the root command with args and returns what it wrote.
func executeTexo(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	withRootGlobals(t)

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("content\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}
