package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildTexo compiles the texo binary into a temp directory.
func buildTexo(t *testing.T) string {
	t.Helper()

	binName := "texo"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return binPath
}

// texoEnv returns an environment that keeps texo's files inside dir.
func texoEnv(dir string) []string {
	env := []string{
		"HOME=" + filepath.Join(dir, "home"),
		"XDG_CONFIG_HOME=" + filepath.Join(dir, "config"),
		"XDG_DATA_HOME=" + filepath.Join(dir, "data"),
		"XDG_CACHE_HOME=" + filepath.Join(dir, "cache"),
		"TEXO_DB=" + filepath.Join(dir, "data", "texo.db"),
		"NO_COLOR=1",
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATH=") || strings.HasPrefix(kv, "SYSTEMROOT=") {
			env = append(env, kv)
		}
	}
	return env
}

func writeTestFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("content\n"), 0o644)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestIntegration_Binary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	bin := buildTexo(t)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	env := texoEnv(dir)

	texo := func(args ...string) (string, string, int) {
		cmd := exec.Command(bin, args...)
		cmd.Env = env
		cmd.Dir = dir
		var stdout, stderr strings.Builder
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		return stdout.String(), stderr.String(), exitCode(err)
	}

	file := filepath.Join(dir, "home", "projects", "notes.md")
	if err := writeTestFile(file); err != nil {
		t.Fatal(err)
	}

	t.Run("version", func(t *testing.T) {
		out, _, code := texo("version")
		if code != 0 || !strings.Contains(out, "texo ") {
			t.Fatalf("version: code=%d out=%q", code, out)
		}
	})

	t.Run("register_by_path", func(t *testing.T) {
		out, _, code := texo("--print", file)
		if code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
		if strings.TrimSpace(out) != file {
			t.Errorf("printed %q, want %q", out, file)
		}
	})

	t.Run("resolve_keyword", func(t *testing.T) {
		out, _, code := texo("--print", "NOTES")
		if code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
		if strings.TrimSpace(out) != file {
			t.Errorf("printed %q, want %q", out, file)
		}
	})

	t.Run("not_found_print_mode", func(t *testing.T) {
		_, stderr, code := texo("--print", "zzz")
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(stderr, "no file matching") {
			t.Errorf("stderr = %q", stderr)
		}
	})

	t.Run("not_found_open_mode", func(t *testing.T) {
		_, _, code := texo("zzz")
		if code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
	})

	t.Run("list", func(t *testing.T) {
		out, _, code := texo("list")
		if code != 0 {
			t.Fatalf("exit code = %d", code)
		}
		if !strings.Contains(out, file) {
			t.Errorf("list output missing %s:\n%s", file, out)
		}
	})

	t.Run("store_unavailable", func(t *testing.T) {
		bad := append([]string(nil), env...)
		bad = append(bad, "TEXO_DB="+filepath.Join(dir, "home"))
		cmd := exec.Command(bin, "--print", "x")
		cmd.Env = bad
		out, err := cmd.CombinedOutput()
		if exitCode(err) != 1 {
			t.Fatalf("exit code = %d, want 1\n%s", exitCode(err), out)
		}
		if !strings.Contains(string(out), "store unavailable") {
			t.Errorf("output = %q", out)
		}
	})
}
