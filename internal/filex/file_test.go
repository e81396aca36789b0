package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesDirectoryUnderBase(t *testing.T) {
	base := t.TempDir()

	got, err := EnsureDir(base, "downloads")
	require.NoError(t, err)

	want := filepath.Join(base, "downloads")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_EmptyBaseIsWorkingDir(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)

	got, err := EnsureDir("", "downloads")
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(wd, "downloads"), got)
}

func TestEnsureDir_Idempotent(t *testing.T) {
	base := t.TempDir()

	first, err := EnsureDir(base, "downloads")
	require.NoError(t, err)

	second, err := EnsureDir(base, "downloads")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "downloads"), []byte("x"), 0o660))

	_, err := EnsureDir(base, "downloads")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"report.txt":          "report.txt",
		"../../etc/passwd":    "passwd",
		`..\..\boot.ini`:      "boot.ini",
		"/abs/path/photo.png": "photo.png",
		"":                    "",
		"..":                  "",
		"/":                   "",
	}
	for in, want := range tests {
		require.Equal(t, want, SafeName(in), "SafeName(%q)", in)
	}
}

func TestWriteNew_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()

	first, err := WriteNew(dir, "report.txt", []byte("one"), 0o600)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "report.txt"), first)

	second, err := WriteNew(dir, "report.txt", []byte("two"), 0o600)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "report (1).txt"), second)

	third, err := WriteNew(dir, "noext", []byte("three"), 0o600)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "noext"), third)

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Equal(t, "one", string(b))

	b, err = os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, "two", string(b))
}

func TestWriteNew_MissingDir(t *testing.T) {
	_, err := WriteNew(filepath.Join(t.TempDir(), "absent"), "a.txt", []byte("x"), 0o600)
	require.Error(t, err)
}
