package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Camp    string `json:"camp"`
	Format  string `json:"format"`
	Timeout int    `json:"timeout"`
}

func writeFile(t testing.TB, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kitt.json5"), `{
		// comments are allowed
		camp: "1133",
		format: "pdf",
		timeout: 30,
	}`)
	writeFile(t, filepath.Join(dir, "kitt.local.json5"), `{ format: "md" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "kitt.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Camp: "1133", Format: "md", Timeout: 30}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kitt.local.json5"), `{ camp: "42" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "kitt.json5"))
	require.NoError(t, err)
	require.Equal(t, "42", cfg.Camp)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "kitt.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kitt.json5"), `{ camp: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "kitt.json5"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "kitt.local.json5"), localPath(filepath.Join("a", "kitt.json5")))
	require.Equal(t, "telemetry.local", localPath("telemetry"))
}
