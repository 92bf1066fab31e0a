package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTimeframeCommand_Table(t *testing.T) {
	timeframeType = ""

	out, err := execute(t, "timeframe")
	require.NoError(t, err)
	assert.Contains(t, out, "Directional")
	assert.Contains(t, out, "Medium")
	assert.Contains(t, out, "Unknown")
}

func TestTimeframeCommand_SingleWindow(t *testing.T) {
	t.Cleanup(func() { timeframeType, timeframeConfidence = "", 0.5 })

	out, err := execute(t, "timeframe", "--type", "LEAP", "--confidence", "0.9")
	require.NoError(t, err)
	assert.Contains(t, out, "365")
	assert.Contains(t, out, "547")
	assert.Contains(t, out, "456")
}

func TestTimeframeCommand_BadConfidence(t *testing.T) {
	t.Cleanup(func() { timeframeType, timeframeConfidence = "", 0.5 })

	_, err := execute(t, "timeframe", "--type", "Income", "--confidence", "1.5")
	assert.Error(t, err)
}

func TestCatalogCommand_Embedded(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "us_equity_options")
	assert.Contains(t, out, "catalog is valid")
}

func TestCatalogCommand_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meta:\n  catalog_id: x\n  colour: red\n"), 0o644))

	_, err := execute(t, "catalog", path)
	assert.Error(t, err)
}
