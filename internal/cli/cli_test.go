package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../api/handlers/testdata/statement.ofx"

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GCS_BUCKET", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportThenList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "import", fixture)
	require.NoError(t, err, out)
	assert.Contains(t, out, "OFX file processed successfully.")
	assert.Contains(t, out, "transactions stored:    2")

	out, err = run(t, "import", fixture)
	require.NoError(t, err, out)
	assert.Contains(t, out, "duplicates skipped:     2")

	out, err = run(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "TESTBANK - 9876543210 (CHECKING)")

	out, err = run(t, "transactions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2024-01-15")
	assert.Contains(t, lines[1], "1000.00")
	assert.Contains(t, lines[2], "-50.00")

	out, err = run(t, "transactions", "--limit", "1", "--start-date", "2024-01-01", "--end-date", "2024-01-10")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee Shop")
	assert.NotContains(t, out, "Paycheck")
}

func TestTransactionsRejectsBadFilter(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "transactions", "--limit", "0")
	assert.Error(t, err)

	_, err = run(t, "transactions", "--start-date", "2024/01/01")
	assert.Error(t, err)
}

func TestImportRejectsOtherExtensions(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "import", "../../go.mod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only .ofx files are accepted")
}

func TestCategoriesEmpty(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
}
