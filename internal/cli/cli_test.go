package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsim/panelsim/internal/session"
)

func TestBudgetFromFlags(t *testing.T) {
	b, err := budgetFromFlags(5, 0)
	require.NoError(t, err)
	assert.Equal(t, session.QuestionBudget(5), b)

	b, err = budgetFromFlags(5, 10)
	require.NoError(t, err)
	assert.True(t, b.Timed())
	assert.Equal(t, 10, b.Minutes)

	_, err = budgetFromFlags(0, 0)
	assert.Error(t, err)
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []string{"CEO", "CFO"}, normalizeRoles([]string{" ceo", "", "Cfo "}))
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "Panel session", sessionTitle(""))
	assert.Equal(t, "Panel session: Acme", sessionTitle("Acme"))
}

func TestEnsureGitignore_AppendsMissingEntriesOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("bin/\n.env\n"), 0644))

	require.NoError(t, ensureGitignore(dir))
	require.NoError(t, ensureGitignore(dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Added by panelsim init\n")
	assert.Contains(t, content, ".panelsim/runs/\n")
	assert.Equal(t, 1, strings.Count(content, ".panelsim/log.jsonl"))
	assert.Equal(t, 1, strings.Count(content, ".env\n"))
}

func TestLatestRun(t *testing.T) {
	dir := t.TempDir()
	_, err := latestRun(dir)
	assert.Error(t, err)

	for _, name := range []string{"20260101-090000", "20260301-120000", "20260201-100000"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
	}
	got, err := latestRun(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260301-120000"), got)
}
