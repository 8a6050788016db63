package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-approval/internal/auth"
)

const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)
	t.Setenv("TIMESHEET_LOGGER_OUTPUT_PATH", "stderr")

	out, err := execute(t, "token", "--account", "acct-1", "--org", "org-1", "--name", "Ada")
	require.NoError(t, err)

	issuer, err := auth.NewIssuer(auth.Config{Base64Secret: testSecret, Issuer: "timesheetd"})
	require.NoError(t, err)

	claims, err := issuer.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID())
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, "Ada", claims.Name)
}

func TestTokenCommand_RequiresAccount(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)

	_, err := execute(t, "token", "--org", "org-1")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)
	t.Setenv("TIMESHEET_LOGGER_OUTPUT_PATH", "stderr")
	t.Setenv("TIMESHEET_DB_PATH", filepath.Join(t.TempDir(), "timesheets.db"))

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migration(s)")
}

func TestExportCommand_RejectsNonMonday(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)

	_, err := execute(t, "export", "--week", "2024-03-05", "--account", "a", "--org", "o")
	assert.Error(t, err)
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", "")

	_, err := execute(t, "migrate")
	assert.Error(t, err)
}
