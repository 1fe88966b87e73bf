package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADO_FIELDS_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("SEVENPACE_BASE_URL", "")

	cfg := Load()

	assert.Equal(t, "Feature", cfg.FeatureType)
	assert.Equal(t, 200, cfg.WorkItemBatchSize)
	assert.Equal(t, 3, cfg.WorkersWorkItem)
	assert.Equal(t, 5, cfg.WorkersWorklog)
	assert.Equal(t, 50, cfg.SevenPaceMaxPages)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "0 9 * * MON", cfg.DigestCron)
	assert.False(t, cfg.TrackerConfigured())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ADO_FIELDS_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("ADO_ORG_URL", "https://dev.azure.com/acme/")
	t.Setenv("ADO_PROJECT", "Platform")
	t.Setenv("ADO_PAT", "pat")
	t.Setenv("ADO_TEAMS", "Core, Payments ,")
	t.Setenv("SEVENPACE_BASE_URL", "https://acme.timehub.7pace.com")
	t.Setenv("SEVENPACE_TOKEN", "tok")
	t.Setenv("WORKERS_WORKLOG", "x")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("TELEGRAM_CHAT_IDS", "@pulse_channel")

	cfg := Load()

	assert.Equal(t, "https://dev.azure.com/acme", cfg.ADOOrgURL)
	assert.Equal(t, []string{"Core", "Payments"}, cfg.ADOTeams)
	assert.True(t, cfg.ADOConfigured())
	assert.True(t, cfg.TrackerConfigured())
	assert.Equal(t, 5, cfg.WorkersWorklog, "invalid ints fall back to the default")
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.TelegramChatIDs)
	assert.Equal(t, []string{"@pulse_channel"}, cfg.TelegramChatUsernames)
}

func TestLoad_FieldsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ado_fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("featureType: Epic\nexpenseField: Custom.CapexClass\nteams:\n  - Core\n  - \" Data \"\n"), 0o600))
	t.Setenv("ADO_FIELDS_FILE", path)
	t.Setenv("ADO_TEAMS", "")

	cfg := Load()

	assert.Equal(t, "Epic", cfg.FeatureType)
	assert.Equal(t, "Custom.CapexClass", cfg.ExpenseField)
	assert.Equal(t, []string{"Core", "Data"}, cfg.ADOTeams)
}

func TestLoad_EnvTeamsWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ado_fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams: [Core]\n"), 0o600))
	t.Setenv("ADO_FIELDS_FILE", path)
	t.Setenv("ADO_TEAMS", "Payments")

	assert.Equal(t, []string{"Payments"}, Load().ADOTeams)
}

func TestReadFieldsFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams: [unclosed"), 0o600))
	_, err := ReadFieldsFile(path)
	assert.Error(t, err)
}
