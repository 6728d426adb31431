package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hubwatch/internal/adapters/staterepo"
	"github.com/bnema/hubwatch/internal/domain"
)

func executeCLI(t *testing.T, statePath string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HUBWATCH_STATE_PATH", statePath)

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeStateFixture(t *testing.T, statePath string) {
	t.Helper()

	repo, err := staterepo.NewRepository(statePath)
	require.NoError(t, err)

	_, err = repo.Commit(context.Background(), func(s domain.State) (domain.State, bool) {
		s.Orgs["Qwen"] = domain.OrgState{Models: []domain.ModelID{"Qwen/Qwen3-32B", "Qwen/Qwen3-8B"}}
		s.Orgs["deepseek-ai"] = domain.OrgState{Models: []domain.ModelID{"deepseek-ai/DeepSeek-V3"}}
		return s, true
	})
	require.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, filepath.Join(t.TempDir(), "state.toml"), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestOrgsCommandListsDefaults(t *testing.T) {
	stdout, _, err := executeCLI(t, filepath.Join(t.TempDir(), "state.toml"), "orgs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Qwen")
	assert.Contains(t, stdout, "deepseek-ai")
}

func TestStatusCommandRendersState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	stdout, _, err := executeCLI(t, statePath, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Qwen")
	assert.Contains(t, stdout, "known models: 3")
	assert.Contains(t, stdout, "not polled yet")
}

func TestStatusCommandJSONOutput(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	stdout, _, err := executeCLI(t, statePath, "status", "--json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"TotalKnown\": 3")
}

func TestResetRequiresForce(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	_, _, err := executeCLI(t, statePath, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = os.Stat(statePath)
	assert.NoError(t, err, "state file must survive a refused reset")
}

func TestResetForceRemovesState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	stdout, _, err := executeCLI(t, statePath, "reset", "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed")

	_, err = os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func TestResetOrgForgetsSingleOrg(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	stdout, _, err := executeCLI(t, statePath, "reset", "--force", "--org", "Qwen")
	require.NoError(t, err)
	assert.Contains(t, stdout, "forgot 2 models for Qwen")

	repo, err := staterepo.NewRepository(statePath)
	require.NoError(t, err)
	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, state.Orgs, domain.OrgKey("Qwen"))
	assert.Contains(t, state.Orgs, domain.OrgKey("deepseek-ai"))
}

func TestResetOrgUnknownOrgIsHarmless(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	writeStateFixture(t, statePath)

	stdout, _, err := executeCLI(t, statePath, "reset", "--force", "--org", "nobody")
	require.NoError(t, err)
	assert.Contains(t, stdout, "nothing recorded")
}

func TestInfoRejectsBareModelName(t *testing.T) {
	_, _, err := executeCLI(t, filepath.Join(t.TempDir(), "state.toml"), "info", "not-a-model-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author/model")
}

func TestRunRequiresTelegramCredentials(t *testing.T) {
	t.Setenv("HUBWATCH_TELEGRAM_TOKEN", "")
	t.Setenv("HUBWATCH_TELEGRAM_CHAT_ID", "")

	_, _, err := executeCLI(t, filepath.Join(t.TempDir(), "state.toml"), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_token")
}
