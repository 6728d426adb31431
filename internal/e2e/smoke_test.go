package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.toml")
	binaryPath := buildBinary(t)
	require.NoError(t, writeStateFixture(statePath))

	stdout, stderr, err := runHubwatch(t, binaryPath, statePath, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Qwen")
	assert.Contains(t, stdout, "known models: 2")

	stdout, stderr, err = runHubwatch(t, binaryPath, statePath, "orgs")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "deepseek-ai")

	stdout, stderr, err = runHubwatch(t, binaryPath, statePath, "reset", "--force")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "removed")

	_, err = os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "hubwatch-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hubwatch")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build hubwatch binary: %s", string(output))
	return binaryPath
}

func runHubwatch(t *testing.T, binaryPath, statePath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Dir(statePath),
		"HUBWATCH_STATE_PATH="+statePath,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeStateFixture(statePath string) error {
	state := `version = 1

[orgs.Qwen]
models = ["Qwen/Qwen3-32B", "Qwen/Qwen3-8B"]
`

	return os.WriteFile(statePath, []byte(state), 0o600)
}
