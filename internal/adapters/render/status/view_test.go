package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hubwatch/internal/application"
)

func TestRenderReport(t *testing.T) {
	output, err := Render(application.StatusReport{
		Orgs: []application.OrgStatus{
			{Org: "acme", Known: 30, Seeded: true},
			{Org: "globex", Known: 10, Seeded: true},
			{Org: "initech", Seeded: false},
		},
		TotalKnown:     40,
		ActiveSessions: 1,
		BankSize:       10,
	}, RenderOptions{StatePath: "/tmp/state.toml"})

	require.NoError(t, err)
	assert.Contains(t, output, "organisations: 3")
	assert.Contains(t, output, "state: /tmp/state.toml")
	assert.Contains(t, output, "acme")
	assert.Contains(t, output, "30 models (75%)")
	assert.Contains(t, output, "not polled yet")
	assert.Contains(t, output, "known models: 40")
	assert.Contains(t, output, "challenge bank: 10")
	assert.Contains(t, output, "active battles: 1")
	assert.Contains(t, output, "[")
	assert.Contains(t, output, "]")
}

func TestRenderEmptyReport(t *testing.T) {
	output, err := Render(application.StatusReport{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "No organisations configured.")
}
