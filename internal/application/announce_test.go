package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hubwatch/internal/domain"
)

func TestAnnounceSendsNotificationSummaryAndEstimate(t *testing.T) {
	t.Parallel()

	id := domain.ModelID("acme/alpha")
	notifier := &fakeNotifier{}
	catalog := newFakeCatalog()
	catalog.readmes[id] = "# Alpha\nA fine model."
	catalog.models[id] = domain.Model{
		ID:          id,
		Safetensors: map[string]int64{"BF16": 70_000_000_000},
	}

	announcer := NewAnnouncer(notifier, catalog, &fakeSummarizer{summary: "Does things well."}, nil)

	require.NoError(t, announcer.Announce(context.Background(), domain.Model{ID: id}))

	messages := notifier.messages()
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], "acme/alpha")
	assert.Contains(t, messages[0], "https://huggingface.co/acme/alpha")
	assert.Contains(t, messages[1], "Does things well.")
	assert.Contains(t, messages[2], "Deploy estimate")
}

func TestAnnounceNotificationFailurePropagates(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{errs: []error{domain.ErrDelivery}}
	announcer := NewAnnouncer(notifier, newFakeCatalog(), &fakeSummarizer{summary: "s"}, nil)

	err := announcer.Announce(context.Background(), model("acme/alpha"))
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Len(t, notifier.messages(), 1)
}

func TestAnnounceSkipsExtrasWithoutData(t *testing.T) {
	t.Parallel()

	id := domain.ModelID("acme/alpha")
	notifier := &fakeNotifier{}
	catalog := newFakeCatalog()
	// No README, and the model record carries no safetensors metadata.
	catalog.models[id] = domain.Model{ID: id}

	announcer := NewAnnouncer(notifier, catalog, &fakeSummarizer{summary: "s"}, nil)

	require.NoError(t, announcer.Announce(context.Background(), domain.Model{ID: id}))
	assert.Len(t, notifier.messages(), 1)
}

func TestAnnounceExtraFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	id := domain.ModelID("acme/alpha")
	notifier := &fakeNotifier{}
	catalog := newFakeCatalog()
	catalog.readmes[id] = "readme"

	announcer := NewAnnouncer(notifier, catalog, &fakeSummarizer{err: errors.New("model overloaded")}, nil)

	// Summary generation failing must not fail the announcement.
	require.NoError(t, announcer.Announce(context.Background(), domain.Model{ID: id}))
	assert.Len(t, notifier.messages(), 1)
}

func TestAnnounceWithoutCollaborators(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	announcer := NewAnnouncer(notifier, nil, nil, nil)

	require.NoError(t, announcer.Announce(context.Background(), model("acme/alpha")))
	assert.Len(t, notifier.messages(), 1)
}
