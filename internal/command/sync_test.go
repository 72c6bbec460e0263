package command

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	calls   int
	appID   string
	guildID string
	defs    []*discordgo.ApplicationCommand
	err     error
}

func (p *fakePublisher) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	p.calls++
	p.appID, p.guildID, p.defs = appID, guildID, commands
	if p.err != nil {
		return nil, p.err
	}
	return commands, nil
}

func TestSyncerPublishesDefinitions(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&stubHandler{name: "debug"})
	pub := &fakePublisher{}
	s := &Syncer{Registry: r, Publisher: pub, GuildID: "g1", Logger: nopLogger()}

	require.NoError(t, s.Sync(context.Background(), "app"))
	assert.Equal(t, "app", pub.appID)
	assert.Equal(t, "g1", pub.guildID)
	require.Len(t, pub.defs, 1)
	assert.Equal(t, "debug", pub.defs[0].Name)
}

func TestSyncerEmptyRegistrySendsEmptyList(t *testing.T) {
	pub := &fakePublisher{}
	s := &Syncer{Registry: NewRegistry(), Publisher: pub, Logger: nopLogger()}

	require.NoError(t, s.Sync(context.Background(), "app"))
	assert.NotNil(t, pub.defs)
	assert.Empty(t, pub.defs)
}

func TestSyncerRequiresAppID(t *testing.T) {
	pub := &fakePublisher{}
	s := &Syncer{Registry: NewRegistry(), Publisher: pub, Logger: nopLogger()}

	assert.Error(t, s.Sync(context.Background(), ""))
	assert.Equal(t, 0, pub.calls)
}

func TestSyncOnceRetriesUntilSuccess(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	s := &Syncer{Registry: NewRegistry(), Publisher: pub, Logger: nopLogger()}

	require.Error(t, s.SyncOnce(context.Background(), "app"))

	pub.err = nil
	require.NoError(t, s.SyncOnce(context.Background(), "app"))
	require.NoError(t, s.SyncOnce(context.Background(), "app"))
	assert.Equal(t, 2, pub.calls)
}
