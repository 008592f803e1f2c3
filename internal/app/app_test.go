// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/storage"
)

var quiet = log.New(io.Discard, "", 0)

func newTestApp(t *testing.T, store storage.Store) (*App, *presentation.Document, *presentation.ManualScheduler) {
	t.Helper()
	doc := presentation.NewDocument()
	sched := presentation.NewManualScheduler()
	a := New(Config{
		Storage:           store,
		Environment:       doc,
		Logger:            quiet,
		ControllerOptions: []presentation.Option{presentation.WithScheduler(sched)},
	})
	t.Cleanup(func() { a.controller.Close() })
	return a, doc, sched
}

func TestBoot_AppliesStoredAccent(t *testing.T) {
	store := storage.NewMemoryStore()
	p := model.NewProfile("Ravi", "ravi@example.com")
	p.ThemeColor = "#aa3300"
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, store.Set(storage.ProfileKey, data))

	a, doc, _ := newTestApp(t, store)
	assert.Equal(t, model.DefaultAccent, doc.Snapshot().Styles[presentation.StyleAccent])

	a.Boot()
	snap := doc.Snapshot()
	assert.Equal(t, "#aa3300", snap.Styles[presentation.StyleAccent])
	assert.Equal(t, "#aa3300", snap.Meta[presentation.MetaThemeColor])
	assert.Equal(t, "Ravi", a.Profile().Current().Name)
}

func TestSignOutRestoresDefaultAccent(t *testing.T) {
	store := storage.NewMemoryStore()
	a, doc, _ := newTestApp(t, store)
	a.Boot()

	p := model.NewProfile("Ravi", "ravi@example.com")
	p.ThemeColor = "#123456"
	require.NoError(t, a.Profile().Set(p))
	assert.Equal(t, "#123456", doc.Snapshot().Styles[presentation.StyleAccent])

	require.NoError(t, a.Profile().SignOut())
	assert.Equal(t, model.DefaultAccent, doc.Snapshot().Styles[presentation.StyleAccent])

	_, ok, err := store.Get(storage.ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDarkModeOverridesAccentIndicator(t *testing.T) {
	a, doc, _ := newTestApp(t, storage.NewMemoryStore())
	p := model.NewProfile("Ravi", "ravi@example.com")
	p.ThemeColor = "#123456"
	require.NoError(t, a.Profile().Set(p))

	require.NoError(t, a.Theme().SetTheme(presentation.ModeDark))
	snap := doc.Snapshot()
	assert.Equal(t, presentation.DarkIndicatorColor, snap.Meta[presentation.MetaThemeColor])
	assert.True(t, snap.HasRootClass(presentation.ClassDark))

	assert.Equal(t, presentation.ModeLight, a.Theme().ToggleTheme())
	assert.Equal(t, "#123456", doc.Snapshot().Meta[presentation.MetaThemeColor])
}

func TestEffectsThroughCapability(t *testing.T) {
	a, doc, sched := newTestApp(t, storage.NewMemoryStore())

	require.NoError(t, a.Effects().Trigger(presentation.EventNeon))
	assert.True(t, doc.Snapshot().HasBodyClass(presentation.ClassNeon))

	require.NoError(t, a.Effects().Trigger(presentation.EventCountdown))
	assert.False(t, doc.Snapshot().HasBodyClass(presentation.ClassNeon))

	sched.Advance(4 * presentation.TickInterval)
	st := a.Theme().State()
	assert.Equal(t, presentation.EffectNone, st.Effect)
	assert.True(t, st.Flash)
}

func TestChatPersistsAcrossRestart(t *testing.T) {
	store := storage.NewMemoryStore()
	a, _, _ := newTestApp(t, store)
	a.Boot()

	_, err := a.Chat().Send(context.Background(), chat.Input{Text: "Is it safe to mix these?"})
	require.NoError(t, err)

	b, _, _ := newTestApp(t, store)
	b.Boot()
	msgs := b.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Is it safe to mix these?", msgs[0].Text)
	assert.Equal(t, model.RoleModel, msgs[1].Role)
}

func TestNavigate(t *testing.T) {
	a, _, _ := newTestApp(t, storage.NewMemoryStore())
	assert.Equal(t, model.ScreenDashboard, a.Screen())

	require.NoError(t, a.Navigate("Settings"))
	assert.Equal(t, model.ScreenSettings, a.Screen())

	assert.Error(t, a.Navigate("nowhere"))
	assert.Equal(t, model.ScreenSettings, a.Screen())
}

func TestWatchStorage_Unsupported(t *testing.T) {
	a, _, _ := newTestApp(t, storage.NewMemoryStore())
	assert.ErrorIs(t, a.WatchStorage(context.Background()), ErrNoWatcher)
}

func TestWatchStorage_ReloadsExternalProfile(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(afero.NewOsFs(), dir)
	require.NoError(t, err)

	a, doc, _ := newTestApp(t, store)
	a.Boot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.WatchStorage(ctx))

	p := model.NewProfile("Elsewhere", "e@example.com")
	p.ThemeColor = "#00ff00"
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.ProfileKey+".json"), data, 0600))

	require.Eventually(t, func() bool {
		return doc.Snapshot().Styles[presentation.StyleAccent] == "#00ff00"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Elsewhere", a.Profile().Current().Name)
}
