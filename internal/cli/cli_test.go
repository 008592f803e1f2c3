// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jeranaias/mediguard/internal/app"
	"github.com/jeranaias/mediguard/internal/chat"
	"github.com/jeranaias/mediguard/internal/chat/chatmock"
	"github.com/jeranaias/mediguard/internal/config"
	"github.com/jeranaias/mediguard/internal/export"
	"github.com/jeranaias/mediguard/internal/model"
	"github.com/jeranaias/mediguard/internal/offline"
	"github.com/jeranaias/mediguard/internal/presentation"
	"github.com/jeranaias/mediguard/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type fixture struct {
	rt        *Runtime
	out       *bytes.Buffer
	app       *app.App
	responder *chatmock.MockResponder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	responder := chatmock.NewMockResponder(ctrl)

	a := app.New(app.Config{
		Storage:           storage.NewMemoryStore(),
		Responder:         responder,
		Logger:            log.New(io.Discard, "", 0),
		ControllerOptions: []presentation.Option{presentation.WithScheduler(presentation.NewManualScheduler())},
	})
	a.Boot()
	t.Cleanup(func() { _ = a.Close() })

	out := &bytes.Buffer{}
	rt := &Runtime{
		Config:       config.Default(),
		App:          a,
		Fs:           afero.NewMemMapFs(),
		Out:          out,
		Err:          io.Discard,
		CacheStorage: offline.NewMemoryStorage(),
		Network:      okNetwork(nil),
		ConfigPath:   filepath.Join(t.TempDir(), "config.toml"),
	}
	return &fixture{rt: rt, out: out, app: a, responder: responder}
}

// okNetwork answers every request with 200 and counts calls.
func okNetwork(calls *atomic.Int32) offline.Fetcher {
	return offline.FetcherFunc(func(_ context.Context, req *http.Request) (*http.Response, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader("body of " + req.URL.Path)),
			Request:    req,
		}, nil
	})
}

func (f *fixture) run(t *testing.T, argv ...string) error {
	t.Helper()
	f.out.Reset()
	cmd, args := ParseArgs(argv)
	return Run(context.Background(), f.rt, cmd, args)
}

// envelope decodes a --json response.
func envelope[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
	require.True(t, resp.Success)
	return resp.Data
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(t *testing.T, a Args)
	}{
		{name: "no args is tui", argv: nil, want: CmdTUI},
		{
			name: "chat message joins words",
			argv: []string{"chat", "can", "I", "take", "ibuprofen?"},
			want: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "can I take ibuprofen?", a.Message)
				assert.Empty(t, a.Subcommand)
			},
		},
		{
			name: "global flags before command",
			argv: []string{"-q", "--json", "--offline", "profile", "Show"},
			want: CmdProfile,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.Quiet)
				assert.True(t, a.JSON)
				assert.True(t, a.Offline)
				assert.Equal(t, "show", a.Subcommand)
				assert.Equal(t, []string{"Show"}, a.Raw)
			},
		},
		{
			name: "model flag both forms",
			argv: []string{"--model", "gemini-x", "--model=gemini-y", "cache", "install"},
			want: CmdCache,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "gemini-y", a.Model)
				assert.Equal(t, "install", a.Subcommand)
			},
		},
		{name: "history alias", argv: []string{"history"}, want: CmdTranscript},
		{name: "serve", argv: []string{"serve", "--listen", ":9000"}, want: CmdServe},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{
			name: "unknown command shows help",
			argv: []string{"frobnicate"},
			want: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Unknown)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestCommand_NeedsApp(t *testing.T) {
	assert.True(t, CmdTUI.NeedsApp())
	assert.True(t, CmdTranscript.NeedsApp())
	assert.False(t, CmdCache.NeedsApp())
	assert.False(t, CmdConfig.NeedsApp())
	assert.Equal(t, "serve", CmdServe.String())
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"Set", "--name", "Asha Rao", "--meds=", "--force", "--color", "#7c3aed", "extra"})

	assert.Equal(t, "set", p.Subcommand())
	assert.Equal(t, "Set", p.Positional(0))
	assert.Equal(t, "Asha Rao", p.Flag("name"))
	assert.Equal(t, "#7c3aed", p.Flag("--color"))
	assert.True(t, p.BoolFlag("force"))
	assert.Equal(t, []string{"extra"}, p.PositionalFrom(1))

	v, ok := p.Lookup("meds")
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok = p.Lookup("age")
	assert.False(t, ok)

	assert.True(t, p.HasFlag("force"))
	assert.Equal(t, "md", p.FlagOrDefault("format", "md"))
}

func TestArgParser_NegativeNumberIsValue(t *testing.T) {
	p := NewArgParser([]string{"show", "--last", "-1", "--offset", "-2.5", "--force", "-q"})

	assert.Equal(t, "-1", p.Flag("last"))
	assert.False(t, p.BoolFlag("last"))
	assert.False(t, p.BoolFlag("1"))
	assert.Equal(t, "-2.5", p.Flag("offset"))
	assert.True(t, p.BoolFlag("force"), "a non-numeric dash argument is still a flag")
	assert.True(t, p.BoolFlag("q"))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "no", "N", "0", "off"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestFitColumn(t *testing.T) {
	assert.Equal(t, "ab   ", FitColumn("ab", 5))
	assert.Equal(t, 5, runewidth.StringWidth(FitColumn("abcdefgh", 5)))
	assert.True(t, strings.HasSuffix(FitColumn("abcdefgh", 5), "…"))

	wide := FitColumn("日本語テキスト", 6)
	assert.Equal(t, 6, runewidth.StringWidth(wide))
	assert.Empty(t, FitColumn("x", 0))
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("f", "v", "bad"), ExitUsageError},
		{"invalid profile", model.ErrInvalidProfile, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "storage.backend", Message: "unknown"}}, ExitConfigError},
		{"storage", NewCommandError("x", "y", "z", storage.ErrClosed), ExitStorageError},
		{"empty transcript", NewCommandError("transcript", "export", "z", export.ErrEmptyTranscript), ExitNotFoundError},
		{"install", NewCommandError("cache", "install", "z", &offline.InstallError{URL: "u", Err: errors.New("down")}), ExitNetworkError},
		{"timeout", context.DeadlineExceeded, ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewValidationError("age", "abc", "must be a number"), true)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "validation_error", got["error_type"])
	assert.Equal(t, "age", got["field"])
	assert.EqualValues(t, ExitUsageError, got["code"])
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_VersionAndHelp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "version"))
	assert.Contains(t, f.out.String(), "mediguard version "+Version)

	require.NoError(t, f.run(t, "help"))
	assert.Contains(t, f.out.String(), "transcript export")

	err := f.run(t, "frobnicate")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRun_AppCommandsNeedApp(t *testing.T) {
	f := newFixture(t)
	f.rt.App = nil
	for _, cmd := range []string{"profile", "transcript", "chat"} {
		err := f.run(t, cmd)
		var cmdErr *CommandError
		assert.ErrorAs(t, err, &cmdErr, cmd)
	}
}

// =============================================================================
// PROFILE
// =============================================================================

func TestProfile_SetCreatesAndShows(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, "profile", "set",
		"--name", "Asha Rao", "--email", "asha@example.com", "--age", "62",
		"--gender", "female", "--kidney", "IMPAIRED", "--meds", "metformin 500mg",
		"--contact1", "Ravi: +91 98450 00000", "--contact2", "112",
		"--language", "hi", "--color", "#7c3aed", "--fda-key", "abcdefghijkl1234")
	require.NoError(t, err)

	p := f.app.Profile().Current()
	require.NotNil(t, p)
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, model.GenderFemale, p.Gender)
	assert.Equal(t, model.OrganImpaired, p.KidneyFunction)
	assert.Equal(t, model.OrganUnknown, p.LiverFunction)
	assert.Equal(t, model.EmergencyContact{Name: "Ravi", Number: "+91 98450 00000"}, p.Contacts[0])
	assert.Equal(t, model.EmergencyContact{Number: "112"}, p.Contacts[1])
	assert.Equal(t, "#7c3aed", f.app.Theme().State().Accent)

	out := f.out.String()
	assert.Contains(t, out, "Profile saved.")
	assert.Contains(t, out, "metformin 500mg")
	assert.Contains(t, out, "********1234")
	assert.NotContains(t, out, "abcdefghijkl1234")
}

func TestProfile_SetKeepsUnsetFields(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "profile", "set", "--name", "Asha", "--meds", "aspirin"))
	require.NoError(t, f.run(t, "profile", "set", "--age", "63"))

	p := f.app.Profile().Current()
	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, "aspirin", p.CurrentMeds)
	assert.Equal(t, "63", p.Age)

	require.NoError(t, f.run(t, "profile", "set", "--meds="))
	assert.Empty(t, f.app.Profile().Current().CurrentMeds)
}

func TestProfile_SetErrors(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, "profile", "set", "--age", "40")
	assert.Equal(t, ExitUsageError, GetExitCode(err), "new profile needs a name")
	assert.Nil(t, f.app.Profile().Current())

	err = f.run(t, "profile", "set", "--name", "A", "--gender", "robot")
	assert.ErrorIs(t, err, model.ErrInvalidProfile)

	err = f.run(t, "profile", "set", "--name", "A", "--color", "teal")
	assert.ErrorIs(t, err, model.ErrInvalidProfile)

	err = f.run(t, "profile", "set", "--name", "A", "--language", "xx")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Nil(t, f.app.Profile().Current())
}

func TestProfile_ShowJSONAndSignOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "profile", "set", "--name", "Asha", "--fda-key", "abcdefghijkl1234"))

	require.NoError(t, f.run(t, "--json", "profile", "show"))
	got := envelope[model.UserProfile](t, f.out.Bytes())
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "********1234", got.OpenFDAKey)
	assert.Equal(t, "abcdefghijkl1234", f.app.Profile().Current().OpenFDAKey, "show must not alter the stored key")

	require.NoError(t, f.run(t, "profile", "signout"))
	assert.Nil(t, f.app.Profile().Current())
	assert.Equal(t, model.DefaultAccent, f.app.Theme().State().Accent)

	require.NoError(t, f.run(t, "profile"))
	assert.Contains(t, f.out.String(), "Not signed in")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func seedTranscript(t *testing.T, a *app.App) {
	t.Helper()
	require.NoError(t, a.Transcript().Append(
		model.NewUserMessage("Can I take ibuprofen with lisinopril?"),
		model.NewModelMessage("Check with your doctor first.", model.GroundingSource{Title: "NHS", URL: "https://nhs.uk"}),
	))
}

func TestTranscript_Show(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "transcript"))
	assert.Contains(t, f.out.String(), "No messages yet.")

	seedTranscript(t, f.app)
	require.NoError(t, f.run(t, "transcript", "show"))
	assert.Contains(t, f.out.String(), "lisinopril")
	assert.Contains(t, f.out.String(), "Check with your doctor")

	require.NoError(t, f.run(t, "--json", "transcript", "show", "--last", "1"))
	msgs := envelope[[]model.ChatMessage](t, f.out.Bytes())
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleModel, msgs[0].Role)

	err := f.run(t, "transcript", "show", "--last", "-1")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestTranscript_Export(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, "transcript", "export", "--out", "/exports")
	assert.ErrorIs(t, err, export.ErrEmptyTranscript)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	seedTranscript(t, f.app)
	require.NoError(t, f.run(t, "--json", "transcript", "export", "--format", "json", "--out", "/exports"))
	res := envelope[struct {
		Path     string `json:"path"`
		Messages int    `json:"messages"`
	}](t, f.out.Bytes())
	assert.Equal(t, 2, res.Messages)
	assert.True(t, strings.HasPrefix(res.Path, "/exports/transcript_"))
	assert.True(t, strings.HasSuffix(res.Path, ".json"))

	data, err := afero.ReadFile(f.rt.Fs, res.Path)
	require.NoError(t, err)
	doc, err := export.ReadJSON(data)
	require.NoError(t, err)
	assert.Len(t, doc.Messages, 2)

	err = f.run(t, "transcript", "export", "--format", "pdf", "--out", "/exports")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestTranscript_Clear(t *testing.T) {
	f := newFixture(t)
	seedTranscript(t, f.app)

	require.NoError(t, f.run(t, "transcript", "clear", "--force"))
	assert.Empty(t, f.app.Transcript().Messages())
	assert.Contains(t, f.out.String(), "2 messages deleted")
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_OneShot(t *testing.T) {
	f := newFixture(t)
	f.responder.EXPECT().
		Respond(gomock.Any(), gomock.Len(0), chat.Input{Text: "is paracetamol safe"}).
		Return(model.NewModelMessage("Usually, at the labelled dose.", model.GroundingSource{Title: "NHS", URL: "https://nhs.uk/paracetamol"}), nil)

	require.NoError(t, f.run(t, "chat", "is", "paracetamol", "safe"))
	out := f.out.String()
	assert.Contains(t, out, "labelled dose")
	assert.Contains(t, out, "https://nhs.uk/paracetamol")
	assert.Len(t, f.app.Transcript().Messages(), 2)
}

func TestChat_OneShotFailureLeavesTranscript(t *testing.T) {
	f := newFixture(t)
	f.responder.EXPECT().Respond(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.ChatMessage{}, errors.New("quota exceeded"))

	err := f.run(t, "chat", "hello")
	require.Error(t, err)
	assert.Contains(t, errors.Unwrap(err).Error(), "quota exceeded")
	assert.Empty(t, f.app.Transcript().Messages())
}

func TestChatREPL_HandleLine(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	fs := afero.NewMemMapFs()
	repl := NewChatREPL(f.app, fs, &out, false)
	ctx := context.Background()

	assert.NoError(t, repl.HandleLine(ctx, "   "))
	assert.Empty(t, out.String())

	f.responder.EXPECT().Respond(gomock.Any(), gomock.Any(), chat.Input{Text: "hi"}).
		Return(model.NewModelMessage("Hello there."), nil)
	require.NoError(t, repl.HandleLine(ctx, "hi"))
	assert.Contains(t, out.String(), "Hello there.")

	out.Reset()
	require.NoError(t, repl.HandleLine(ctx, "/history"))
	assert.Contains(t, out.String(), "hi")
	assert.Contains(t, out.String(), "Hello there.")

	out.Reset()
	require.NoError(t, repl.HandleLine(ctx, "/image /missing.png what is this"))
	assert.Contains(t, out.String(), "[ERROR]")

	require.NoError(t, afero.WriteFile(fs, "/pill.png", []byte("\x89PNG\r\n\x1a\n"), 0600))
	f.responder.EXPECT().Respond(gomock.Any(), gomock.Len(2), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []model.ChatMessage, in chat.Input) (model.ChatMessage, error) {
			assert.Equal(t, "what is this", in.Text)
			assert.NotEmpty(t, in.Image)
			return model.NewModelMessage("A pill."), nil
		})
	require.NoError(t, repl.HandleLine(ctx, "/image /pill.png what is this"))
	assert.Len(t, f.app.Transcript().Messages(), 4)

	out.Reset()
	require.NoError(t, repl.HandleLine(ctx, "/reset"))
	assert.Empty(t, f.app.Transcript().Messages())

	out.Reset()
	require.NoError(t, repl.HandleLine(ctx, "/bogus"))
	assert.Contains(t, out.String(), "unknown chat command")

	assert.ErrorIs(t, repl.HandleLine(ctx, "/quit"), errQuit)
}

// =============================================================================
// CACHE
// =============================================================================

type cacheStatus struct {
	State       string   `json:"state"`
	Stored      bool     `json:"stored"`
	Complete    bool     `json:"complete"`
	Missing     []string `json:"missing"`
	Generations []string `json:"generations"`
}

func TestCache_InstallThenStatus(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "--json", "cache"))
	before := envelope[cacheStatus](t, f.out.Bytes())
	assert.Equal(t, "parsed", before.State)
	assert.False(t, before.Stored)
	assert.NotEmpty(t, before.Missing)

	require.NoError(t, f.run(t, "--json", "cache", "install"))
	after := envelope[cacheStatus](t, f.out.Bytes())
	assert.Equal(t, "activated", after.State)
	assert.True(t, after.Complete)
	assert.Equal(t, []string{offline.DefaultVersion}, after.Generations)

	// A later process resumes without touching the network.
	var calls atomic.Int32
	f.rt.Network = okNetwork(&calls)
	require.NoError(t, f.run(t, "--json", "cache", "start"))
	resumed := envelope[cacheStatus](t, f.out.Bytes())
	assert.Equal(t, "activated", resumed.State)
	assert.Zero(t, calls.Load())
}

func TestCache_InstallFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.rt.Network = offline.FetcherFunc(func(context.Context, *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	err := f.run(t, "cache", "install")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))

	keys, err := f.rt.CacheStorage.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCache_Clear(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "cache", "install"))
	assert.Contains(t, f.out.String(), "Offline cache")

	require.NoError(t, f.run(t, "cache", "clear"))
	assert.Contains(t, f.out.String(), "1 generations deleted")

	err := f.run(t, "cache", "purge")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_GetSetPath(t *testing.T) {
	f := newFixture(t)
	f.rt.Config.Chat.APIKey = "AIzaSyTESTKEY0000abcd"

	require.NoError(t, f.run(t, "config", "get", "offline.origin"))
	assert.Equal(t, "http://localhost:3000\n", f.out.String())

	require.NoError(t, f.run(t, "config", "get", "chat.api_key"))
	assert.Equal(t, "********abcd\n", f.out.String())

	require.NoError(t, f.run(t, "config", "show"))
	assert.NotContains(t, f.out.String(), "AIzaSyTESTKEY0000abcd")

	require.NoError(t, f.run(t, "config", "set", "offline.listen", "127.0.0.1:9090"))
	assert.Equal(t, "127.0.0.1:9090", f.rt.Config.Offline.Listen)

	saved, err := os.ReadFile(f.rt.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "127.0.0.1:9090")
	assert.NotContains(t, string(saved), "AIzaSyTESTKEY0000abcd", "environment values must not be written back")

	require.NoError(t, f.run(t, "config", "path"))
	assert.Equal(t, f.rt.ConfigPath+"\n", f.out.String())
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, "config", "set", "storage.backend", "floppy")
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.NoFileExists(t, f.rt.ConfigPath)

	err = f.run(t, "config", "set", "nope.key", "1")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = f.run(t, "config", "set", "offline.origin")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfig_Keys(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "--json", "config", "keys"))
	keys := envelope[[]string](t, f.out.Bytes())
	assert.Contains(t, keys, "offline.cache_version")
	assert.Contains(t, keys, "log.file")
}

// =============================================================================
// SERVE
// =============================================================================

func TestServe_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, args := ParseArgs([]string{"-q", "serve", "--listen", "127.0.0.1:0"})
		done <- HandleServe(ctx, f.rt, args)
	}()

	require.Eventually(t, func() bool {
		ok, _ := f.rt.CacheStorage.Has(context.Background(), offline.DefaultVersion)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("serve did not stop")
	}

	keys, err := f.rt.CacheStorage.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{offline.DefaultVersion}, keys, "serve installs the cache on start")
}
