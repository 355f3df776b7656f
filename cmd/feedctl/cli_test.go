package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vibeweb/internal/demo"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBackend(t *testing.T, opts demo.Options) *demo.Backend {
	t.Helper()
	b := demo.New(opts)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	viper.Set("api", srv.URL)
	viper.Set("token", "")
	timeout = 5 * time.Second
	t.Cleanup(func() {
		viper.Set("api", "")
		viper.Set("token", "")
	})
	return b
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd, out
}

func TestLoginCmd(t *testing.T) {
	startBackend(t, demo.Options{Users: 2, Seed: 1})
	loginEmail, loginPassword = demo.DemoEmail, demo.DemoPassword

	cmd, out := testCmd()
	require.NoError(t, runLogin(cmd, nil))
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out.String()), ".")), "prints a JWT")

	loginPassword = "wrong"
	cmd, _ = testCmd()
	assert.Error(t, runLogin(cmd, nil))
}

func TestFeedCmd_GlobalPages(t *testing.T) {
	startBackend(t, demo.Options{Users: 3, Posts: 7, Seed: 1})
	feedKind, feedPages, feedPageSize = "global", 3, 3

	cmd, out := testCmd()
	require.NoError(t, runFeed(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "#7 @"))
	assert.Equal(t, "-- 7 posts, exhausted", lines[7])
}

func TestFeedCmd_StopsWhenExhausted(t *testing.T) {
	b := startBackend(t, demo.Options{Users: 2, Posts: 4, Seed: 1})
	feedKind, feedPages, feedPageSize = "global", 10, 5

	cmd, _ := testCmd()
	require.NoError(t, runFeed(cmd, nil))
	assert.Len(t, b.Requests(), 1)
}

func TestFeedCmd_PersonalNeedsToken(t *testing.T) {
	startBackend(t, demo.Options{Users: 2, Seed: 1})
	feedKind, feedPages, feedPageSize = "personal", 1, 5

	cmd, _ := testCmd()
	assert.Error(t, runFeed(cmd, nil))

	feedKind = "sideways"
	assert.Error(t, runFeed(cmd, nil))
}

func TestFollowCmd(t *testing.T) {
	b := startBackend(t, demo.Options{Users: 3, Seed: 1})
	token, err := b.IssueToken(demo.DemoNickname)
	require.NoError(t, err)
	viper.Set("token", token)
	followReconcile = true

	client, err := newClient()
	require.NoError(t, err)
	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	var target string
	for _, u := range users {
		if u.Nickname != demo.DemoNickname && !b.Follows(demo.DemoNickname, u.Nickname) {
			target = u.Nickname
		}
	}
	require.NotEmpty(t, target)

	cmd, out := testCmd()
	require.NoError(t, runFollow(cmd, []string{target}))
	assert.Contains(t, out.String(), "@"+target+": following, 1 followers")
	assert.True(t, b.Follows(demo.DemoNickname, target))

	cmd, out = testCmd()
	require.NoError(t, runFollow(cmd, []string{target}))
	assert.Contains(t, out.String(), "not following, 0 followers")
}

func TestFollowCmd_RequiresToken(t *testing.T) {
	startBackend(t, demo.Options{Users: 2, Seed: 1})

	cmd, _ := testCmd()
	assert.Error(t, runFollow(cmd, []string{demo.DemoNickname}))
}
