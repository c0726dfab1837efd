package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyquest/server/auth"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestParseReviewArgs(t *testing.T) {
	reviews, err := parseReviewArgs([]string{"go-maps:easy", "sql:joins:AGAIN"})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "go-maps", reviews[0].CardID)
	assert.Equal(t, "easy", reviews[0].Rating)
	assert.Equal(t, "sql:joins", reviews[1].CardID, "the last colon separates the rating")
	assert.Equal(t, "again", reviews[1].Rating)

	for _, bad := range []string{"nocolon", ":easy", "card:", "card:perfect"} {
		_, err := parseReviewArgs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestModesCommand(t *testing.T) {
	out, err := executeCommand(t, "modes")
	require.NoError(t, err)
	for _, want := range []string{"MODE", "normal", "rapid", "survival", "mastery", "60s"} {
		assert.Contains(t, out, want)
	}
}

func TestEstimateCommand(t *testing.T) {
	out, err := executeCommand(t, "estimate", "--game", "rapid", "--round", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "rapid round of 10 cards: ~150 XP, ~1 min")

	out, err = executeCommand(t, "estimate", "--game", "mastery", "--round", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "~125 XP, ~6 min")

	_, err = executeCommand(t, "estimate", "--game", "arcade", "--round", "10")
	assert.Error(t, err)
}

func TestStudyCommands(t *testing.T) {
	dataDir := t.TempDir()
	common := []string{"--mode", "demo", "--data", dataDir, "--driver", "sqlite"}
	run := func(args ...string) string {
		out, err := executeCommand(t, append(args, common...)...)
		require.NoError(t, err, out)
		return out
	}

	out := run("review", "--user", "alice", "--game", "normal", "go-maps:easy", "sql-joins:again")
	assert.Contains(t, out, "go-maps")
	assert.Contains(t, out, "XP, level 1")

	out = run("due", "--user", "alice", "--within", "48")
	assert.Contains(t, out, "sql-joins")

	out = run("due", "--user", "alice", "--within", "0", "--filter", "lapses > 5")
	assert.Contains(t, out, "nothing due")

	out = run("stats", "--user", "alice")
	assert.Contains(t, out, "# Study report for alice")

	out = run("reset", "--user", "alice")
	assert.Contains(t, out, "profile of alice reset")

	out = run("stats", "--user", "alice")
	assert.Contains(t, out, "last studied never")
}

func TestReviewSurvivalStopsOnMiss(t *testing.T) {
	out, err := executeCommand(t, "review", "--user", "bob", "--game", "survival",
		"--mode", "demo", "--data", t.TempDir(), "a:easy", "b:again", "c:easy")
	require.NoError(t, err, out)
	assert.Contains(t, out, "session ended")
	assert.Equal(t, 2, strings.Count(out, "next in"), "the third card is never reviewed")
}

func TestTokenCommand(t *testing.T) {
	out, err := executeCommand(t, "token", "--user", "carol", "--secret", "s3cret", "--mode", "demo", "--data", t.TempDir())
	require.NoError(t, err)

	claims, err := auth.NewAuthenticator("s3cret").Authenticate("Bearer " + strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "carol", claims.Subject)
}
