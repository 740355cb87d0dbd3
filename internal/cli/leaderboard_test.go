package cli

import (
	"bytes"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/service"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var sampleEntries = []service.LeaderboardEntry{
	{Rank: 1, UserID: 3, DisplayName: "Bob", Role: model.Student, Points: 12},
	{Rank: 2, UserID: 1, DisplayName: "Alice", Email: "alice@thapar.edu", Role: model.Student, Points: 5},
}

func TestPrintLeaderboard_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, sampleEntries, "table"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"RANK", "NAME", "POINTS", "ROLE", "UID"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "Bob", "12", "student", "3"}, strings.Fields(lines[1]))
}

func TestPrintLeaderboard_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, sampleEntries, "yaml"))

	var decoded []service.LeaderboardEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleEntries, decoded)
	assert.NotContains(t, strings.SplitN(buf.String(), "- rank: 2", 2)[0], "email")
}

func TestLeaderboardCmd_RequiresTarget(t *testing.T) {
	dir := t.TempDir()
	cmd := NewLeaderboardCmd(&dir)
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--class or --global")
}
