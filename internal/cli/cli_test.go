package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/narrative"
	"github.com/xraph/narrative/identity"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "narrative %s", strings.Join(args, " "))
	return out
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestVersion(t *testing.T) {
	out := mustRun(t, t.TempDir(), "version")
	assert.Contains(t, out, "narrative v"+Version)
	assert.Contains(t, out, narrative.ProgramID)
}

func TestDefaultConfigWritten(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	mustRun(t, dir, "version")

	data, err := os.ReadFile(filepath.Join(dir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "refund_policy: none")
	assert.Contains(t, string(data), "boundary_days: 30")
}

func TestKeygenAndAddress(t *testing.T) {
	dir := t.TempDir()

	gen := decode(t, mustRun(t, dir, "--json", "keygen"))
	addr := mustRun(t, dir, "address")
	assert.Equal(t, gen["address"], strings.TrimSpace(addr))

	kp, err := identity.LoadKeypair(filepath.Join(dir, defaultKeypairFile))
	require.NoError(t, err)
	assert.Equal(t, gen["address"], kp.Identity().String())

	_, err = run(t, dir, "keygen")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	regen := decode(t, mustRun(t, dir, "--json", "keygen", "--force"))
	assert.NotEqual(t, gen["address"], regen["address"])
}

func TestAddressWithoutKeypair(t *testing.T) {
	_, err := run(t, t.TempDir(), "address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keygen")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestSubscriptionLifecycle(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")

	bal := decode(t, mustRun(t, dir, "--json", "airdrop", "1"))
	assert.EqualValues(t, 1_000_000_000, bal["lamports"])

	sub := decode(t, mustRun(t, dir, "--json", "subscribe", "30"))
	subID, ok := sub["id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(subID, "sub_"))
	assert.Equal(t, true, sub["active"])
	start, end := sub["start_time"].(float64), sub["end_time"].(float64)
	assert.EqualValues(t, 30*86400, end-start)

	bal = decode(t, mustRun(t, dir, "--json", "balance"))
	assert.EqualValues(t, 900_000_000, bal["lamports"])

	treasury, err := identity.LoadKeypair(filepath.Join(dir, defaultTreasuryKeypair))
	require.NoError(t, err)
	bal = decode(t, mustRun(t, dir, "--json", "balance", treasury.Identity().String()))
	assert.EqualValues(t, 100_000_000, bal["lamports"])

	out := mustRun(t, dir, "check", subID)
	assert.Contains(t, out, "is active until")

	shown := decode(t, mustRun(t, dir, "--json", "show", subID))
	assert.Equal(t, subID, shown["id"])

	canceled := decode(t, mustRun(t, dir, "--json", "cancel", subID))
	assert.Equal(t, false, canceled["active"])

	_, err = run(t, dir, "check", subID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrSubscriptionCanceled))
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestSubscribeInsufficientFunds(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")
	mustRun(t, dir, "airdrop", "0.05")

	_, err := run(t, dir, "subscribe", "7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrInsufficientFunds))

	bal := decode(t, mustRun(t, dir, "--json", "balance"))
	assert.EqualValues(t, 50_000_000, bal["lamports"])
}

func TestSubscribeLongTierFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := "pricing:\n  short: 1000\n  long: 5000\n  boundary_days: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(cfg), 0o600))
	mustRun(t, dir, "keygen")
	mustRun(t, dir, "airdrop", "0.00001")

	mustRun(t, dir, "subscribe", "8")

	bal := decode(t, mustRun(t, dir, "--json", "balance"))
	assert.EqualValues(t, 10_000-5_000, bal["lamports"])
}

func TestSubscribeBadDuration(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")

	_, err := run(t, dir, "subscribe", "70000")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = run(t, dir, "subscribe", "0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrInvalidDuration))
}

func TestCancelByOtherSigner(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")
	mustRun(t, dir, "airdrop", "1")
	sub := decode(t, mustRun(t, dir, "--json", "subscribe", "30"))

	other := filepath.Join(dir, "other.json")
	mustRun(t, dir, "--keypair", other, "keygen")

	_, err := run(t, dir, "--keypair", other, "cancel", sub["id"].(string))
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrUnauthorized))
}

func TestRecordAndShow(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")

	rec := decode(t, mustRun(t, dir, "--json", "record",
		"--score", "85", "--platform", "Twitter", "--alternative", "Bluesky", "--timestamp", "1700000000"))
	recID, ok := rec["id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(recID, "nrec_"))

	out := mustRun(t, dir, "show", recID)
	assert.Contains(t, out, "Platform:    Twitter")
	assert.Contains(t, out, "Alternative: Bluesky")
	assert.Contains(t, out, "Timestamp:   1700000000")

	_, err := run(t, dir, "record", "--score", "101", "--platform", "a", "--alternative", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrInvalidScore))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(narrative.ErrRecordNotFound))
	assert.Equal(t, exitUserError, exitCode(usagef("bad flag")))
	assert.Equal(t, exitSysError, exitCode(errors.New("disk full")))
}

func TestAuditLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("audit_log: audit.jsonl\n"), 0o600))
	mustRun(t, dir, "keygen")
	mustRun(t, dir, "airdrop", "1")
	mustRun(t, dir, "subscribe", "30")

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)

	var actions []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		actions = append(actions, ev["action"].(string))
	}
	assert.Equal(t, []string{"payment.transferred", "subscription.created"}, actions)
}

func writePosts(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "posts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestScanRecordsBatchScore(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")
	posts := writePosts(t, dir, `{"text": "Moving to Telegram"}`, ``)

	res := decode(t, mustRun(t, dir, "--json", "scan", "--platform", "discord", "--input", posts, "--record"))
	analysis := res["analysis"].(map[string]any)
	assert.EqualValues(t, 1, analysis["volume"])
	assert.Equal(t, "telegram", analysis["top_alternative"])

	rec := res["record"].(map[string]any)
	assert.EqualValues(t, 70, rec["score"])
	assert.Equal(t, "discord", rec["platform"])
	assert.Equal(t, "telegram", rec["alternative"])

	out := mustRun(t, dir, "show", rec["id"].(string))
	assert.Contains(t, out, "Score:       70")
}

func TestScanReport(t *testing.T) {
	dir := t.TempDir()
	posts := writePosts(t, dir,
		`{"text": "moving to bluesky", "created_at": "2025-03-01T12:00:00Z"}`,
		`{"text": "just lunch today", "created_at": "2025-03-01T13:00:00Z"}`,
	)

	out := mustRun(t, dir, "scan", "--platform", "discord", "--input", posts)
	assert.Contains(t, out, "Volume:          2")
	assert.Contains(t, out, "Velocity:        2.0 posts/hour")
	assert.Contains(t, out, "Top alternative: bluesky")
	assert.NotContains(t, out, "Record:")
}

func TestScanRecordNeedsAlternative(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "keygen")
	posts := writePosts(t, dir, `{"text": "nothing to see"}`)

	_, err := run(t, dir, "scan", "--platform", "discord", "--input", posts, "--record")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	res := decode(t, mustRun(t, dir, "--json", "scan", "--platform", "discord", "--input", posts,
		"--record", "--alternative", "matrix"))
	assert.Equal(t, "matrix", res["record"].(map[string]any)["alternative"])
}

func TestScanRejectsMalformedPosts(t *testing.T) {
	dir := t.TempDir()
	posts := writePosts(t, dir, `{"text": "ok"}`, `not json`)

	_, err := run(t, dir, "scan", "--platform", "discord", "--input", posts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, exitUserError, exitCode(err))
}
