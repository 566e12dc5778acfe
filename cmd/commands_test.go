package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scmcicd/internal/cli"
	"scmcicd/internal/policy"
	"scmcicd/internal/testing/mock"
)

// harness runs the command tree against a mock store with settings in a
// temporary config directory.
type harness struct {
	t      *testing.T
	server *mock.Server
	dir    string
}

func newHarness(t *testing.T, cfg mock.ServerConfig) *harness {
	t.Helper()
	server := mock.NewServer(cfg)
	t.Cleanup(server.Close)

	h := &harness{t: t, server: server, dir: t.TempDir()}
	settings := server.Settings()
	h.write(".secrets.yaml", fmt.Sprintf("client_id: %s\nclient_secret: %s\ntsg_id: \"%s\"\n",
		settings.ClientID, settings.ClientSecret, settings.TSGID))
	h.writeSettings(server.URL())
	return h
}

func (h *harness) writeSettings(baseURL string) {
	h.write("settings.yaml", fmt.Sprintf(`api_base_url: %s
token_url: %s/oauth2/access_token
max_retries: 0
requests_per_second: 0
commit_timeout: 5
`, baseURL, baseURL))
}

func (h *harness) write(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config-path", h.dir}, args...))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

var (
	texas     = policy.Container{Type: policy.ContainerFolder, Name: "Texas"}
	texasPre  = policy.Scope{Container: texas, Rulebase: policy.RulebasePre}
	texasAddr = policy.Scope{Container: texas}
)

const rulesYAML = `- name: allow-dns
  folder: Texas
  action: allow
  application: [dns]
- name: block-telnet
  folder: Texas
  action: deny
  service: [telnet]
`

const addressesYAML = `- name: web-servers
  folder: Texas
  ip_netmask: 10.0.0.0/24
`

func strPtr(s string) *string { return &s }

func TestApplySecurityRulesCreatesAndCommits(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("apply", "security-rule", file, "--commit")
	require.NoError(t, err)

	records := h.server.Rules.Records(texasPre)
	require.Len(t, records, 2)
	assert.Equal(t, "allow-dns", records[0].Name)
	assert.Equal(t, []string{"any"}, records[0].Source)
	assert.Equal(t, [][]string{{"Texas"}}, h.server.Commits())
	assert.Contains(t, stdout, "Committed Texas")
}

func TestApplyIsIdempotent(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML)

	_, _, err := h.run("apply", "security-rule", file)
	require.NoError(t, err)
	h.server.Rules.ResetCalls()

	stdout, _, err := h.run("apply", "security-rule", file, "--commit")
	require.NoError(t, err)
	assert.Zero(t, h.server.Rules.WriteCalls())
	assert.Empty(t, h.server.Commits())
	assert.Contains(t, stdout, "Commit skipped: no changes to commit")
}

func TestApplyDryRunMakesNoWrites(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("apply", "security-rule", file, "--dry-run", "--commit")
	require.NoError(t, err)
	assert.Zero(t, h.server.Rules.WriteCalls())
	assert.Empty(t, h.server.Rules.Records(texasPre))
	assert.Empty(t, h.server.Commits())
	assert.Contains(t, stdout, "(dry run)")
}

func TestApplyUpdatesChangedRule(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	h.server.Rules.Seed(texasPre, policy.SecurityRule{
		Name:        "allow-dns",
		Action:      strPtr("deny"),
		Application: []string{"dns"},
		Description: strPtr("kept"),
	})
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("apply", "security-rule", file)
	require.NoError(t, err)

	records := h.server.Rules.Records(texasPre)
	require.Len(t, records, 2)
	assert.Equal(t, "allow", *records[0].Action)
	require.NotNil(t, records[0].Description)
	assert.Equal(t, "kept", *records[0].Description)
	assert.Contains(t, stdout, "updated")
	assert.Contains(t, stdout, "(action)")
}

func TestApplyRecordFailureSkipsCommit(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	h.server.Rules.FailOn(mock.OpCreate, "allow-dns", mock.Rejected("invalid application"))
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("apply", "security-rule", file, "--commit")
	require.Error(t, err)

	var failures *cli.RecordFailuresError
	require.ErrorAs(t, err, &failures)
	assert.Equal(t, 1, failures.Failed)
	assert.Equal(t, cli.ExitCodeError, getExitCode(err))

	assert.Len(t, h.server.Rules.Records(texasPre), 1, "the other record is still applied")
	assert.Empty(t, h.server.Commits())
	assert.Contains(t, stdout, "Commit skipped")
}

func TestApplyForceCommitsDespiteFailures(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	h.server.Rules.FailOn(mock.OpCreate, "allow-dns", mock.Rejected("invalid application"))
	file := h.write("rules.yaml", rulesYAML)

	_, _, err := h.run("apply", "security-rule", file, "--commit", "--force", "-m", "forced")
	require.Error(t, err)
	assert.Equal(t, [][]string{{"Texas"}}, h.server.Commits())
}

func TestApplyExitCodes(t *testing.T) {
	t.Run("rejected credentials", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{RejectToken: true})
		file := h.write("rules.yaml", rulesYAML)

		_, _, err := h.run("apply", "security-rule", file)
		require.Error(t, err)
		assert.Equal(t, cli.ExitCodeAuthFailed, getExitCode(err))
		assert.Empty(t, h.server.Requests())
	})

	t.Run("unreachable store", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})
		url := h.server.URL()
		h.server.Close()
		h.writeSettings(url)
		file := h.write("rules.yaml", rulesYAML)

		_, _, err := h.run("apply", "security-rule", file)
		require.Error(t, err)
		assert.Equal(t, cli.ExitCodeConnection, getExitCode(err))
	})

	t.Run("malformed input", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})
		file := h.write("rules.yaml", "- name: [unterminated\n")

		_, _, err := h.run("apply", "security-rule", file)
		require.Error(t, err)
		assert.Equal(t, cli.ExitCodeInvalidInput, getExitCode(err))
		assert.Empty(t, h.server.Requests())
	})

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})

		_, _, err := h.run("apply", "security-rule", filepath.Join(h.dir, "nope.yaml"))
		require.Error(t, err)
		assert.Equal(t, cli.ExitCodeInvalidInput, getExitCode(err))
	})
}

func TestApplyInvalidRecordIsReported(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML+`- name: bad-action
  folder: Texas
  action: maybe
`)

	stdout, _, err := h.run("apply", "security-rule", file)
	require.Error(t, err)
	assert.Equal(t, cli.ExitCodeError, getExitCode(err))
	assert.Len(t, h.server.Rules.Records(texasPre), 2)
	assert.Contains(t, stdout, "bad-action")
}

func TestApplyValidateOnly(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("apply", "security-rule", file, "--validate-only")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Validated 1 file(s): 2 valid, 0 invalid record(s)")
	assert.Empty(t, h.server.Requests())
}

func TestApplyAllFollowsOrder(t *testing.T) {
	tests := []struct {
		name  string
		order string
		first string
	}{
		{"default", "", "POST /config/objects/v1/addresses"},
		{"rules first", "security-rule,address", "POST /config/security/v1/security-rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mock.ServerConfig{})
			rules := h.write("rules.yaml", rulesYAML)
			addresses := h.write("addresses.yaml", addressesYAML)

			args := []string{"apply", "all", "--address", addresses, "--security-rule", rules, "--commit"}
			if tt.order != "" {
				args = append(args, "--order", tt.order)
			}
			_, _, err := h.run(args...)
			require.NoError(t, err)

			var writes []string
			for _, r := range h.server.Requests() {
				if strings.HasPrefix(r, "POST /config/objects") || strings.HasPrefix(r, "POST /config/security") {
					writes = append(writes, r)
				}
			}
			require.Len(t, writes, 3)
			assert.Equal(t, tt.first, writes[0])
			assert.Len(t, h.server.Commits(), 1, "one commit for the whole run")
		})
	}
}

func TestApplyAllRejectsBadOrder(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	rules := h.write("rules.yaml", rulesYAML)

	_, _, err := h.run("apply", "all", "--security-rule", rules, "--order", "address,nat-rule")
	require.Error(t, err)
	assert.Equal(t, cli.ExitCodeInvalidInput, getExitCode(err))
}

func TestLegacyApplyWarns(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	file := h.write("rules.yaml", rulesYAML)

	_, stderr, err := h.run("apply", file)
	require.NoError(t, err)
	assert.Contains(t, stderr, "deprecated")
	assert.Len(t, h.server.Rules.Records(texasPre), 2)
}

func TestPlanPrintsWithoutWriting(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	h.server.Rules.Seed(texasPre, policy.SecurityRule{Name: "allow-dns", Action: strPtr("allow"), Application: []string{"dns"}})
	file := h.write("rules.yaml", rulesYAML)

	stdout, _, err := h.run("plan", "security-rule", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Plan: 1 to create, 0 to update, 1 unchanged")
	assert.Zero(t, h.server.Rules.WriteCalls())
}

func TestPlanHelpDescribesWatchedFiles(t *testing.T) {
	cmd := newPlanCmd(&rootOptions{})
	assert.Contains(t, cmd.Long, "matched at startup")
	assert.Contains(t, cmd.Long, "Restart the command to watch newly added files.")

	kindCmd, _, err := cmd.Find([]string{"security-rule"})
	require.NoError(t, err)
	assert.NotNil(t, kindCmd.Flags().Lookup("watch"))
}

func TestListSecurityRules(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})
	h.server.Rules.Seed(texasPre, policy.SecurityRule{Name: "allow-dns", Action: strPtr("allow")})

	t.Run("table", func(t *testing.T) {
		stdout, _, err := h.run("list", "security-rule", "Texas")
		require.NoError(t, err)
		assert.Contains(t, stdout, "allow-dns")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := h.run("list", "security-rule", "Texas", "-o", "json")
		require.NoError(t, err)
		var rules []policy.SecurityRule
		require.NoError(t, json.Unmarshal([]byte(stdout), &rules))
		require.Len(t, rules, 1)
		assert.Equal(t, "allow-dns", rules[0].Name)
	})

	t.Run("post rulebase is empty", func(t *testing.T) {
		stdout, _, err := h.run("list", "security-rule", "Texas", "--rulebase", "post")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No security rule objects found")
	})
}

func TestListAddressesUnknownContainer(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{Containers: []policy.Container{texas}})

	_, _, err := h.run("list", "address", "Nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
}

func TestDefinedIn(t *testing.T) {
	addresses := []policy.Address{
		{Name: "own", Location: policy.Location{Folder: "Texas"}},
		{Name: "inherited", Location: policy.Location{Folder: "All"}},
	}
	got := definedIn(addresses, texas, func(a policy.Address) policy.Location { return a.Location })
	require.Len(t, got, 1)
	assert.Equal(t, "own", got[0].Name)
}

func TestDelete(t *testing.T) {
	t.Run("removes and commits", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})
		h.server.Addresses.Seed(texasAddr, policy.Address{Name: "web-servers", IPNetmask: strPtr("10.0.0.0/24")})

		stdout, _, err := h.run("delete", "address", "web-servers", "Texas", "--type", "folder", "--yes", "--commit")
		require.NoError(t, err)
		assert.Empty(t, h.server.Addresses.Records(texasAddr))
		assert.Equal(t, [][]string{{"Texas"}}, h.server.Commits())
		assert.Contains(t, stdout, "deleted")
	})

	t.Run("missing record is not an error", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})

		stdout, _, err := h.run("delete", "security-rule", "ghost", "Texas", "--yes", "--commit")
		require.NoError(t, err)
		assert.Contains(t, stdout, "not-found")
		assert.Zero(t, h.server.Rules.Calls(mock.OpDelete))
		assert.Empty(t, h.server.Commits())
	})

	t.Run("needs confirmation", func(t *testing.T) {
		h := newHarness(t, mock.ServerConfig{})
		h.server.Rules.Seed(texasPre, policy.SecurityRule{Name: "allow-dns"})

		_, _, err := h.run("delete", "security-rule", "allow-dns", "Texas")
		require.ErrorIs(t, err, cli.ErrNonInteractive)
		assert.Len(t, h.server.Rules.Records(texasPre), 1)
	})
}

func TestCommitCommand(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{})

	stdout, _, err := h.run("commit", "Texas", "Austin", "Texas", "-m", "Release {{ .Folders | join \",\" }}")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Austin", "Texas"}}, h.server.Commits())
	assert.Contains(t, stdout, "Committed Austin, Texas")
}

func TestCommitCommandJobFailure(t *testing.T) {
	h := newHarness(t, mock.ServerConfig{JobResult: "FAIL"})

	_, _, err := h.run("commit", "Texas")
	require.Error(t, err)
	var commitErr *cli.CommitFailedError
	assert.ErrorAs(t, err, &commitErr)
}

func TestSchemaCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema", "address"})
	require.NoError(t, cmd.Execute())

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "Address", schema["title"])
}
