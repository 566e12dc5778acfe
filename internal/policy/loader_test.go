package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSecurityRules(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
- name: allow-web
  folder: Texas
  from_: [trust]
  to_: [untrust]
  source: [any]
  destination: [any]
  service: [application-default]
  action: allow
- name: block-bad
  folder: Texas
  rulebase: post
  action: deny
  log_end: true
`)

	result, err := LoadSecurityRules([]string{path}, LoadOptions{})
	require.NoError(t, err)
	require.Empty(t, result.Invalid)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, "allow-web", first.Name)
	assert.Equal(t, []string{"trust"}, first.From)
	assert.Equal(t, []string{"untrust"}, first.To)
	assert.Equal(t, "allow", *first.Action)
	assert.Nil(t, first.Description)

	second := result.Records[1]
	assert.Equal(t, RulebasePost, second.Rulebase)
	assert.True(t, *second.LogEnd)
}

func TestLoadSingleMapping(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.yaml", "name: web\nfolder: Texas\nfqdn: www.example.com\n")

	result, err := LoadAddresses([]string{path}, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "www.example.com", *result.Records[0].FQDN)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "addr.json", `[{"name": "web", "folder": "Texas", "ip_netmask": "10.0.0.1/32"}]`)

	result, err := LoadAddresses([]string{path}, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
}

func TestLoadRecordLevelErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
- name: good
  folder: Texas
- name: unknown-key
  folder: Texas
  colour: blue
- name: bad-action
  folder: Texas
  action: permit
- name: two-containers
  folder: Texas
  snippet: shared
- name: good
  folder: Texas
- name: good
  folder: Texas
  rulebase: post
- folder: Texas
`)

	result, err := LoadSecurityRules([]string{path}, LoadOptions{})
	require.NoError(t, err)

	var names []string
	for _, r := range result.Records {
		names = append(names, r.Name+"/"+string(r.Rulebase))
	}
	assert.Equal(t, []string{"good/", "good/post"}, names)

	require.Len(t, result.Invalid, 5)
	assert.Equal(t, "unknown-key", result.Invalid[0].Name)
	assert.Equal(t, "bad-action", result.Invalid[1].Name)
	assert.Equal(t, "two-containers", result.Invalid[2].Name)
	assert.Equal(t, "good", result.Invalid[3].Name)
	assert.Contains(t, result.Invalid[3].Error(), "duplicate")
	assert.Equal(t, 6, result.Invalid[4].Index)
	assert.Contains(t, result.Invalid[4].Error(), "#7")
}

func TestLoadDuplicateUsesDefaultRulebase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
- name: r
  folder: Texas
  rulebase: post
- name: r
  folder: Texas
`)

	result, err := LoadSecurityRules([]string{path}, LoadOptions{DefaultRulebase: RulebasePost})
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Len(t, result.Invalid, 1)
}

func TestLoadFatalErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"scalar", "just a string\n"},
		{"empty list", "[]\n"},
		{"malformed", "- name: a\n  folder: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".yaml", tt.content)
			_, err := LoadSecurityRules([]string{path}, LoadOptions{})
			require.Error(t, err)
			var loadErr *LoadError
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "[]")
	b := writeFile(t, dir, "nested/deep/b.yaml", "[]")
	writeFile(t, dir, "nested/c.txt", "")

	files, err := ExpandPatterns([]string{filepath.Join(dir, "**", "*.yaml"), a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = ExpandPatterns([]string{filepath.Join(dir, "missing.yaml")})
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "file not found")

	_, err = ExpandPatterns(nil)
	assert.Error(t, err)
}
