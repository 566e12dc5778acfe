package cli

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"scmcicd/internal/reconciler"
)

// CommitMessageData is what a commit message template can reference.
type CommitMessageData struct {
	RunID   string
	Kinds   []string
	Folders []string
	Counts  reconciler.Counts
	Time    time.Time
}

// NewCommitMessageData collects template data from the results of a run.
func NewCommitMessageData(runID string, results []reconciler.Result) CommitMessageData {
	kinds := make(map[string]bool)
	folders := make(map[string]bool)
	for _, r := range results {
		if !r.Status.Changed() || r.Simulated {
			continue
		}
		kinds[string(r.Kind)] = true
		if r.Scope.Container.Committable() {
			folders[r.Scope.Container.Name] = true
		}
	}
	return CommitMessageData{
		RunID:   runID,
		Kinds:   sortedKeys(kinds),
		Folders: sortedKeys(folders),
		Counts:  reconciler.CountResults(results),
		Time:    time.Now().UTC(),
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderCommitMessage executes tmpl with the sprig function map. Text
// without template actions is returned as is.
func RenderCommitMessage(tmpl string, data CommitMessageData) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	t, err := template.New("commit-message").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid commit message template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render commit message: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
