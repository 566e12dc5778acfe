package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"scmcicd/internal/policy"
	"scmcicd/internal/reconciler"
	pkgstrings "scmcicd/pkg/strings"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a table with additional columns
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml)", format)
	}
}

// Printer renders records, plans and reports in one output format.
type Printer struct {
	out       io.Writer
	format    OutputFormat
	noHeaders bool
	color     bool
}

// NewPrinter creates a printer writing to out. Colors are enabled when out is
// a terminal.
func NewPrinter(out io.Writer, flags CommandFlags) (*Printer, error) {
	if flags.OutputFormat == "" {
		flags.OutputFormat = string(OutputFormatTable)
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	return &Printer{
		out:       out,
		format:    OutputFormat(flags.OutputFormat),
		noHeaders: flags.NoHeaders,
		color:     IsTerminal(out),
	}, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

// Structured reports whether the printer emits json or yaml.
func (p *Printer) Structured() bool {
	return p.format == OutputFormatJSON || p.format == OutputFormatYAML
}

func (p *Printer) wide() bool { return p.format == OutputFormatWide }

func (p *Printer) paint(colors text.Colors, s string) string {
	if !p.color {
		return s
	}
	return colors.Sprint(s)
}

// Data writes v as json or yaml, whichever the printer is set to; table
// formats fall back to yaml.
func (p *Printer) Data(v interface{}) error {
	if p.format == OutputFormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(data))
		return err
	}
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

func (p *Printer) table(headers ...string) *PlainTableWriter {
	tw := NewPlainTableWriter(p.out)
	tw.SetHeaders(headers...)
	tw.SetNoHeaders(p.noHeaders)
	return tw
}

func containerOf(loc policy.Location) string {
	c, err := loc.Container()
	if err != nil {
		return pkgstrings.EmptyCell
	}
	return c.String()
}

func optional(s *string) string {
	if s == nil {
		return pkgstrings.EmptyCell
	}
	return pkgstrings.OrEmpty(*s)
}

func optionalBool(b *bool) string {
	if b == nil {
		return pkgstrings.EmptyCell
	}
	return strconv.FormatBool(*b)
}

// SecurityRules lists rules.
func (p *Printer) SecurityRules(rules []policy.SecurityRule) error {
	if p.Structured() {
		if rules == nil {
			rules = []policy.SecurityRule{}
		}
		return p.Data(rules)
	}

	list := func(items []string) string { return pkgstrings.JoinList(items, pkgstrings.DefaultListMaxLen) }
	var tw *PlainTableWriter
	if p.wide() {
		tw = p.table("name", "container", "rulebase", "action", "from", "to", "source", "destination",
			"application", "service", "disabled", "tags", "description", "id")
	} else {
		tw = p.table("name", "container", "rulebase", "action", "source", "destination", "application")
	}
	for _, r := range rules {
		action := optional(r.Action)
		if r.Action != nil {
			action = p.paint(actionColor(*r.Action), action)
		}
		if p.wide() {
			desc := pkgstrings.EmptyCell
			if r.Description != nil {
				desc = pkgstrings.OrEmpty(pkgstrings.TruncateDescription(*r.Description, pkgstrings.DefaultDescriptionMaxLen))
			}
			tw.AppendRow(r.Name, containerOf(r.Location), string(r.Rulebase), action, list(r.From), list(r.To),
				list(r.Source), list(r.Destination), list(r.Application), list(r.Service),
				optionalBool(r.Disabled), list(r.Tag), desc, r.ID)
			continue
		}
		tw.AppendRow(r.Name, containerOf(r.Location), string(r.Rulebase), action, list(r.Source),
			list(r.Destination), list(r.Application))
	}
	if err := tw.Render(); err != nil {
		return err
	}
	return p.footer(len(rules), "security rule")
}

func actionColor(action string) text.Colors {
	if action == "allow" {
		return text.Colors{text.FgGreen}
	}
	return text.Colors{text.FgRed}
}

// Addresses lists address objects.
func (p *Printer) Addresses(addresses []policy.Address) error {
	if p.Structured() {
		if addresses == nil {
			addresses = []policy.Address{}
		}
		return p.Data(addresses)
	}

	var tw *PlainTableWriter
	if p.wide() {
		tw = p.table("name", "container", "type", "value", "tags", "description", "id")
	} else {
		tw = p.table("name", "container", "type", "value")
	}
	for _, a := range addresses {
		typ, value := a.Type()
		typeCell, valueCell := pkgstrings.OrEmpty(string(typ)), pkgstrings.OrEmpty(value)
		if p.wide() {
			desc := pkgstrings.EmptyCell
			if a.Description != nil {
				desc = pkgstrings.OrEmpty(pkgstrings.TruncateDescription(*a.Description, pkgstrings.DefaultDescriptionMaxLen))
			}
			tw.AppendRow(a.Name, containerOf(a.Location), typeCell, valueCell,
				pkgstrings.JoinList(a.Tag, pkgstrings.DefaultListMaxLen), desc, a.ID)
			continue
		}
		tw.AppendRow(a.Name, containerOf(a.Location), typeCell, valueCell)
	}
	if err := tw.Render(); err != nil {
		return err
	}
	return p.footer(len(addresses), "address")
}

func (p *Printer) footer(n int, noun string) error {
	if n > 0 || p.noHeaders {
		return nil
	}
	_, err := fmt.Fprintf(p.out, "No %s objects found\n", noun)
	return err
}

// Plan prints planned operations.
func (p *Printer) Plan(steps []reconciler.PlanStep) error {
	if p.Structured() {
		if steps == nil {
			steps = []reconciler.PlanStep{}
		}
		return p.Data(steps)
	}

	tw := p.table("action", "kind", "scope", "name", "detail")
	var create, update, skip int
	for _, s := range steps {
		detail := s.Reason
		switch s.Action {
		case reconciler.ActionCreate:
			create++
		case reconciler.ActionUpdate:
			update++
			detail = "changes " + strings.Join(s.Changed, ", ")
		case reconciler.ActionSkip:
			skip++
		}
		tw.AppendRow(p.paint(planColor(s.Action), string(s.Action)), string(s.Kind), s.Scope.String(), s.Name,
			pkgstrings.OrEmpty(detail))
	}
	if err := tw.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.out, "\nPlan: %d to create, %d to update, %d unchanged\n", create, update, skip)
	return err
}

func planColor(a reconciler.Action) text.Colors {
	switch a {
	case reconciler.ActionCreate:
		return text.Colors{text.FgGreen}
	case reconciler.ActionUpdate:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.Faint}
	}
}

func statusColor(s reconciler.Status) text.Colors {
	switch s {
	case reconciler.StatusCreated, reconciler.StatusDeleted:
		return text.Colors{text.FgGreen}
	case reconciler.StatusUpdated:
		return text.Colors{text.FgYellow}
	case reconciler.StatusFailed:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.Faint}
	}
}

// Result prints one status line.
func (p *Printer) Result(r reconciler.Result) error {
	status := string(r.Status)
	if r.Simulated {
		status += " (dry run)"
	}
	line := fmt.Sprintf("%-22s %s %s in %s", p.paint(statusColor(r.Status), status), r.Kind, r.Name, r.Scope)
	switch {
	case r.Status == reconciler.StatusFailed:
		line += ": " + r.Message
	case len(r.Changed) > 0:
		line += " (" + strings.Join(r.Changed, ", ") + ")"
	case r.Reason != "":
		line += " (" + r.Reason + ")"
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

// Report prints a run report: one line per result, a summary table and the
// commit outcome.
func (p *Printer) Report(report *reconciler.Report) error {
	if p.Structured() {
		return p.Data(report)
	}

	for _, r := range report.Results {
		if err := p.Result(r); err != nil {
			return err
		}
	}

	c := report.Counts
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + report.RunID)
	t.AppendHeader(table.Row{"Created", "Updated", "Unchanged", "Deleted", "Not found", "Failed"})
	t.AppendRow(table.Row{c.Created, c.Updated, c.Skipped, c.Deleted, c.NotFound, c.Failed})
	if report.DryRun {
		t.AppendFooter(table.Row{"dry run", "", "", "", "", ""})
	}
	fmt.Fprintln(p.out)
	t.Render()

	if report.Commit != nil {
		return p.Commit(report.Commit)
	}
	return nil
}

// Commit prints the commit outcome.
func (p *Printer) Commit(o *reconciler.CommitOutcome) error {
	if p.Structured() {
		return p.Data(o)
	}

	var line string
	switch o.Status {
	case reconciler.CommitCommitted:
		line = p.paint(text.Colors{text.FgGreen}, "Committed") + " " + strings.Join(o.Folders, ", ")
		if o.Result.JobID != "" {
			line += " (job " + o.Result.JobID + ")"
		}
	case reconciler.CommitPending:
		line = p.paint(text.Colors{text.FgYellow}, "Commit pending") + fmt.Sprintf(": job %s is still running", o.Result.JobID)
	case reconciler.CommitFailed:
		line = p.paint(text.Colors{text.FgRed, text.Bold}, "Commit failed") + ": " + o.Reason
	default:
		line = p.paint(text.Colors{text.Faint}, "Commit skipped") + ": " + o.Reason
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}
