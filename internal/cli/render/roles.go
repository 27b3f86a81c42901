package render

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color styles for role output
var (
	chainHeader   = color.New(color.BgCyan, color.FgBlack, color.Bold)
	grantStyle    = color.New(color.FgGreen)
	revokeStyle   = color.New(color.FgRed)
	addressStyle  = color.New(color.FgWhite)
	faintStyle    = color.New(color.Faint)
	appliedStyle  = color.New(color.FgGreen, color.Bold)
	skippedStyle  = color.New(color.FgYellow)
	failedStyle   = color.New(color.FgRed, color.Bold)
	plannedStyle  = color.New(color.FgCyan)
	sectionHeader = color.New(color.Bold, color.FgHiWhite)
)

var outcomeOrder = []models.MutationOutcome{
	models.OutcomePlanned,
	models.OutcomeApplied,
	models.OutcomeSkipped,
	models.OutcomeFailed,
}

// RolesRenderer renders reconciliation plans and reports
type RolesRenderer struct {
	out   io.Writer
	color bool
	title cases.Caser
}

// NewRolesRenderer creates a new roles renderer
func NewRolesRenderer(out io.Writer, color bool) *RolesRenderer {
	return &RolesRenderer{
		out:   out,
		color: color,
		title: cases.Title(language.English),
	}
}

// RenderPlan renders the mutations a run would perform
func (r *RolesRenderer) RenderPlan(plan *usecase.Plan) error {
	results := lo.Map(plan.Mutations, func(m models.Mutation, _ int) models.MutationResult {
		return models.MutationResult{Mutation: m, Outcome: models.OutcomePlanned}
	})

	fmt.Fprintf(r.out, "Checked %d role assignments\n", len(plan.Assignments))
	if len(results) == 0 {
		fmt.Fprintln(r.out, r.paint(appliedStyle, "✅ All roles already match the role table"))
	} else {
		fmt.Fprintln(r.out)
		r.renderResults((&models.RoleReport{Results: results}).ByChain())
	}
	r.renderReadFailures(plan.Observation.Failures)
	return nil
}

// RenderReport renders the result of a reconciliation run
func (r *RolesRenderer) RenderReport(report *models.RoleReport) error {
	mode := "apply"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(r.out, "%s %s\n", r.paint(sectionHeader, "Role reconciliation"), r.paint(faintStyle, fmt.Sprintf("(%s, run %s)", mode, report.RunID)))
	fmt.Fprintf(r.out, "Checked %d role assignments\n\n", report.Checked)

	if len(report.Results) == 0 {
		fmt.Fprintln(r.out, r.paint(appliedStyle, "✅ All roles already match the role table"))
	} else {
		r.renderResults(report.ByChain())
	}
	r.renderReadFailures(report.ReadFailures)
	r.renderSummary(report)
	return nil
}

// RenderJSON writes the report as indented JSON
func (r *RolesRenderer) RenderJSON(report *models.RoleReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

func (r *RolesRenderer) renderResults(byChain map[uint64][]models.MutationResult) {
	chains := lo.Keys(byChain)
	slices.Sort(chains)

	for _, chainID := range chains {
		fmt.Fprintln(r.out, r.paint(chainHeader, fmt.Sprintf(" chain %d ", chainID)))

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
		t.Style().Options.SeparateColumns = false
		t.Style().Options.SeparateHeader = false
		t.Style().Box = table.BoxStyle{PaddingRight: "   "}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignLeft},
			{Number: 2, Align: text.AlignLeft},
			{Number: 3, Align: text.AlignLeft},
			{Number: 4, Align: text.AlignLeft},
			{Number: 5, Align: text.AlignLeft},
			{Number: 6, Align: text.AlignLeft},
		})

		for _, res := range byChain[chainID] {
			m := res.Mutation
			t.AppendRow(table.Row{
				r.action(m.Action),
				string(m.Contract.Type),
				roleLabel(m),
				r.paint(addressStyle, m.Account.Hex()),
				r.outcome(res.Outcome),
				r.detail(res),
			})
		}

		fmt.Fprintln(r.out, t.Render())
		fmt.Fprintln(r.out)
	}
}

func (r *RolesRenderer) renderReadFailures(failures []models.ReadFailure) {
	if len(failures) == 0 {
		return
	}
	header := fmt.Sprintf("%d role assignments could not be read:", len(failures))
	if r.color {
		fmt.Fprintln(r.out, FormatWarning(header))
	} else {
		fmt.Fprintf(r.out, "⚠️  %s\n", header)
	}
	for _, f := range failures {
		fmt.Fprintf(r.out, "  %s %s\n", f.Key, r.paint(faintStyle, fmt.Sprintf("(%s) %s", f.ErrorKind, f.Reason)))
	}
	fmt.Fprintln(r.out)
}

func (r *RolesRenderer) renderSummary(report *models.RoleReport) {
	counts := report.CountByOutcome()
	var parts []string
	for _, outcome := range outcomeOrder {
		if n := counts[outcome]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", r.title.String(string(outcome)), n))
		}
	}
	if len(report.ReadFailures) > 0 {
		parts = append(parts, fmt.Sprintf("Unreadable: %d", len(report.ReadFailures)))
	}
	if len(parts) == 0 {
		return
	}

	summary := strings.Join(parts, ", ")
	if report.HasFailures() {
		fmt.Fprintln(r.out, FormatError(summary))
	} else {
		fmt.Fprintln(r.out, FormatSuccess(summary))
	}
}

func (r *RolesRenderer) action(a models.RoleAction) string {
	if a == models.ActionGrant {
		return r.paint(grantStyle, "+ grant")
	}
	return r.paint(revokeStyle, "- revoke")
}

func (r *RolesRenderer) outcome(o models.MutationOutcome) string {
	label := r.title.String(string(o))
	switch o {
	case models.OutcomeApplied:
		return r.paint(appliedStyle, label)
	case models.OutcomeSkipped:
		return r.paint(skippedStyle, label)
	case models.OutcomeFailed:
		return r.paint(failedStyle, label)
	default:
		return r.paint(plannedStyle, label)
	}
}

func (r *RolesRenderer) detail(res models.MutationResult) string {
	switch {
	case res.Outcome == models.OutcomeFailed:
		return res.Reason
	case res.TxHash != "":
		return r.paint(faintStyle, fmt.Sprintf("%s (block %d)", res.TxHash, res.BlockNumber))
	default:
		return r.paint(faintStyle, res.Reason)
	}
}

func (r *RolesRenderer) paint(c *color.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

func roleLabel(m models.Mutation) string {
	if m.Sibling == 0 {
		return string(m.Role)
	}
	return fmt.Sprintf("%s → %d", m.Role, m.Sibling)
}
