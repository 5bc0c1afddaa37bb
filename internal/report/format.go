package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
)

// Undefined is printed for a ratio whose denominator was zero.
const Undefined = "—"

func count(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func (r *Renderer) money(v float64) string {
	return humanize.FormatFloat("#,###.##", v) + " " + r.currency
}

func (r *Renderer) moneyRatio(v analysis.Ratio) string {
	if !v.Defined {
		return Undefined
	}
	return r.money(v.Value)
}

func percent(v analysis.Ratio) string {
	if !v.Defined {
		return Undefined
	}
	return fmt.Sprintf("%.2f%%", v.Value)
}

func plain(v analysis.Ratio) string {
	if !v.Defined {
		return Undefined
	}
	return fmt.Sprintf("%.2f", v.Value)
}

// markdownTable renders rows as a GitHub-flavoured markdown table.
func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	t := tablewriter.NewWriter(&b)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	t.SetCenterSeparator("|")
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.AppendBulk(rows)
	t.Render()
	return b.String()
}

// doc accumulates markdown sections.
type doc struct {
	b strings.Builder
}

func (d *doc) title(format string, args ...interface{}) {
	fmt.Fprintf(&d.b, "# "+format+"\n\n", args...)
}

func (d *doc) section(name string) {
	fmt.Fprintf(&d.b, "## %s\n\n", name)
}

func (d *doc) line(format string, args ...interface{}) {
	fmt.Fprintf(&d.b, format+"\n", args...)
}

func (d *doc) metric(name, value string) {
	fmt.Fprintf(&d.b, "- **%s:** %s\n", name, value)
}

func (d *doc) bullets(items []string, none string) {
	if len(items) == 0 {
		fmt.Fprintf(&d.b, "_%s_\n\n", none)
		return
	}
	for _, it := range items {
		fmt.Fprintf(&d.b, "- %s\n", it)
	}
	d.b.WriteString("\n")
}

func (d *doc) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		d.line("_No rows with non-zero volume._")
		d.blank()
		return
	}
	d.b.WriteString(markdownTable(header, rows))
	d.blank()
}

func (d *doc) blank() { d.b.WriteString("\n") }

func (d *doc) String() string {
	return strings.TrimRight(d.b.String(), "\n") + "\n"
}
