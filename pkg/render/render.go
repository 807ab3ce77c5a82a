// Package render prints store results for humans and for machines.
//
// Text output is styled with lipgloss; color is enabled only when the
// destination is a terminal. JSON and YAML output carry the same fields,
// including the derived freshness tier, and are stable for scripting.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/seed"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", storeerr.Invalid("format", "unknown format %q (want text, json or yaml)", s)
	}
}

// Palette
var (
	mintGreen   = lipgloss.Color("#98E2C6")
	salmonPink  = lipgloss.Color("#FF8C94")
	amber       = lipgloss.Color("#F5C26B")
	mutedGray   = lipgloss.Color("#8A8A8A")
	brightWhite = lipgloss.Color("#FFFFFF")
)

// SeedView is a seed as printed: the stored record plus its derived tier.
type SeedView struct {
	ID         string           `json:"id" yaml:"id"`
	Title      string           `json:"title" yaml:"title"`
	Status     seed.Status      `json:"status" yaml:"status"`
	Tier       freshness.Tier   `json:"tier" yaml:"tier"`
	AgeHours   float64          `json:"age_hours" yaml:"age_hours"`
	TTLHours   int              `json:"ttl_hours" yaml:"ttl_hours"`
	CreatedAt  time.Time        `json:"created_at" yaml:"created_at"`
	SessionID  string           `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Anchors    []seed.Anchor    `json:"anchors" yaml:"anchors"`
	Conclusion *seed.Conclusion `json:"conclusion,omitempty" yaml:"conclusion,omitempty"`
	Rationale  string           `json:"rationale" yaml:"rationale"`
}

// CorruptView reports one record skipped by a listing.
type CorruptView struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

type listView struct {
	Seeds   []SeedView    `json:"seeds" yaml:"seeds"`
	Corrupt []CorruptView `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
}

type errorView struct {
	Error struct {
		Kind    storeerr.Kind `json:"kind" yaml:"kind"`
		Message string        `json:"message" yaml:"message"`
	} `json:"error" yaml:"error"`
}

// Printer writes results in one format.
type Printer struct {
	w      io.Writer
	format Format
	tier   func(*seed.Seed) freshness.Tier
	now    func() time.Time

	title, dim, key lipgloss.Style
	tiers           map[freshness.Tier]lipgloss.Style
}

// New returns a Printer writing to w. tier classifies seeds; it is usually
// (*seed.Store).Tier.
func New(w io.Writer, format Format, tier func(*seed.Seed) freshness.Tier) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		format: format,
		tier:   tier,
		now:    time.Now,
		title:  r.NewStyle().Bold(true).Foreground(brightWhite),
		dim:    r.NewStyle().Foreground(mutedGray),
		key:    r.NewStyle().Foreground(mintGreen),
		tiers: map[freshness.Tier]lipgloss.Style{
			freshness.TierFresh:   r.NewStyle().Foreground(mintGreen),
			freshness.TierGrowing: r.NewStyle().Foreground(amber),
			freshness.TierStale:   r.NewStyle().Foreground(salmonPink),
		},
	}
}

// Format returns the output encoding.
func (p *Printer) Format() Format {
	return p.format
}

// View converts a seed for printing.
func (p *Printer) View(s *seed.Seed) SeedView {
	age := freshness.Age(p.now(), s.CreatedAt)
	return SeedView{
		ID:         s.ID,
		Title:      s.Title,
		Status:     s.Status,
		Tier:       p.tier(s),
		AgeHours:   float64(age.Round(time.Minute)) / float64(time.Hour),
		TTLHours:   s.TTLHours,
		CreatedAt:  s.CreatedAt,
		SessionID:  s.SessionID,
		Anchors:    s.Anchors,
		Conclusion: s.Conclusion,
		Rationale:  s.Rationale,
	}
}

func (p *Printer) encode(v interface{}) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("render: %s is not a structured format", p.format)
	}
}

// Seed prints one seed in full.
func (p *Printer) Seed(s *seed.Seed) error {
	v := p.View(s)
	if p.format != FormatText {
		return p.encode(v)
	}

	var out strings.Builder
	out.WriteString(p.title.Render(v.Title))
	out.WriteString("\n")
	p.field(&out, "id", v.ID)
	p.field(&out, "status", string(v.Status))
	p.field(&out, "tier", p.tiers[v.Tier].Render(string(v.Tier)))
	p.field(&out, "age", fmt.Sprintf("%.1fh of %dh", v.AgeHours, v.TTLHours))
	p.field(&out, "created", v.CreatedAt.Format(time.RFC3339))
	if v.SessionID != "" {
		p.field(&out, "session", v.SessionID)
	}
	for _, a := range v.Anchors {
		line := a.Path
		if a.ContextStart != "" || a.ContextEnd != "" {
			line += p.dim.Render(fmt.Sprintf("  [%s .. %s]", a.ContextStart, a.ContextEnd))
		}
		p.field(&out, "anchor", line)
	}
	if c := v.Conclusion; c != nil {
		p.field(&out, "concluded", c.ConcludedAt.Format(time.RFC3339))
		p.field(&out, "summary", c.Summary)
		if c.ResultPath != "" {
			p.field(&out, "result", c.ResultPath)
		}
	}
	if v.Rationale != "" {
		out.WriteString("\n")
		out.WriteString(v.Rationale)
		if !strings.HasSuffix(v.Rationale, "\n") {
			out.WriteString("\n")
		}
	}
	_, err := io.WriteString(p.w, out.String())
	return err
}

func (p *Printer) field(out *strings.Builder, name, value string) {
	fmt.Fprintf(out, "  %s %s\n", p.key.Render(fmt.Sprintf("%-9s", name+":")), value)
}

// Listing prints one line per seed, then a note for skipped records.
func (p *Printer) Listing(l *seed.Listing) error {
	if p.format != FormatText {
		view := listView{Seeds: make([]SeedView, 0, len(l.Seeds))}
		for _, s := range l.Seeds {
			view.Seeds = append(view.Seeds, p.View(s))
		}
		for _, c := range l.Corrupt {
			view.Corrupt = append(view.Corrupt, CorruptView{Path: c.Path, Error: c.Err.Error()})
		}
		return p.encode(view)
	}

	var out strings.Builder
	if len(l.Seeds) == 0 {
		out.WriteString(p.dim.Render("no seeds"))
		out.WriteString("\n")
	}
	for _, s := range l.Seeds {
		v := p.View(s)
		status := ""
		if v.Status == seed.StatusArchived {
			status = p.dim.Render(" (archived)")
		}
		fmt.Fprintf(&out, "%s  %s  %s%s  %s\n",
			p.tiers[v.Tier].Render(fmt.Sprintf("%-7s", v.Tier)),
			p.dim.Render(v.ID),
			v.Title,
			status,
			p.dim.Render(s.PrimaryPath()),
		)
	}
	if n := len(l.Corrupt); n > 0 {
		out.WriteString(p.dim.Render(fmt.Sprintf("skipped %d unreadable seed file(s)", n)))
		out.WriteString("\n")
	}
	_, err := io.WriteString(p.w, out.String())
	return err
}

// Batch prints the outcome of a bulk operation.
func (p *Printer) Batch(op string, res *seed.BatchResult) error {
	if res == nil {
		res = &seed.BatchResult{}
	}
	if p.format != FormatText {
		v := *res
		if v.Applied == nil {
			v.Applied = []string{}
		}
		return p.encode(v)
	}
	msg := fmt.Sprintf("%s: %d seed(s)", op, len(res.Applied))
	if res.TempFilesRemoved > 0 {
		msg += fmt.Sprintf(", %d temp file(s) removed", res.TempFilesRemoved)
	}
	var out strings.Builder
	out.WriteString(msg + "\n")
	for _, id := range res.Applied {
		out.WriteString("  " + p.dim.Render(id) + "\n")
	}
	_, err := io.WriteString(p.w, out.String())
	return err
}

// Settings prints every setting.
func (p *Printer) Settings(s config.Settings) error {
	if p.format != FormatText {
		return p.encode(s)
	}
	var out strings.Builder
	for _, f := range config.Fields {
		v, err := s.Get(f)
		if err != nil {
			return err
		}
		p.field(&out, f, v)
	}
	_, err := io.WriteString(p.w, out.String())
	return err
}

// Value prints a single named value.
func (p *Printer) Value(name, value string) error {
	if p.format != FormatText {
		return p.encode(map[string]string{name: value})
	}
	_, err := fmt.Fprintln(p.w, value)
	return err
}

// Error prints err as a kind and a one-line message.
func Error(w io.Writer, format Format, err error) {
	var v errorView
	v.Error.Kind = storeerr.KindOf(err)
	v.Error.Message = strings.ReplaceAll(err.Error(), "\n", "; ")

	switch format {
	case FormatJSON:
		b, _ := json.Marshal(v)
		fmt.Fprintln(w, string(b))
	case FormatYAML:
		b, _ := yaml.Marshal(v)
		fmt.Fprint(w, string(b))
	default:
		style := lipgloss.NewRenderer(w).NewStyle().Foreground(salmonPink).Bold(true)
		fmt.Fprintf(w, "%s %s\n", style.Render("error ["+string(v.Error.Kind)+"]:"), v.Error.Message)
	}
}
