package chat

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/intent"
)

var reportRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Payload views of stored agent results. Only the fields rendered here are
// decoded.
type (
	costLine struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		Unit        string          `json:"unit"`
		UnitCost    decimal.Decimal `json:"unit_cost"`
		Total       decimal.Decimal `json:"total"`
	}
	costView struct {
		ProjectType      string          `json:"project_type"`
		Region           string          `json:"region"`
		Complexity       string          `json:"complexity"`
		AreaSqFt         decimal.Decimal `json:"area_sqft"`
		Materials        []costLine      `json:"materials"`
		Labor            []costLine      `json:"labor"`
		MaterialSubtotal decimal.Decimal `json:"material_subtotal"`
		LaborSubtotal    decimal.Decimal `json:"labor_subtotal"`
		TotalCost        decimal.Decimal `json:"total_cost"`
		Range            struct {
			Low  decimal.Decimal `json:"low"`
			High decimal.Decimal `json:"high"`
		} `json:"range"`
		Confidence float64 `json:"confidence"`
	}
	guideView struct {
		Project    string  `json:"project"`
		Difficulty string  `json:"difficulty"`
		TotalHours float64 `json:"total_hours"`
		Steps      []struct {
			Title  string  `json:"title"`
			Detail string  `json:"detail"`
			Hours  float64 `json:"hours"`
		} `json:"steps"`
		Tools       []string `json:"tools"`
		Materials   []string `json:"materials"`
		SafetyNotes []string `json:"safety_notes"`
		CallAPro    bool     `json:"call_a_pro"`
	}
	fitView struct {
		Product struct {
			Name     string  `json:"name"`
			Brand    string  `json:"brand"`
			Price    string  `json:"price"`
			WidthIn  float64 `json:"width_in"`
			DepthIn  float64 `json:"depth_in"`
			HeightIn float64 `json:"height_in"`
		} `json:"product"`
		WillFit  bool     `json:"will_fit"`
		Warnings []string `json:"warnings"`
	}
	matchView struct {
		Room struct {
			Name string `json:"name"`
		} `json:"room"`
		Category   string    `json:"category"`
		Requested  *fitView  `json:"requested"`
		Candidates []fitView `json:"candidates"`
	}
	designView struct {
		Mode   string   `json:"mode"`
		Style  string   `json:"style"`
		Images []string `json:"images"`
	}
)

// ShoppingItem is one line of a shopping list.
type ShoppingItem struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	Quantity      string `json:"quantity,omitempty"`
	Unit          string `json:"unit,omitempty"`
	EstimatedCost string `json:"estimated_cost,omitempty"`
}

// ShoppingList is the make_shopping_list result.
type ShoppingList struct {
	Source         conversation.AgentResultKind `json:"source"`
	Project        string                       `json:"project"`
	Items          []ShoppingItem               `json:"items"`
	EstimatedTotal string                       `json:"estimated_total,omitempty"`
}

// Report is the export_pdf result.
type Report struct {
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Sections    []string  `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildShoppingList derives a list from a stored cost estimate or DIY guide.
func BuildShoppingList(stored *conversation.AgentResult) (ShoppingList, error) {
	list := ShoppingList{Source: stored.Kind, Items: []ShoppingItem{}}
	switch stored.Kind {
	case conversation.AgentResultCostEstimate:
		var est costView
		if err := stored.Decode(&est); err != nil {
			return list, err
		}
		list.Project = est.ProjectType
		for _, l := range est.Materials {
			list.Items = append(list.Items, ShoppingItem{
				Name:          l.Description,
				Category:      "material",
				Quantity:      l.Quantity.String(),
				Unit:          l.Unit,
				EstimatedCost: l.Total.StringFixed(2),
			})
		}
		if len(est.Materials) == 0 && est.MaterialSubtotal.IsPositive() {
			// Baseline estimates have no itemized materials.
			list.Items = append(list.Items, ShoppingItem{
				Name:          humanize(est.ProjectType) + " materials",
				Category:      "material",
				Quantity:      est.AreaSqFt.String(),
				Unit:          "sq ft",
				EstimatedCost: est.MaterialSubtotal.StringFixed(2),
			})
		}
		list.EstimatedTotal = est.MaterialSubtotal.StringFixed(2)
	case conversation.AgentResultDIYGuide:
		var g guideView
		if err := stored.Decode(&g); err != nil {
			return list, err
		}
		list.Project = g.Project
		for _, m := range g.Materials {
			list.Items = append(list.Items, ShoppingItem{Name: m, Category: "material"})
		}
		for _, tool := range g.Tools {
			list.Items = append(list.Items, ShoppingItem{Name: tool, Category: "tool"})
		}
	default:
		return list, fmt.Errorf("cannot build a shopping list from %s", stored.Kind)
	}
	return list, nil
}

func shoppingList(history []*conversation.Message) actionOutcome {
	out := actionOutcome{intent: intent.CostEstimate}
	source := lastAgentResult(history, conversation.AgentResultCostEstimate, conversation.AgentResultDIYGuide)
	if source == nil {
		out.status = StatusNeedsInput
		out.missing = []string{"project_scope"}
		out.text = "I need an estimate or a DIY guide from this conversation to build a shopping list. " +
			"Tell me about the project and I'll start there."
		return out
	}
	if source.Kind == conversation.AgentResultDIYGuide {
		out.intent = intent.DIYGuide
	}

	list, err := BuildShoppingList(source)
	if err == nil {
		out.stored, err = conversation.NewAgentResult(conversation.AgentResultShoppingList, list)
	}
	if err != nil {
		out.status = StatusError
		out.text = "I couldn't read the earlier result to build a shopping list."
		return out
	}
	out.status = StatusOK
	out.text = describeResult(out.stored)
	return out
}

// describeResult is the short reply stored with an action result.
func describeResult(stored *conversation.AgentResult) string {
	switch stored.Kind {
	case conversation.AgentResultCostEstimate:
		var est costView
		if stored.Decode(&est) == nil {
			return fmt.Sprintf("Estimated cost for %s: $%s (likely range $%s to $%s). Materials $%s, labor $%s.",
				humanize(est.ProjectType), est.TotalCost.StringFixed(2), est.Range.Low.StringFixed(2),
				est.Range.High.StringFixed(2), est.MaterialSubtotal.StringFixed(2), est.LaborSubtotal.StringFixed(2))
		}
	case conversation.AgentResultProductMatch:
		var m matchView
		if stored.Decode(&m) == nil {
			fits := 0
			for _, c := range m.Candidates {
				if c.WillFit {
					fits++
				}
			}
			text := fmt.Sprintf("I checked %d %s options for the %s and %d will fit.", len(m.Candidates),
				humanize(m.Category), m.Room.Name, fits)
			if m.Requested != nil {
				verdict := "fits"
				if !m.Requested.WillFit {
					verdict = "does not fit: " + strings.Join(m.Requested.Warnings, "; ")
				}
				text += fmt.Sprintf(" %s %s.", m.Requested.Product.Name, verdict)
			}
			return text
		}
	case conversation.AgentResultDIYGuide:
		var g guideView
		if stored.Decode(&g) == nil {
			text := fmt.Sprintf("DIY guide for %s: %s, about %.1f hours over %d steps.", g.Project, g.Difficulty,
				g.TotalHours, len(g.Steps))
			if g.CallAPro {
				text += " Parts of this job are best left to a licensed pro."
			}
			return text
		}
	case conversation.AgentResultDesign:
		var d designView
		if stored.Decode(&d) == nil {
			return fmt.Sprintf("Here are %d design images.", len(d.Images))
		}
	case conversation.AgentResultShoppingList:
		var l ShoppingList
		if stored.Decode(&l) == nil {
			text := fmt.Sprintf("Shopping list for %s with %d items.", humanize(l.Project), len(l.Items))
			if l.EstimatedTotal != "" {
				text += fmt.Sprintf(" Estimated materials cost $%s.", l.EstimatedTotal)
			}
			return text
		}
	case conversation.AgentResultReport:
		var r Report
		if stored.Decode(&r) == nil {
			return "Your report is ready: " + r.URL
		}
	}
	return "Done."
}

func (s *Service) exportReport(ctx context.Context, conv *conversation.Conversation, history []*conversation.Message) actionOutcome {
	out := actionOutcome{intent: intent.PDFRequest}
	if s.deps.Files == nil {
		out.status = StatusError
		out.text = "Reports can't be saved right now."
		s.log.Warn().Err(errNoFileStore).Msg("export skipped")
		return out
	}

	markdown, sections := ReportMarkdown(conv, history, time.Now().UTC())
	var body bytes.Buffer
	if err := reportRenderer.Convert([]byte(markdown), &body); err != nil {
		out.status = StatusError
		out.text = "I couldn't render the report."
		s.log.Warn().Err(err).Msg("report render failed")
		return out
	}
	page := fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title>"+
		"<style>body{font-family:sans-serif;max-width:48em;margin:2em auto}table{border-collapse:collapse}"+
		"td,th{border:1px solid #ccc;padding:4px 8px}</style></head><body>\n%s</body></html>\n",
		html.EscapeString(conv.Title), body.String())

	stored, err := s.deps.Files.Save(ctx, "report-"+conv.PublicID+".html", "text/html; charset=utf-8", []byte(page))
	if err != nil {
		out.status = StatusError
		out.text = "I couldn't save the report."
		s.log.Warn().Err(err).Msg("report save failed")
		return out
	}

	report := Report{URL: stored.URL, Filename: stored.Filename, Sections: sections, GeneratedAt: time.Now().UTC()}
	out.stored, err = conversation.NewAgentResult(conversation.AgentResultReport, report)
	if err != nil {
		out.status = StatusError
		out.text = "I couldn't save the report."
		return out
	}
	out.status = StatusOK
	out.text = describeResult(out.stored)
	return out
}

// ReportMarkdown renders the latest result of each kind in history plus the
// recent exchange. It returns the markdown and the section titles written.
func ReportMarkdown(conv *conversation.Conversation, history []*conversation.Message, now time.Time) (string, []string) {
	var b strings.Builder
	var sections []string
	fmt.Fprintf(&b, "# %s\n\nGenerated %s\n\n", conv.Title, now.Format("January 2, 2006"))

	if stored := lastAgentResult(history, conversation.AgentResultCostEstimate); stored != nil {
		var est costView
		if stored.Decode(&est) == nil {
			sections = append(sections, "Cost estimate")
			fmt.Fprintf(&b, "## Cost estimate\n\n%s, %s complexity, region %s, %s sq ft.\n\n",
				humanize(est.ProjectType), est.Complexity, est.Region, est.AreaSqFt.String())
			b.WriteString("| Item | Quantity | Unit cost | Total |\n|---|---|---|---|\n")
			for _, l := range append(append([]costLine{}, est.Materials...), est.Labor...) {
				fmt.Fprintf(&b, "| %s | %s %s | $%s | $%s |\n", cell(l.Description), l.Quantity.String(), cell(l.Unit),
					l.UnitCost.StringFixed(2), l.Total.StringFixed(2))
			}
			fmt.Fprintf(&b, "\n**Total: $%s** (range $%s to $%s, confidence %.0f%%)\n\n", est.TotalCost.StringFixed(2),
				est.Range.Low.StringFixed(2), est.Range.High.StringFixed(2), est.Confidence*100)
		}
	}

	if stored := lastAgentResult(history, conversation.AgentResultDIYGuide); stored != nil {
		var g guideView
		if stored.Decode(&g) == nil {
			sections = append(sections, "DIY guide")
			fmt.Fprintf(&b, "## DIY guide: %s\n\nDifficulty %s, about %.1f hours.\n\n", g.Project, g.Difficulty, g.TotalHours)
			for i, st := range g.Steps {
				fmt.Fprintf(&b, "%d. **%s** %s\n", i+1, st.Title, st.Detail)
			}
			if len(g.SafetyNotes) > 0 {
				b.WriteString("\n**Safety**\n\n")
				for _, n := range g.SafetyNotes {
					fmt.Fprintf(&b, "- %s\n", n)
				}
			}
			b.WriteString("\n")
		}
	}

	if stored := lastAgentResult(history, conversation.AgentResultProductMatch); stored != nil {
		var m matchView
		if stored.Decode(&m) == nil {
			sections = append(sections, "Products")
			fmt.Fprintf(&b, "## Products for %s\n\n| Product | Size (in) | Price | Fits |\n|---|---|---|---|\n", m.Room.Name)
			for _, c := range m.Candidates {
				fits := "yes"
				if !c.WillFit {
					fits = "no"
				}
				fmt.Fprintf(&b, "| %s | %.0f x %.0f x %.0f | %s | %s |\n", cell(c.Product.Name), c.Product.WidthIn,
					c.Product.DepthIn, c.Product.HeightIn, cell(c.Product.Price), fits)
			}
			b.WriteString("\n")
		}
	}

	if stored := lastAgentResult(history, conversation.AgentResultShoppingList); stored != nil {
		var l ShoppingList
		if stored.Decode(&l) == nil {
			sections = append(sections, "Shopping list")
			b.WriteString("## Shopping list\n\n")
			for _, it := range l.Items {
				fmt.Fprintf(&b, "- %s (%s)\n", it.Name, it.Category)
			}
			b.WriteString("\n")
		}
	}

	if stored := lastAgentResult(history, conversation.AgentResultDesign); stored != nil {
		var d designView
		if stored.Decode(&d) == nil && len(d.Images) > 0 {
			sections = append(sections, "Design")
			b.WriteString("## Design\n\n")
			for _, img := range d.Images {
				fmt.Fprintf(&b, "![design](%s)\n", img)
			}
			b.WriteString("\n")
		}
	}

	sections = append(sections, "Conversation")
	b.WriteString("## Conversation\n\n")
	start := len(history) - 10
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		who := "You"
		if m.Role == conversation.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", who, m.Content)
	}
	return b.String(), sections
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

func humanize(s string) string {
	if s == "" {
		return "your project"
	}
	return strings.ReplaceAll(s, "_", " ")
}
