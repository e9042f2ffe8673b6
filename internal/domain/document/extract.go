package document

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// LineItem is one priced row from a quote or invoice table.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// SumLineItems adds up item totals.
func SumLineItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return sum
}

var tableParser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

type columnRole int

const (
	colOther columnRole = iota
	colDescription
	colQuantity
	colUnit
	colPrice
	colTotal
)

func roleOf(header string) columnRole {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case h == "unit" || h == "uom" || h == "units":
		return colUnit
	case strings.Contains(h, "qty") || strings.Contains(h, "quantity"):
		return colQuantity
	case strings.Contains(h, "total") || strings.Contains(h, "amount") || strings.Contains(h, "subtotal"):
		return colTotal
	case strings.Contains(h, "price") || strings.Contains(h, "rate") || strings.Contains(h, "cost"):
		return colPrice
	case strings.Contains(h, "description") || strings.Contains(h, "item") || strings.Contains(h, "material") ||
		strings.Contains(h, "task") || strings.Contains(h, "service"):
		return colDescription
	}
	return colOther
}

// tables returns every markdown table as rows of cell text, header first.
func tables(markdown string) [][][]string {
	src := []byte(markdown)
	doc := tableParser.Parse(text.NewReader(src))

	var out [][][]string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		table, ok := n.(*extast.Table)
		if !ok {
			return ast.WalkContinue, nil
		}
		var rows [][]string
		for row := table.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, strings.TrimSpace(nodeText(cell, src)))
			}
			rows = append(rows, cells)
		}
		out = append(out, rows)
		return ast.WalkSkipChildren, nil
	})
	return out
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// ExtractLineItems reads priced rows from markdown tables whose header names
// a description column and a price or total column. Rows without a usable
// amount are skipped.
func ExtractLineItems(markdown string) []LineItem {
	var items []LineItem
	for _, table := range tables(markdown) {
		if len(table) < 2 {
			continue
		}
		roles := make([]columnRole, len(table[0]))
		hasDesc, hasAmount := false, false
		for i, h := range table[0] {
			roles[i] = roleOf(h)
			hasDesc = hasDesc || roles[i] == colDescription
			hasAmount = hasAmount || roles[i] == colPrice || roles[i] == colTotal
		}
		if !hasDesc || !hasAmount {
			continue
		}

		for _, row := range table[1:] {
			item := LineItem{Quantity: decimal.NewFromInt(1)}
			var price, total *decimal.Decimal
			for i, cell := range row {
				if i >= len(roles) {
					break
				}
				switch roles[i] {
				case colDescription:
					item.Description = cell
				case colQuantity:
					if q, ok := parseAmount(cell); ok {
						item.Quantity = q
					}
				case colUnit:
					item.Unit = cell
				case colPrice:
					if v, ok := parseAmount(cell); ok {
						price = &v
					}
				case colTotal:
					if v, ok := parseAmount(cell); ok {
						total = &v
					}
				}
			}
			if item.Description == "" || strings.EqualFold(item.Description, "total") {
				continue
			}
			switch {
			case total != nil:
				item.Total = *total
				if price != nil {
					item.UnitPrice = *price
				} else if !item.Quantity.IsZero() {
					item.UnitPrice = total.Div(item.Quantity).Round(2)
				}
			case price != nil:
				item.UnitPrice = *price
				item.Total = price.Mul(item.Quantity).Round(2)
			default:
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

var specLine = regexp.MustCompile(`^\s*(?:[-*]\s+)?\**([A-Za-z][A-Za-z0-9 /()._-]{0,40}?)\**\s*:\s*(.+?)\s*$`)

// ExtractSpecs reads "Key: Value" lines and two-column tables.
func ExtractSpecs(markdown string) map[string]string {
	specs := map[string]string{}
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			continue
		}
		m := specLine.FindStringSubmatch(line)
		if m == nil || strings.HasPrefix(strings.TrimSpace(m[2]), "//") {
			continue
		}
		specs[strings.ToLower(strings.TrimSpace(m[1]))] = m[2]
	}
	for _, table := range tables(markdown) {
		if len(table) == 0 || len(table[0]) != 2 {
			continue
		}
		for _, row := range table[1:] {
			if len(row) == 2 && row[0] != "" && row[1] != "" {
				specs[strings.ToLower(row[0])] = row[1]
			}
		}
	}
	if len(specs) == 0 {
		return nil
	}
	return specs
}

var amountCleaner = strings.NewReplacer("$", "", ",", "", "USD", "", "usd", "", " ", "")

func parseAmount(s string) (decimal.Decimal, bool) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
