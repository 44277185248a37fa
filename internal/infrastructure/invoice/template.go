package invoice

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/invoice.html
var invoiceTemplateHTML string

// symbols for currencies the marketplace supports; anything else falls
// back to the ISO code as a prefix.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "CA$",
	"AUD": "A$",
	"JPY": "¥",
}

// Template renders InvoiceData into an HTML document ready for the
// PDF renderer. It compiles the embedded invoice template once.
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses the embedded invoice template
func NewTemplate() (*Template, error) {
	tmpl, err := template.New("invoice").Funcs(templateFuncs()).Parse(invoiceTemplateHTML)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateError, "failed to parse invoice template", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render binds the invoice data to the template
func (t *Template) Render(data *InvoiceData) (string, error) {
	if data == nil {
		return "", NewRenderError(ErrCodeTemplateError, "invoice data is nil", nil)
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeTemplateError, "failed to execute invoice template", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":      formatMoney,
		"date":       formatDate,
		"datetime":   formatDateTime,
		"title":      titleCase,
		"statusText": statusText,
	}
}

// formatMoney formats an amount with its currency symbol and thousand
// separators. Example: 1234.5 USD -> "$1,234.50"
func formatMoney(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	parts := strings.Split(amount.StringFixed(2), ".")
	intPart := parts[0]
	decPart := "00"
	if len(parts) > 1 {
		decPart = parts[1]
	}

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteRune(',')
		}
		grouped.WriteRune(c)
	}

	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	return sign + symbol + grouped.String() + "." + decPart
}

// formatDate formats a time value as a date string
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatDateTime formats a time value as a datetime string
func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// titleCase converts a string to title case using proper Unicode handling
func titleCase(s string) string {
	caser := cases.Title(language.English)
	return caser.String(s)
}

// statusText turns an order status constant into a printable label.
// Example: "PROCESSING" -> "Processing"
func statusText(status string) string {
	return titleCase(strings.ToLower(strings.ReplaceAll(status, "_", " ")))
}
