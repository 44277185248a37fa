// Package invoice generates PDF invoices for paid orders.
//
// This package contains:
// - InvoiceData, the immutable snapshot an invoice is rendered from
// - Template, the html/template based invoice layout
// - PDFRenderer interface for rendering HTML to PDF
// - ChromedpRenderer implementation using the Chrome DevTools Protocol
// - Generator, which ties the three together for the order endpoint
//
// Example usage:
//
//	tmpl, err := NewTemplate()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	gen := NewGenerator(tmpl, renderer, "TAIC Marketplace", "USD", logger)
//	result, err := gen.Generate(ctx, ord, "Blue Bottle Ceramics")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Generated invoice: %d bytes\n", len(result.PDFData))
package invoice
