package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"laptopkita/internal/catalog"
)

const gridColumns = 2

var rupiah = message.NewPrinter(language.Indonesian)

// FormatRupiah renders a price the way listings show it, e.g. "Rp. 1.500.000".
func FormatRupiah(amount int64) string {
	return "Rp. " + rupiah.Sprintf("%d", amount)
}

// Filter keeps items whose title or brand contains query, ignoring case.
func Filter(items []catalog.Laptop, query string) []catalog.Laptop {
	fold := cases.Fold()
	q := strings.TrimSpace(fold.String(query))
	if q == "" {
		return items
	}
	out := make([]catalog.Laptop, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(it.Title), q) || strings.Contains(fold.String(it.Brand), q) {
			out = append(out, it)
		}
	}
	return out
}

// shareMessage is the plain-text blurb handed to whatever the user shares with.
func shareMessage(it catalog.Laptop, images ImageLinker) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check out my laptop: %s\n", it.Title)
	fmt.Fprintf(&b, "Brand: %s\n", it.Brand)
	fmt.Fprintf(&b, "Price: %s", FormatRupiah(it.Price))
	if it.ImageID != "" {
		fmt.Fprintf(&b, "\n%s", images.ImageURL(it.ImageID))
	}
	return b.String()
}

type ImageLinker interface {
	ImageURL(imageID string) string
}

func renderList(w io.Writer, items []catalog.Laptop, images ImageLinker) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tBRAND\tPRICE\tIMAGE")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Brand, FormatRupiah(it.Price), images.ImageURL(it.ImageID))
	}
	return tw.Flush()
}

// renderGrid lays items out as cards, gridColumns per row.
func renderGrid(w io.Writer, items []catalog.Laptop) error {
	tw := tabwriter.NewWriter(w, 0, 0, 4, ' ', 0)
	for start := 0; start < len(items); start += gridColumns {
		end := min(start+gridColumns, len(items))
		row := items[start:end]
		cells := func(f func(catalog.Laptop) string) {
			parts := make([]string, len(row))
			for i, it := range row {
				parts[i] = f(it)
			}
			fmt.Fprintln(tw, strings.Join(parts, "\t")+"\t")
		}
		cells(func(it catalog.Laptop) string { return fmt.Sprintf("#%d %s", it.ID, it.Title) })
		cells(func(it catalog.Laptop) string { return it.Brand })
		cells(func(it catalog.Laptop) string { return FormatRupiah(it.Price) })
		fmt.Fprintln(tw, strings.Repeat("\t", len(row)))
	}
	return tw.Flush()
}
