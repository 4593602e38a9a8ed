// src/parsers/clipboard.go
package parsers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoTable = errors.New("no table found in pasted HTML")

// LooksLikeHTMLTable reports whether a pasted payload is a spreadsheet
// clipboard fragment rather than plain text.
func LooksLikeHTMLTable(s string) bool {
	return strings.Contains(strings.ToLower(s), "<table")
}

// HTMLTableToText flattens the first table of an HTML clipboard fragment into
// tab-delimited lines, one per <tr>.
func HTMLTableToText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing clipboard html: %w", err)
	}
	table := findFirst(doc, atom.Table)
	if table == nil {
		return "", ErrNoTable
	}

	var lines []string
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Tr {
				lines = append(lines, rowText(c))
				continue
			}
			walkRows(c)
		}
	}
	walkRows(table)
	return strings.Join(lines, "\n"), nil
}

func rowText(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			var sb strings.Builder
			collectText(c, &sb)
			cells = append(cells, strings.Join(strings.Fields(sb.String()), " "))
		}
	}
	return strings.Join(cells, "\t")
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Br {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// WorkbookToText reads the first sheet of an .xlsx workbook as tab-delimited
// lines using the cells' displayed values.
func WorkbookToText(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n"), nil
}
