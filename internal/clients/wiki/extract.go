package wiki

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// rows whose name contains one of these are page chrome, not records
var chromeWords = []string{"Edit", "View", "Source"}

// ExtractTable parses an HTML page and maps the rows of its first
// table.wikitable to raw records. Header cells become lower-cased keys; the
// first column is the record name. Numeric cells are stored as numbers.
func ExtractTable(r io.Reader, dataType codex.DataType, baseURL string) ([]map[string]any, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeDataLoss, "malformed wiki page")
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, "wikitable")
	})
	if table == nil {
		return nil, errors.NotFound("page has no wikitable")
	}

	var headers []string
	rows := make([]map[string]any, 0)
	for _, tr := range findAll(table, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
		if headers == nil {
			if ths := children(tr, atom.Th); len(ths) > 0 {
				for _, th := range ths {
					headers = append(headers, headerKey(collectText(th)))
				}
				continue
			}
		}

		tds := children(tr, atom.Td)
		if len(tds) == 0 {
			continue
		}
		if row := buildRow(tds, headers, dataType, baseURL); row != nil {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, errors.NotFound("wikitable has no record rows")
	}
	return rows, nil
}

func buildRow(tds []*html.Node, headers []string, dataType codex.DataType, baseURL string) map[string]any {
	nameCell := tds[0]
	name := collectText(nameCell)
	link := findFirst(nameCell, func(n *html.Node) bool { return n.DataAtom == atom.A })
	if link != nil {
		if text := collectText(link); text != "" {
			name = text
		}
	}
	if len(name) < 2 {
		return nil
	}
	for _, w := range chromeWords {
		if strings.Contains(name, w) {
			return nil
		}
	}

	slug := codex.Slugify(name)
	row := map[string]any{
		"id":   slug,
		"slug": slug,
		"name": name,
		"type": string(dataType),
	}
	if link != nil {
		if href := attr(link, "href"); href != "" {
			if strings.HasPrefix(href, "/") {
				href = baseURL + href
			}
			row["wiki_url"] = href
		}
	}

	for i := 1; i < len(tds) && i < len(headers); i++ {
		key := headers[i]
		if key == "" || key == "id" || key == "slug" || key == "name" || key == "type" {
			continue
		}
		text := collectText(tds[i])
		if text == "" {
			continue
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64); err == nil {
			row[key] = f
			continue
		}
		row[key] = text
	}

	if _, ok := row["category"]; !ok {
		row["category"] = dataType.Singular()
	}
	return row
}

func headerKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for n := range root.Descendants() {
		if n.Type == html.ElementNode && match(n) {
			return n
		}
	}
	return nil
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for n := range root.Descendants() {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
	}
	return out
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func collectText(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
