package shelves

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"shelftags/internal/textutil"
)

var (
	shelfStatSelector = cascadia.MustCompile("div.shelfStat")
	shelfNameSelector = cascadia.MustCompile("a.actionLinkLite")
	shelfCountSelect  = cascadia.MustCompile("div.smallText a")
)

// HTMLParser reads the vendor shelves page markup. Each div.shelfStat holds
// the shelf name in a.actionLinkLite and the count as the first token of the
// link inside div.smallText.
type HTMLParser struct{}

// Parse decodes raw as UTF-8 (invalid bytes replaced), strips control
// characters, and collects shelf counts. Entries missing either part are
// skipped; a page with no usable entries is an ErrParse.
func (HTMLParser) Parse(raw []byte) (map[string]int, error) {
	decoded, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrParse, err)
	}
	text := strings.TrimSpace(textutil.CleanControlChars(string(decoded)))
	if text == "" {
		return nil, fmt.Errorf("%w: empty page", ErrParse)
	}

	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	shelves := make(map[string]int)
	for _, stat := range cascadia.QueryAll(root, shelfStatSelector) {
		nameNode := cascadia.Query(stat, shelfNameSelector)
		countNode := cascadia.Query(stat, shelfCountSelect)
		if nameNode == nil || countNode == nil {
			continue
		}
		name := textutil.CollapseSpace(textContent(nameNode))
		if name == "" {
			continue
		}
		count, ok := textutil.ParseCount(textContent(countNode))
		if !ok {
			continue
		}
		shelves[name] = count
	}
	if len(shelves) == 0 {
		return nil, fmt.Errorf("%w: no shelf entries found", ErrParse)
	}
	return shelves, nil
}

func textContent(n *html.Node) string {
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return buf.String()
}
