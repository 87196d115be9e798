package conduit

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Remarkup renders markup on the server.
type Remarkup struct {
	ep Endpoint
}

// NewRemarkup returns the remarkup module.
func NewRemarkup(c *Client) *Remarkup {
	return &Remarkup{ep: NewEndpoint(c, "remarkup")}
}

// Process renders contents in the given context, e.g. "maniphest".
func (r *Remarkup) Process(ctx context.Context, renderContext string, contents ...string) (Result, error) {
	return r.ep.Call(ctx, "process", Map(
		F("context", String(renderContext)),
		F("contents", Strings(contents...)),
	))
}

// Render processes contents and returns the rendered documents in order.
func (r *Remarkup) Render(ctx context.Context, renderContext string, contents ...string) ([]RemarkupDocument, error) {
	res, err := r.Process(ctx, renderContext, contents...)
	if err != nil {
		return nil, err
	}
	return DecodeRemarkup(res)
}

// PlainText strips rendered HTML down to its text with whitespace collapsed.
func PlainText(rendered string) (string, error) {
	root, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return "", NewDecodeError("remarkup.process", "invalid rendered HTML", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style").Remove()
	doc.Find("br, p, li, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Links returns the href of every anchor in rendered HTML, in document order.
func Links(rendered string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil, NewDecodeError("remarkup.process", "invalid rendered HTML", err)
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return links, nil
}
