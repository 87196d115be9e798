package conduit

import "context"

// Phriction covers wiki pages.
type Phriction struct {
	ep Endpoint
}

// NewPhriction returns the phriction module.
func NewPhriction(c *Client) *Phriction {
	return &Phriction{ep: NewEndpoint(c, "phriction")}
}

// Info returns the page at slug.
func (p *Phriction) Info(ctx context.Context, slug string) (Result, error) {
	return p.ep.Call(ctx, "info", Map(F("slug", String(slug))))
}

// Edit replaces a page. Page content is free text, so this call uses
// standard form encoding.
func (p *Phriction) Edit(ctx context.Context, slug, title, content string) (Result, error) {
	return p.ep.CallStandard(ctx, "edit", Map(
		F("slug", String(slug)),
		F("title", String(title)),
		F("content", String(content)),
	))
}
