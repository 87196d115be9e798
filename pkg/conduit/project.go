package conduit

import "context"

// Project covers project lookups.
type Project struct {
	ep Endpoint
}

// NewProject returns the project module.
func NewProject(c *Client) *Project {
	return &Project{ep: NewEndpoint(c, "project")}
}

// Open returns open projects.
func (p *Project) Open(ctx context.Context) (Result, error) {
	return p.Query(ctx, openParams())
}

// ByName returns projects with the given name.
func (p *Project) ByName(ctx context.Context, name string) (Result, error) {
	return p.Query(ctx, Map(F("names", Strings(name))))
}

// Query calls project.query.
func (p *Project) Query(ctx context.Context, params Param) (Result, error) {
	return p.ep.Call(ctx, "query", params)
}
