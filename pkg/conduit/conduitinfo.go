package conduit

import "context"

// ConduitInfo covers the conduit namespace itself.
type ConduitInfo struct {
	ep Endpoint
}

// NewConduitInfo returns the conduit module.
func NewConduitInfo(c *Client) *ConduitInfo {
	return &ConduitInfo{ep: NewEndpoint(c, "conduit")}
}

// Ping returns the server host name.
func (c *ConduitInfo) Ping(ctx context.Context) (Result, error) {
	return c.ep.Call(ctx, "ping", Param{})
}

// Capabilities lists the authentication and input formats the server accepts.
func (c *ConduitInfo) Capabilities(ctx context.Context) (Result, error) {
	return c.ep.Call(ctx, "getcapabilities", Param{})
}
