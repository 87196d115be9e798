package conduit

import "context"

// Endpoint binds a namespace to a client. Typed modules are built on it, and
// Factory.Module hands out raw endpoints for namespaces without one.
type Endpoint struct {
	client    *Client
	namespace string
}

// NewEndpoint returns an endpoint for namespace.
func NewEndpoint(client *Client, namespace string) Endpoint {
	return Endpoint{client: client, namespace: namespace}
}

// Namespace returns the method prefix, e.g. "calendar.event".
func (e Endpoint) Namespace() string {
	return e.namespace
}

// Call runs namespace.operation with manual encoding.
func (e Endpoint) Call(ctx context.Context, operation string, params Param) (Result, error) {
	return e.client.Call(ctx, e.namespace, operation, params, ManualEncoding)
}

// CallStandard runs namespace.operation with standard form encoding.
func (e Endpoint) CallStandard(ctx context.Context, operation string, params Param) (Result, error) {
	return e.client.Call(ctx, e.namespace, operation, params, StandardEncoding)
}
