package conduit

// Factory hands out endpoint modules that share one client and credential.
type Factory struct {
	client *Client
}

// NewFactory builds a client for cred and returns a factory around it.
func NewFactory(cred Credential, opts ...Option) *Factory {
	return &Factory{client: New(cred, opts...)}
}

// NewFactoryFromClient wraps an existing client.
func NewFactoryFromClient(c *Client) *Factory {
	return &Factory{client: c}
}

// Client returns the shared client.
func (f *Factory) Client() *Client { return f.client }

// Module returns a raw endpoint for any namespace.
func (f *Factory) Module(namespace string) Endpoint {
	return NewEndpoint(f.client, namespace)
}

func (f *Factory) Maniphest() *Maniphest         { return NewManiphest(f.client) }
func (f *Factory) User() *User                   { return NewUser(f.client) }
func (f *Factory) Project() *Project             { return NewProject(f.client) }
func (f *Factory) CalendarEvent() *CalendarEvent { return NewCalendarEvent(f.client) }
func (f *Factory) Conpherence() *Conpherence     { return NewConpherence(f.client) }
func (f *Factory) Phriction() *Phriction         { return NewPhriction(f.client) }
func (f *Factory) File() *File                   { return NewFile(f.client) }
func (f *Factory) Dashboard() *Dashboard         { return NewDashboard(f.client) }
func (f *Factory) Diffusion() *Diffusion         { return NewDiffusion(f.client) }
func (f *Factory) Conduit() *ConduitInfo         { return NewConduitInfo(f.client) }
func (f *Factory) Remarkup() *Remarkup           { return NewRemarkup(f.client) }

// Close releases the client's idle connections.
func (f *Factory) Close() { f.client.Close() }
