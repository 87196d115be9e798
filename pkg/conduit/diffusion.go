package conduit

import "context"

// Diffusion covers repository browsing.
type Diffusion struct {
	ep Endpoint
}

// NewDiffusion returns the diffusion module.
func NewDiffusion(c *Client) *Diffusion {
	return &Diffusion{ep: NewEndpoint(c, "diffusion")}
}

// FileContentByPathBranch returns a file at path on branch of the repository
// with the given callsign.
func (d *Diffusion) FileContentByPathBranch(ctx context.Context, path, callsign, branch string) (Result, error) {
	return d.ep.Call(ctx, "filecontentquery", Map(
		F("path", String(path)),
		F("repository", String("r"+callsign)),
		F("branch", String(branch)),
	))
}
