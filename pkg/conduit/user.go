package conduit

import "context"

// User covers user lookups.
type User struct {
	ep Endpoint
}

// NewUser returns the user module.
func NewUser(c *Client) *User {
	return &User{ep: NewEndpoint(c, "user")}
}

// WhoAmI returns the user that owns the token.
func (u *User) WhoAmI(ctx context.Context) (Result, error) {
	return u.ep.Call(ctx, "whoami", Param{})
}

// ByPHIDs returns the users with the given PHIDs.
func (u *User) ByPHIDs(ctx context.Context, phids ...string) (Result, error) {
	return u.query(ctx, Map(F("phids", Strings(phids...))))
}

// Query returns all users.
func (u *User) Query(ctx context.Context) (Result, error) {
	return u.query(ctx, Param{})
}

func (u *User) query(ctx context.Context, params Param) (Result, error) {
	return u.ep.Call(ctx, "query", params)
}
