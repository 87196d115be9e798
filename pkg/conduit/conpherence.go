package conduit

import "context"

// Conpherence covers chat threads.
type Conpherence struct {
	ep Endpoint
}

// NewConpherence returns the conpherence module.
func NewConpherence(c *Client) *Conpherence {
	return &Conpherence{ep: NewEndpoint(c, "conpherence")}
}

// UpdateThread posts message to the thread. The message is sent unescaped.
func (c *Conpherence) UpdateThread(ctx context.Context, room, message string) (Result, error) {
	return c.ep.Call(ctx, "updatethread", Map(
		F("id", String(room)),
		F("message", String(message)),
	))
}

// QueryThreadByID returns one thread.
func (c *Conpherence) QueryThreadByID(ctx context.Context, roomID string) (Result, error) {
	return c.queryThread(ctx, Map(F("ids", Strings(roomID))))
}

// QueryThread returns the threads visible to the user.
func (c *Conpherence) QueryThread(ctx context.Context) (Result, error) {
	return c.queryThread(ctx, Param{})
}

// QueryTransactionByPHIDLast returns the last transactions of a thread.
func (c *Conpherence) QueryTransactionByPHIDLast(ctx context.Context, roomPHID string, last int) (Result, error) {
	return c.ep.Call(ctx, "querytransaction", Map(
		F("roomPHID", String(roomPHID)),
		F("limit", Int(last)),
	))
}

func (c *Conpherence) queryThread(ctx context.Context, params Param) (Result, error) {
	return c.ep.Call(ctx, "querythread", params)
}
