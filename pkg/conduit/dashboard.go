package conduit

import "context"

// Dashboard covers dashboard panels.
type Dashboard struct {
	ep Endpoint
}

// NewDashboard returns the dashboard module.
func NewDashboard(c *Client) *Dashboard {
	return &Dashboard{ep: NewEndpoint(c, "dashboard")}
}

// EditPanelText replaces the text of a text panel. The text is escaped with
// Quote before it goes into the manual body.
func (d *Dashboard) EditPanelText(ctx context.Context, identifier, text string) (Result, error) {
	return d.ep.Call(ctx, "panel.edit", Map(
		F("transactions", List(Map(
			F("type", String("custom.text")),
			F("value", String(Quote(text))),
		))),
		F("objectIdentifier", String(identifier)),
	))
}
