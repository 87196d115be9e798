package conduit

import "context"

// CalendarEvent covers calendar.event.search.
type CalendarEvent struct {
	ep Endpoint
}

// NewCalendarEvent returns the calendar.event module.
func NewCalendarEvent(c *Client) *CalendarEvent {
	return &CalendarEvent{ep: NewEndpoint(c, "calendar.event")}
}

// UpcomingBySubscriber returns upcoming events the user is subscribed to.
func (e *CalendarEvent) UpcomingBySubscriber(ctx context.Context, userPHID string) (Result, error) {
	return e.Search(ctx, "upcoming", Map(
		F("constraints", Map(F("subscribers", Strings(userPHID)))),
	))
}

// Search runs a saved query. Fields of extra are added after queryKey.
func (e *CalendarEvent) Search(ctx context.Context, queryKey string, extra Param) (Result, error) {
	params := Map(F("queryKey", String(queryKey))).Merge(extra)
	return e.ep.Call(ctx, "search", params)
}
