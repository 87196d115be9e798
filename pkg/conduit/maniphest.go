package conduit

import "context"

// Task statuses used when closing tasks.
const (
	StatusResolved = "resolved"
	StatusInvalid  = "invalid"
)

// Maniphest covers the task tracker.
type Maniphest struct {
	ep Endpoint
}

// NewManiphest returns the maniphest module.
func NewManiphest(c *Client) *Maniphest {
	return &Maniphest{ep: NewEndpoint(c, "maniphest")}
}

// Open returns every open task.
func (m *Maniphest) Open(ctx context.Context) (Result, error) {
	return m.Query(ctx, openParams())
}

// OpenAndSubscribed returns open tasks the user is subscribed to.
func (m *Maniphest) OpenAndSubscribed(ctx context.Context, userPHID string) (Result, error) {
	return m.Query(ctx, openParams().Set("ccPHIDs", Strings(userPHID)))
}

// OpenByProjectPHID returns open tasks tagged with the project.
func (m *Maniphest) OpenByProjectPHID(ctx context.Context, projectPHID string) (Result, error) {
	return m.Query(ctx, openParams().Set("projectPHIDs", Strings(projectPHID)))
}

// CommentByID adds a comment to a task. The message is sent as-is; escape
// it with Quote if it may contain '&', '=' or '%'.
func (m *Maniphest) CommentByID(ctx context.Context, taskID int, message string) (Result, error) {
	return m.Update(ctx, commentParams(taskID, message))
}

// ResolveByID closes a task as resolved.
func (m *Maniphest) ResolveByID(ctx context.Context, taskID int) (Result, error) {
	return m.closeByID(ctx, taskID, StatusResolved)
}

// InvalidByID closes a task as invalid.
func (m *Maniphest) InvalidByID(ctx context.Context, taskID int) (Result, error) {
	return m.closeByID(ctx, taskID, StatusInvalid)
}

func (m *Maniphest) closeByID(ctx context.Context, taskID int, status string) (Result, error) {
	params := commentParams(taskID, "marking closed").Set("status", String(status))
	return m.Update(ctx, params)
}

// Query calls maniphest.query.
func (m *Maniphest) Query(ctx context.Context, params Param) (Result, error) {
	return m.ep.Call(ctx, "query", params)
}

// Update calls maniphest.update.
func (m *Maniphest) Update(ctx context.Context, params Param) (Result, error) {
	return m.ep.Call(ctx, "update", params)
}

func openParams() Param {
	return Map(F("status", String("status-open")))
}

func commentParams(taskID int, message string) Param {
	return Map(
		F("id", Int(taskID)),
		F("comments", String(message)),
	)
}
