package conduit

import "encoding/json"

// UserInfo is the result of user.whoami and the entries of user.query.
type UserInfo struct {
	PHID         string   `json:"phid"`
	UserName     string   `json:"userName"`
	RealName     string   `json:"realName"`
	PrimaryEmail string   `json:"primaryEmail"`
	Roles        []string `json:"roles"`
	URI          string   `json:"uri"`
}

func (u UserInfo) String() string {
	if u.RealName == "" {
		return u.UserName + " " + u.PHID
	}
	return u.UserName + " (" + u.RealName + ") " + u.PHID
}

// Task is one entry of maniphest.query.
type Task struct {
	ID           json.Number `json:"id"`
	PHID         string      `json:"phid"`
	ObjectName   string      `json:"objectName"`
	Title        string      `json:"title"`
	Status       string      `json:"status"`
	StatusName   string      `json:"statusName"`
	IsClosed     bool        `json:"isClosed"`
	Priority     string      `json:"priority"`
	OwnerPHID    string      `json:"ownerPHID"`
	ProjectPHIDs []string    `json:"projectPHIDs"`
	CCPHIDs      []string    `json:"ccPHIDs"`
	URI          string      `json:"uri"`
}

// InProject reports whether the task is tagged with the project.
func (t Task) InProject(projectPHID string) bool {
	for _, phid := range t.ProjectPHIDs {
		if phid == projectPHID {
			return true
		}
	}
	return false
}

// ProjectInfo is one entry of the "data" member of project.query.
type ProjectInfo struct {
	ID      json.Number `json:"id"`
	PHID    string      `json:"phid"`
	Name    string      `json:"name"`
	Members []string    `json:"members"`
	Slugs   []string    `json:"slugs"`
	Icon    string      `json:"icon"`
	Color   string      `json:"color"`
}

// ThreadInfo is one entry of conpherence.querythread.
type ThreadInfo struct {
	ID           json.Number `json:"conpherenceID"`
	PHID         string      `json:"conpherencePHID"`
	Title        string      `json:"conpherenceTitle"`
	MessageCount json.Number `json:"messageCount"`
	Participants []string    `json:"recentParticipantPHIDs"`
}

// RemarkupDocument is one rendered document of remarkup.process.
type RemarkupDocument struct {
	Content string `json:"content"`
}

// DecodeUserInfo decodes a user.whoami result.
func DecodeUserInfo(r Result) (UserInfo, error) {
	var u UserInfo
	err := r.Decode(&u)
	return u, err
}

// DecodeTasks decodes a maniphest.query result in server order.
func DecodeTasks(r Result) ([]Task, error) {
	return decodeEach[Task](r)
}

// DecodeProjects decodes the "data" member of a project.query result in
// server order.
func DecodeProjects(r Result) ([]ProjectInfo, error) {
	data, ok, err := r.Lookup("data")
	if err != nil || !ok {
		return nil, err
	}
	return decodeEach[ProjectInfo](data)
}

// DecodeThreads decodes a conpherence.querythread result in server order.
func DecodeThreads(r Result) ([]ThreadInfo, error) {
	return decodeEach[ThreadInfo](r)
}

// DecodeRemarkup decodes a remarkup.process result.
func DecodeRemarkup(r Result) ([]RemarkupDocument, error) {
	return decodeEach[RemarkupDocument](r)
}

func decodeEach[T any](r Result) ([]T, error) {
	var out []T
	err := r.Each(func(_ string, v Result) error {
		var item T
		if err := v.Decode(&item); err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	return out, err
}
