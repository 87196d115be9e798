// Package onsub reports open, subscribed tasks that need an admin's action
// to a Conpherence thread.
package onsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/state"
	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// ActionNeeded is the task status that gets reported.
const ActionNeeded = "actionneeded"

// Options configures one report run.
type Options struct {
	// Room is the Conpherence thread id messages are posted to.
	Room string
	// Project is the project name tasks must be tagged with.
	Project string
	// Ledger, when set, suppresses tasks already reported to Room and
	// records newly reported ones.
	Ledger state.Ledger
	// DryRun builds the report without posting or recording.
	DryRun bool
	Logger *logger.Logger
}

// Report is the outcome of one run.
type Report struct {
	UserPHID    string
	ProjectPHID string
	Reported    []conduit.Task
	Skipped     []conduit.Task // already in the ledger
	Messages    []string
	Posted      bool
}

// Message is the text posted to the thread.
func (r *Report) Message() string {
	return strings.Join(r.Messages, "\n")
}

// ReportedPHIDs returns the PHIDs of the reported tasks in order.
func (r *Report) ReportedPHIDs() []string {
	return phids(r.Reported)
}

// SkippedPHIDs returns the PHIDs of the skipped tasks in order.
func (r *Report) SkippedPHIDs() []string {
	return phids(r.Skipped)
}

// TaskMessage is the line posted for one task.
func TaskMessage(t conduit.Task) string {
	return fmt.Sprintf("%s needs action from an admin", t.ObjectName)
}

// Process looks up the token's user and the project, queries the user's
// open subscribed tasks and posts one line per action-needed task in the
// project to the room.
func Process(ctx context.Context, f *conduit.Factory, opts Options) (*Report, error) {
	if opts.Room == "" {
		return nil, errors.New("onsub: no room given")
	}
	if opts.Project == "" {
		return nil, errors.New("onsub: no project given")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("onsub")

	report := &Report{}

	res, err := f.User().WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	me, err := conduit.DecodeUserInfo(res)
	if err != nil {
		return nil, err
	}
	if me.PHID == "" {
		return nil, conduit.NewDecodeError("user.whoami", "result has no phid", nil)
	}
	report.UserPHID = me.PHID

	res, err = f.Project().ByName(ctx, opts.Project)
	if err != nil {
		return nil, err
	}
	projects, err := conduit.DecodeProjects(res)
	if err != nil {
		return nil, err
	}
	if len(projects) > 0 {
		report.ProjectPHID = projects[0].PHID
	} else {
		log.WithField("project", opts.Project).Warn("project not found, nothing can match")
	}

	res, err = f.Maniphest().OpenAndSubscribed(ctx, me.PHID)
	if err != nil {
		return nil, err
	}
	tasks, err := conduit.DecodeTasks(res)
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.Status != ActionNeeded {
			continue
		}
		if report.ProjectPHID == "" || !task.InProject(report.ProjectPHID) {
			continue
		}
		if opts.Ledger != nil {
			seen, err := opts.Ledger.Seen(opts.Room, task.PHID)
			if err != nil {
				return nil, fmt.Errorf("onsub: ledger lookup: %w", err)
			}
			if seen {
				report.Skipped = append(report.Skipped, task)
				continue
			}
		}
		report.Reported = append(report.Reported, task)
		report.Messages = append(report.Messages, TaskMessage(task))
	}

	log.WithFields(map[string]interface{}{
		"subscribed": len(tasks),
		"reported":   len(report.Reported),
		"skipped":    len(report.Skipped),
	}).Debug("tasks filtered")

	if len(report.Messages) == 0 || opts.DryRun {
		return report, nil
	}

	if _, err := f.Conpherence().UpdateThread(ctx, opts.Room, report.Message()); err != nil {
		return report, err
	}
	report.Posted = true

	if opts.Ledger != nil {
		if err := opts.Ledger.Record(opts.Room, report.ReportedPHIDs()...); err != nil {
			return report, fmt.Errorf("onsub: record reported tasks: %w", err)
		}
	}
	return report, nil
}

func phids(tasks []conduit.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.PHID
	}
	return out
}
