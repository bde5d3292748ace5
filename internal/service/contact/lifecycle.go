package contact

import (
	"strings"
	"time"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/repository"
)

// Action is an administrative operation on an existing contact.
type Action string

const (
	ActionMarkRead    Action = "markAsRead"
	ActionMarkReplied Action = "markAsReplied"
	ActionArchive     Action = "markAsArchived"
	ActionSetPriority Action = "setPriority"
	ActionAddNote     Action = "addNote"
)

func (a Action) String() string { return string(a) }

var actionAliases = map[string]Action{
	"markasread":     ActionMarkRead,
	"read":           ActionMarkRead,
	"markasreplied":  ActionMarkReplied,
	"replied":        ActionMarkReplied,
	"markasarchived": ActionArchive,
	"archive":        ActionArchive,
	"archived":       ActionArchive,
	"setpriority":    ActionSetPriority,
	"priority":       ActionSetPriority,
	"addnote":        ActionAddNote,
	"note":           ActionAddNote,
}

// ParseAction accepts the canonical action names case-insensitively, plus a
// few short aliases ("read", "replied", "archive", "priority", "note").
func ParseAction(s string) (Action, bool) {
	a, ok := actionAliases[strings.ToLower(strings.TrimSpace(s))]
	return a, ok
}

// Payload carries the operands of setPriority and addNote.
type Payload struct {
	Priority string `json:"priority"`
	Note     string `json:"note"`
}

// statusTransitions lists, per status-changing action, the statuses it
// applies from and the status it leads to. Anything else is a no-op.
var statusTransitions = map[Action]struct {
	from []model.ContactStatus
	to   model.ContactStatus
}{
	ActionMarkRead: {
		from: []model.ContactStatus{model.StatusNew},
		to:   model.StatusRead,
	},
	ActionMarkReplied: {
		from: []model.ContactStatus{model.StatusNew, model.StatusRead, model.StatusReplied},
		to:   model.StatusReplied,
	},
	ActionArchive: {
		from: model.ContactStatuses,
		to:   model.StatusArchived,
	},
}

// CanApply reports whether action changes a contact currently in status from.
// setPriority and addNote apply in every status.
func CanApply(action Action, from model.ContactStatus) bool {
	t, ok := statusTransitions[action]
	if !ok {
		return action == ActionSetPriority || action == ActionAddNote
	}
	for _, s := range t.from {
		if s == from {
			return true
		}
	}
	return false
}

// plan turns an action and its payload into one conditional update.
func plan(action Action, p Payload, at time.Time) (repository.ContactUpdate, error) {
	u := repository.ContactUpdate{At: at}

	switch action {
	case ActionMarkRead, ActionArchive:
		t := statusTransitions[action]
		u.AllowedFrom, u.Status = t.from, t.to
	case ActionMarkReplied:
		t := statusTransitions[action]
		u.AllowedFrom, u.Status = t.from, t.to
		u.SetResponseTime = true
	case ActionSetPriority:
		pr, ok := model.ParsePriority(p.Priority)
		if !ok {
			return u, &InvalidPriorityError{Value: p.Priority}
		}
		u.Priority = pr
	case ActionAddNote:
		note := strings.TrimSpace(p.Note)
		if err := ValidateNote(note); err != nil {
			return u, err
		}
		u.Notes = &note
	default:
		return u, invalid("action", "Unknown action "+string(action))
	}
	return u, nil
}
