package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind binds a payload type to its wire name and to the storage columns that
// hold its fields. Both the client and the server build their SQL from it, so
// adding a record kind means adding one descriptor.
type Kind[P any] struct {
	// Name is the wire name used in the endpoint path.
	Name string
	// Table is the table name on both sides.
	Table string
	// Columns lists payload columns in the order Values and Targets use.
	Columns []string
	// Values returns payload column values for writes.
	Values func(p P) []any
	// Targets returns scan destinations for the payload columns.
	Targets func(p *P) []any
}

// JournalEntry is a free-form dated note.
type JournalEntry struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Task is an item of a project checklist.
type Task struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Tasks is stored as a single JSON column.
type Tasks []Task

// Value implements driver.Valuer.
func (t Tasks) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]Task(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. An empty list is normalized to nil.
func (t *Tasks) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported tasks column type %T", src)
	}

	var out []Task
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("failed to decode tasks: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*t = out
	return nil
}

// Project groups a checklist of tasks.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tasks       Tasks  `json:"tasks,omitempty"`
}

// Todo is a standalone task, optionally attached to a project.
type Todo struct {
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	ProjectID string `json:"projectId,omitempty"`
}

var Journal = Kind[JournalEntry]{
	Name:    "journal",
	Table:   "journal_entries",
	Columns: []string{"title", "body"},
	Values: func(p JournalEntry) []any {
		return []any{p.Title, p.Body}
	},
	Targets: func(p *JournalEntry) []any {
		return []any{&p.Title, &p.Body}
	},
}

var Projects = Kind[Project]{
	Name:    "projects",
	Table:   "projects",
	Columns: []string{"name", "description", "tasks"},
	Values: func(p Project) []any {
		return []any{p.Name, p.Description, p.Tasks}
	},
	Targets: func(p *Project) []any {
		return []any{&p.Name, &p.Description, &p.Tasks}
	},
}

var Todos = Kind[Todo]{
	Name:    "todos",
	Table:   "todos",
	Columns: []string{"text", "done", "project_id"},
	Values: func(p Todo) []any {
		return []any{p.Text, p.Done, p.ProjectID}
	},
	Targets: func(p *Todo) []any {
		return []any{&p.Text, &p.Done, &p.ProjectID}
	},
}

// KindNames lists the wire names of all record kinds in sync order.
var KindNames = []string{Journal.Name, Projects.Name, Todos.Name}
