package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daybook/internal/client/services"
	"github.com/dmitrijs2005/daybook/internal/models"
)

// listRow is one line of "list" output.
type listRow struct {
	ID        string
	Status    models.SyncStatus
	UpdatedAt time.Time
	Summary   string
}

// kindOps is the part of a record kind that commands handle without knowing
// the payload type.
type kindOps interface {
	Name() string
	List(ctx context.Context) ([]listRow, error)
	Show(ctx context.Context, id string) (any, error)
	Delete(ctx context.Context, id string) error
	DeleteRemote(ctx context.Context, id string) error
	Purge(ctx context.Context, ids ...string) (int64, error)
	Counts(ctx context.Context) (map[models.SyncStatus]int, error)
	LastSync(ctx context.Context) (*time.Time, error)
}

type kindHandle[P any] struct {
	svc     *services.RecordService[P]
	syncer  *services.Syncer[P]
	meta    metadata.Repository
	summary func(P) string
}

func (h *kindHandle[P]) Name() string {
	return h.svc.Kind().Name
}

func (h *kindHandle[P]) List(ctx context.Context) ([]listRow, error) {
	recs, err := h.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]listRow, len(recs))
	for i, r := range recs {
		rows[i] = listRow{ID: r.ID, Status: r.SyncStatus, UpdatedAt: r.UpdatedAt, Summary: h.summary(r.Payload)}
	}
	return rows, nil
}

func (h *kindHandle[P]) Show(ctx context.Context, id string) (any, error) {
	return h.svc.Get(ctx, id)
}

func (h *kindHandle[P]) Delete(ctx context.Context, id string) error {
	return h.svc.Delete(ctx, id)
}

// DeleteRemote tombstones id on the server and pulls the tombstone back.
func (h *kindHandle[P]) DeleteRemote(ctx context.Context, id string) error {
	if h.syncer == nil {
		return errSyncDisabled
	}
	if err := h.syncer.DeleteRemote(ctx, id); err != nil {
		return err
	}
	_, err := h.syncer.Pull(ctx, services.PushResult{})
	return err
}

func (h *kindHandle[P]) Purge(ctx context.Context, ids ...string) (int64, error) {
	return h.svc.Purge(ctx, ids...)
}

func (h *kindHandle[P]) Counts(ctx context.Context) (map[models.SyncStatus]int, error) {
	return h.svc.Counts(ctx)
}

func (h *kindHandle[P]) LastSync(ctx context.Context) (*time.Time, error) {
	return h.meta.GetTime(ctx, metadata.LastSyncKey(h.Name()))
}

func journalSummary(p models.JournalEntry) string {
	return p.Title
}

func projectSummary(p models.Project) string {
	done := 0
	for _, t := range p.Tasks {
		if t.Done {
			done++
		}
	}
	if len(p.Tasks) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s (%d/%d tasks)", p.Name, done, len(p.Tasks))
}

func todoSummary(p models.Todo) string {
	box := "[ ]"
	if p.Done {
		box = "[x]"
	}
	s := box + " " + p.Text
	if p.ProjectID != "" {
		s += " @" + p.ProjectID
	}
	return s
}

// kindAliases maps user input to wire kind names.
var kindAliases = map[string]string{
	"journal":  models.Journal.Name,
	"entries":  models.Journal.Name,
	"project":  models.Projects.Name,
	"projects": models.Projects.Name,
	"todo":     models.Todos.Name,
	"todos":    models.Todos.Name,
}

func resolveKind(name string) (string, error) {
	k, ok := kindAliases[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown kind %q, want one of: %s", name, strings.Join(models.KindNames, ", "))
	}
	return k, nil
}
