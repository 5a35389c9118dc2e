// Package repomanager vends the record stores of all kinds from one backend,
// either PostgreSQL with goose migrations or process memory.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/repositories/records"
)

type RepositoryManager interface {
	Journal() records.Repository[models.JournalEntry]
	Projects() records.Repository[models.Project]
	Todos() records.Repository[models.Todo]

	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
	Close() error
}
