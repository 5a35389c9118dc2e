package repomanager

import (
	"context"

	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/server/repositories/records"
)

// MemoryRepositoryManager keeps everything in process memory. Data does not
// survive a restart.
type MemoryRepositoryManager struct {
	journal  *records.MemoryRepository[models.JournalEntry]
	projects *records.MemoryRepository[models.Project]
	todos    *records.MemoryRepository[models.Todo]
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		journal:  records.NewMemoryRepository[models.JournalEntry](),
		projects: records.NewMemoryRepository[models.Project](),
		todos:    records.NewMemoryRepository[models.Todo](),
	}
}

func (m *MemoryRepositoryManager) Journal() records.Repository[models.JournalEntry] {
	return m.journal
}

func (m *MemoryRepositoryManager) Projects() records.Repository[models.Project] {
	return m.projects
}

func (m *MemoryRepositoryManager) Todos() records.Repository[models.Todo] {
	return m.todos
}

func (m *MemoryRepositoryManager) Ping(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }
