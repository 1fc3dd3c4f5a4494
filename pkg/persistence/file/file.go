// Package file provides file-based persistence for workflow runs and tasks.
// It suits single-process deployments and tests; the conditional task update
// is serialized by an in-process mutex.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pressforge/pressforge/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root     string
	mu       sync.Mutex
	runRepo  *RunRepository
	taskRepo *TaskRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory, accepting a file:// prefix.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.runRepo = &RunRepository{persistence: p}
	p.taskRepo = &TaskRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) WorkflowRunRepository() persistence.WorkflowRunRepository {
	return p.runRepo
}

func (p *Persistence) WorkflowTaskRepository() persistence.WorkflowTaskRepository {
	return p.taskRepo
}
