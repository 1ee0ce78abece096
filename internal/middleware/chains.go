package middleware

import (
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
)

// Deps are the collaborators of the standard chains.
type Deps struct {
	Lists   ListStore
	Backups BackupStore
	Catalog *i18n.Catalog
	Events  logging.EventSink
	Logger  logging.Logger
}

// Chains bundles the three standard chains an engine runs.
//
//	Preprocess      list, num, multiply
//	PostprocessTest backup
//	PostprocessSave backup, hash, variations
type Chains struct {
	Preprocess      *Chain
	PostprocessTest *Chain
	PostprocessSave *Chain

	backup *BackupMiddleware
}

// NewChains builds the standard chains. The backup middleware is shared by
// both postprocess chains so Wait covers every pending write.
func NewChains(deps Deps) *Chains {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = i18n.MustNew(i18n.English)
	}

	backup := NewBackupMiddleware(deps.Backups, deps.Events, deps.Logger)

	var preprocess []Middleware
	if deps.Lists != nil {
		preprocess = append(preprocess, NewListMiddleware(deps.Lists, catalog))
	}
	preprocess = append(preprocess, NumMiddleware{}, MultiplyMiddleware{})

	return &Chains{
		Preprocess:      NewChain(deps.Logger, preprocess...),
		PostprocessTest: NewChain(deps.Logger, backup),
		PostprocessSave: NewChain(deps.Logger, backup, HashMiddleware{}, NewVariationsMiddleware(deps.Lists, catalog)),
		backup:          backup,
	}
}

// Wait blocks until background work started by the chains is done.
func (c *Chains) Wait() {
	c.backup.Wait()
}
