// Package engine orchestrates one request against a gen document:
// validation, preprocessing, generation, postprocessing and persistence.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/a-h/templ"

	"github.com/conneroisu/randomall/internal/blocks"
	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/head"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/middleware"
	"github.com/conneroisu/randomall/internal/types"
)

// State is the lifecycle stage of an engine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StatePreprocessing
	StateGenerating
	StatePostprocessing
	StateDone
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StatePreprocessing:
		return "preprocessing"
	case StateGenerating:
		return "generating"
	case StatePostprocessing:
		return "postprocessing"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Document is a gen as submitted by the editor.
type Document struct {
	Head   json.RawMessage `json:"head"`
	Format json.RawMessage `json:"format"`
	Body   json.RawMessage `json:"body"`
}

// GensStore persists validated gens.
type GensStore interface {
	Create(ctx context.Context, editor *types.User, draft *types.GenDraft) (int64, error)
	Update(ctx context.Context, id int64, editor *types.User, draft *types.GenDraft) error
}

// Deps are the collaborators of an engine. Chains and Gens may be shared
// between engines; Rand must not be.
type Deps struct {
	Gens    GensStore
	Chains  *middleware.Chains
	Catalog *i18n.Catalog
	Events  logging.EventSink
	Logger  logging.Logger
	Rand    *rand.Rand
}

// Engine serves exactly one request. It is not safe for concurrent use.
type Engine struct {
	doc    Document
	deps   Deps
	editor *types.User
	entity *types.GenEntity
	owner  *types.User
	state  State
	logger logging.Logger

	generator *blocks.Generator
	head      *head.Head
	format    *blocks.Format
	body      *blocks.Body
}

// New creates an engine for doc. entity is the gen being edited or viewed
// and may be nil; when set, its author owns the document, otherwise the
// editor does.
func New(doc Document, deps Deps, editor *types.User, entity *types.GenEntity) *Engine {
	if deps.Catalog == nil {
		deps.Catalog = i18n.MustNew(i18n.English)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Chains == nil {
		deps.Chains = middleware.NewChains(middleware.Deps{
			Catalog: deps.Catalog,
			Events:  deps.Events,
			Logger:  deps.Logger,
		})
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	owner := editor
	if entity != nil {
		owner = &types.User{ID: entity.User.ID, Username: entity.User.Username}
	}

	return &Engine{
		doc:       doc,
		deps:      deps,
		editor:    editor,
		entity:    entity,
		owner:     owner,
		logger:    deps.Logger.WithComponent("engine"),
		generator: blocks.NewGenerator(deps.Rand),
	}
}

// State returns the current lifecycle stage.
func (e *Engine) State() State {
	return e.state
}

// Owner returns the user the document belongs to.
func (e *Engine) Owner() *types.User {
	return e.owner
}

// Generate renders one result of a stored, already validated document.
func (e *Engine) Generate(ctx context.Context) (*GenerateResponse, error) {
	body, err := blocks.Construct(e.doc.Body)
	if err != nil {
		return nil, e.fail(ctx, apperrors.NewInternalError("BODY_CORRUPT", "stored body cannot be decoded", err))
	}
	e.body = body

	if err := e.preprocess(ctx, middleware.ActionGenerate); err != nil {
		return nil, e.fail(ctx, err)
	}

	e.state = StateGenerating
	result := e.generator.Generate(e.body)

	e.state = StateDone
	return &GenerateResponse{Msg: templ.EscapeString(result)}, nil
}

// Test validates the document and renders it in test mode. Body errors stop
// the run; head and format errors are reported along with the result.
func (e *Engine) Test(ctx context.Context) (Response, error) {
	rep := e.validate()
	if rep.hasBlockingError() {
		e.state = StateErrored
		return rep.error(), nil
	}

	e.state = StatePostprocessing
	if err := e.deps.Chains.PostprocessTest.Run(ctx, e.newState(middleware.ActionTest)); err != nil {
		return nil, e.fail(ctx, err)
	}

	if err := e.preprocess(ctx, middleware.ActionTest); err != nil {
		return nil, e.fail(ctx, err)
	}

	e.state = StateGenerating
	result := templ.EscapeString(e.generator.Test(e.body))
	rep.result = &result

	e.event(ctx, logging.EventGenTest, nil)

	if rep.hasError() {
		e.state = StateErrored
		return rep.error(), nil
	}
	e.state = StateDone
	return &TestResponse{Status: StatusTest, Msg: Result{Result: result}}, nil
}

// Create validates and stores a new gen.
func (e *Engine) Create(ctx context.Context) (Response, error) {
	return e.save(ctx, middleware.ActionCreate)
}

// Edit validates and stores a new version of the engine's entity.
func (e *Engine) Edit(ctx context.Context) (Response, error) {
	if e.entity == nil {
		return nil, e.fail(ctx, apperrors.NewInternalError("GEN_MISSING", "edit requires a gen", nil))
	}
	return e.save(ctx, middleware.ActionEdit)
}

func (e *Engine) save(ctx context.Context, action middleware.Action) (Response, error) {
	rep := e.validate()
	if rep.hasError() {
		e.state = StateErrored
		return rep.error(), nil
	}

	e.state = StatePostprocessing
	state := e.newState(action)
	if err := e.deps.Chains.PostprocessSave.Run(ctx, state); err != nil {
		return nil, e.fail(ctx, err)
	}

	draft, err := e.draft(state.Metadata)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	if e.deps.Gens == nil {
		return nil, e.fail(ctx, apperrors.NewConfigError("NO_GENS_STORE", "engine has no gens store"))
	}

	var id int64
	switch action {
	case middleware.ActionCreate:
		id, err = e.deps.Gens.Create(ctx, e.editor, draft)
		if err == nil {
			e.event(ctx, logging.EventGenCreate, map[string]any{"gen_id": id})
		}
	default:
		id = e.entity.ID
		err = e.deps.Gens.Update(ctx, id, e.editor, draft)
		if err == nil {
			e.event(ctx, logging.EventGenEdit, map[string]any{"gen_id": id})
		}
	}
	if err != nil {
		return nil, e.fail(ctx, storageError(err))
	}

	e.state = StateDone
	return &SaveResponse{Status: StatusSave, Msg: SaveID{ID: id}}, nil
}

func (e *Engine) validate() *report {
	e.state = StateValidating

	rep := &report{catalog: e.deps.Catalog}
	e.head, rep.head = head.Validate(e.doc.Head, e.deps.Catalog)
	e.format, rep.format = blocks.ValidateFormat(e.doc.Format)
	e.body, rep.body = blocks.Validate(e.doc.Body)
	return rep
}

func (e *Engine) preprocess(ctx context.Context, action middleware.Action) error {
	e.state = StatePreprocessing
	return e.deps.Chains.Preprocess.Run(ctx, e.newState(action))
}

func (e *Engine) newState(action middleware.Action) *middleware.State {
	return &middleware.State{
		Action:  action,
		Body:    e.body,
		RawBody: e.doc.Body,
		Owner:   e.owner,
		Rand:    e.deps.Rand,
	}
}

func (e *Engine) draft(meta types.Metadata) (*types.GenDraft, error) {
	format, err := json.Marshal(e.format)
	if err != nil {
		return nil, fmt.Errorf("encode format: %w", err)
	}
	body, err := json.Marshal(e.body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	return &types.GenDraft{
		Owner:         e.owner.Owner(),
		Title:         e.head.Title,
		Description:   e.head.Description,
		Category:      e.head.Category,
		Subcategories: e.head.Subcategories,
		Tags:          e.head.Tags,
		Access:        types.GenAccess(e.head.Access),
		Format:        format,
		Body:          body,
		Metadata:      meta,
	}, nil
}

func (e *Engine) event(ctx context.Context, kind logging.EventKind, payload map[string]any) {
	if e.deps.Events == nil {
		return
	}
	data := map[string]any{}
	if e.owner != nil {
		data["user_id"] = e.owner.ID
	}
	if e.editor != nil {
		data["editor_id"] = e.editor.ID
	}
	for k, v := range payload {
		data[k] = v
	}
	e.deps.Events.Event(ctx, kind, data)
}

func (e *Engine) fail(ctx context.Context, err error) error {
	e.logger.Error(ctx, err, "Engine failed", "state", e.state.String())
	e.state = StateErrored
	return err
}

func storageError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewStorageError("GEN_SAVE_FAILED", "failed to save gen", err)
}
