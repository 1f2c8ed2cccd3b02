package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	// ErrNoOperations is returned when a document declares no operations.
	ErrNoOperations = errors.New("openapi: document does not contain any operations")
	// ErrUnknownOperation is returned when the requested operation id is absent.
	ErrUnknownOperation = errors.New("openapi: unknown operation")
	// ErrNoRequestBody is returned for operations without a request schema.
	ErrNoRequestBody = errors.New("openapi: operation has no request body schema")
)

// Operation summarises an importable operation.
type Operation struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`

	body *openapi3.SchemaRef
}

// HasBody reports whether the operation carries a request schema.
func (o Operation) HasBody() bool {
	return o.body != nil && o.body.Value != nil
}

// Options configures an Importer.
type Options struct {
	// ResolveReferences validates the document so $refs are resolved eagerly.
	ResolveReferences bool
	// AllowExternalRefs lets the loader follow references outside the document.
	AllowExternalRefs bool
}

// Option mutates Options.
type Option func(*Importer)

// WithReferenceResolution toggles eager reference resolution.
func WithReferenceResolution(enabled bool) Option {
	return func(i *Importer) {
		i.opts.ResolveReferences = enabled
	}
}

// WithExternalRefs allows references to other documents.
func WithExternalRefs(enabled bool) Option {
	return func(i *Importer) {
		i.opts.AllowExternalRefs = enabled
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Importer turns OpenAPI operations into form schemas.
type Importer struct {
	opts   Options
	logger *zap.Logger
}

// NewImporter constructs an Importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{
		opts:   Options{ResolveReferences: true},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Import is a shortcut for NewImporter().Import.
func Import(ctx context.Context, raw []byte, operationID string) (*schema.Schema, error) {
	return NewImporter().Import(ctx, raw, operationID)
}

// Operations lists the document's operations sorted by id. Operations
// without an operationId are keyed as method:path.
func (i *Importer) Operations(ctx context.Context, raw []byte) ([]Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = i.opts.AllowExternalRefs

	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if i.opts.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}

	var ops []Operation
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				if op == nil {
					continue
				}
				ops = append(ops, newOperation(method, path, op))
			}
		}
	}
	if len(ops) == 0 {
		return nil, ErrNoOperations
	}
	sort.Slice(ops, func(a, b int) bool { return ops[a].ID < ops[b].ID })
	return ops, nil
}

// Import maps the request body of operationID onto a schema. The result has
// already passed schema.Check.
func (i *Importer) Import(ctx context.Context, raw []byte, operationID string) (*schema.Schema, error) {
	ops, err := i.Operations(ctx, raw)
	if err != nil {
		return nil, err
	}
	var op *Operation
	for idx := range ops {
		if ops[idx].ID == operationID {
			op = &ops[idx]
			break
		}
	}
	if op == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operationID)
	}
	if !op.HasBody() {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestBody, operationID)
	}

	out := &schema.Schema{
		Title:       firstNonEmpty(op.Summary, DefaultLabeler(op.ID)),
		Description: op.Description,
	}
	m := mapper{logger: i.logger}
	m.object(op.body.Value, "", &out.Fields, &out.Sections)

	if issues := schema.Check(out); len(issues) > 0 {
		errs := make([]error, 0, len(issues))
		for _, issue := range issues {
			errs = append(errs, issue)
		}
		return nil, fmt.Errorf("openapi: %s produced an invalid schema: %w", operationID, errors.Join(errs...))
	}
	schema.Sanitize(out)
	i.logger.Debug("imported operation",
		zap.String("operation", op.ID),
		zap.Int("fields", len(out.Fields)),
		zap.Int("sections", len(out.Sections)),
	)
	return out, nil
}

func newOperation(method, path string, op *openapi3.Operation) Operation {
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	return Operation{
		ID:          id,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
		body:        requestSchema(op.RequestBody),
	}
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
