package form

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/repeat"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

// ErrInvalidSchema wraps structural schema problems found by New.
var ErrInvalidSchema = errors.New("form: invalid schema")

// SubmitFunc receives the resolved values once the final step validates.
type SubmitFunc func(ctx context.Context, values map[string]any) error

// DataLookup resolves read-only values fetched by a data source
// collaborator, such as *datasource.Manager.
type DataLookup interface {
	Lookup(id, path string) async.State
}

// Uploader sends files on behalf of a field, such as *upload.Manager.
type Uploader interface {
	Upload(ctx context.Context, path, sourceID string, files []upload.File) (any, error)
	State(path string) async.State
}

// WidgetResolver picks the widget a renderer should use for a field.
type WidgetResolver interface {
	Resolve(field schema.Field) (string, bool)
}

// Option customises a Session.
type Option func(*Session)

// WithValues supplies caller overrides merged over schema defaults.
func WithValues(values map[string]any) Option {
	return func(s *Session) {
		s.overrides = values
	}
}

// WithSubmit registers the submission callback.
func WithSubmit(fn SubmitFunc) Option {
	return func(s *Session) {
		s.onSubmit = fn
	}
}

// WithLogger attaches a logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithValidators resolves `custom` validator names against reg.
func WithValidators(reg *validation.Registry) Option {
	return func(s *Session) {
		s.validators = reg
	}
}

// WithDataSources wires the data source collaborator.
func WithDataSources(lookup DataLookup) Option {
	return func(s *Session) {
		s.data = lookup
	}
}

// WithUploader wires the upload collaborator.
func WithUploader(u Uploader) Option {
	return func(s *Session) {
		s.uploader = u
	}
}

// WithWidgets overrides widget resolution. The default is widgets.NewRegistry.
func WithWidgets(r WidgetResolver) Option {
	return func(s *Session) {
		if r != nil {
			s.widgets = r
		}
	}
}

// WithExtras exposes additional condition inputs under the `extras.` prefix.
func WithExtras(extras map[string]any) Option {
	return func(s *Session) {
		s.extras = extras
	}
}

// WithGroupOptions forwards options to every repeatable group.
func WithGroupOptions(opts ...repeat.Option) Option {
	return func(s *Session) {
		s.groupOpts = append(s.groupOpts, opts...)
	}
}

// Session is the per-mount state of a form: values, active step, errors and
// repeatable groups.
type Session struct {
	schema     *schema.Schema
	layout     *layout
	store      *store.Store
	resolver   *visibility.Resolver
	groups     map[string]*repeat.Group
	overrides  map[string]any
	extras     map[string]any
	onSubmit   SubmitFunc
	validators *validation.Registry
	data       DataLookup
	uploader   Uploader
	widgets    WidgetResolver
	logger     *zap.Logger
	groupOpts  []repeat.Option

	visible    []int
	index      int
	submitted  bool
	errors     map[string]string
	formErrors []string
}

// New validates the schema, resolves default values and positions the
// session on the first visible step.
func New(s *schema.Schema, opts ...Option) (*Session, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
	}
	sess := &Session{
		schema:   s,
		resolver: visibility.NewResolver(),
		groups:   make(map[string]*repeat.Group),
		widgets:  widgets.NewRegistry(),
		logger:   zap.NewNop(),
		errors:   make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sess)
		}
	}

	if issues := schema.Check(s); len(issues) > 0 {
		errs := make([]error, 0, len(issues))
		for _, issue := range issues {
			errs = append(errs, issue)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, errors.Join(errs...))
	}
	for _, issue := range schema.Lint(s) {
		sess.logger.Warn("schema condition always passes",
			zap.String("path", issue.Path),
			zap.String("issue", issue.Message),
		)
	}

	l, err := buildLayout(s, []validation.Option{validation.WithRegistry(sess.validators)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	sess.layout = l
	sess.store = store.New(defaults.Resolve(s, sess.overrides))

	for key, sec := range l.sections {
		sess.groups[key] = repeat.NewForSection(sess.store, key, *sec.ref.Section, sess.groupOpts...)
	}

	sess.watchSteps()
	sess.recomputeSteps()
	sess.logger.Debug("form session ready",
		zap.String("title", s.Title),
		zap.Int("steps", len(l.steps)),
		zap.Int("visible_steps", len(sess.visible)),
	)
	return sess, nil
}

// Schema returns the schema the session runs.
func (s *Session) Schema() *schema.Schema {
	return s.schema
}

// Store exposes the live value store for subscriptions.
func (s *Session) Store() *store.Store {
	return s.store
}

// Values returns a deep copy of the current values.
func (s *Session) Values() map[string]any {
	return s.store.Snapshot()
}

// Value reads the value at path.
func (s *Session) Value(path string) (any, bool) {
	return s.store.Get(path)
}

// SetValue writes a value. When a radio, select or autocomplete field
// changes, the paths in its clearFields are removed. Names are resolved
// inside the same repeatable item first, then globally.
func (s *Session) SetValue(path string, value any) error {
	if s.submitted {
		return ErrSubmitted
	}
	old, _ := s.store.Get(path)
	if err := s.store.Set(path, value); err != nil {
		return fmt.Errorf("form: set %s: %w", path, err)
	}
	delete(s.errors, path)

	t, ok := s.layout.resolve(path)
	if !ok || !t.node.field.Type.ClearsDependents() || condition.Equal(old, value) {
		return nil
	}
	for _, name := range t.node.field.ClearFields {
		dep := s.scopedPath(t, name)
		if s.store.Delete(dep) {
			delete(s.errors, dep)
			s.logger.Debug("cleared dependent field", zap.String("source", path), zap.String("path", dep))
		}
	}
	return nil
}

// Group returns the repeatable group keyed key.
func (s *Session) Group(key string) (*repeat.Group, bool) {
	g, ok := s.groups[key]
	return g, ok
}

// AppendItem adds an item to a repeatable section. It reports false when the
// section is unknown or full.
func (s *Session) AppendItem(key string, item map[string]any) bool {
	g, ok := s.groups[key]
	if !ok || s.submitted {
		return false
	}
	return g.Append(item)
}

// RemoveItem removes an item from a repeatable section. It reports false when
// the section is unknown, the index is out of range or the group is at its
// minimum.
func (s *Session) RemoveItem(key string, index int) bool {
	g, ok := s.groups[key]
	if !ok || s.submitted {
		return false
	}
	if !g.RemoveAt(index) {
		return false
	}
	s.dropItemErrors(key)
	return true
}

// Upload hands files for the file field at path to the upload collaborator
// and stores the returned value.
func (s *Session) Upload(ctx context.Context, path string, files []upload.File) error {
	if s.uploader == nil {
		return ErrNoUploader
	}
	t, ok := s.layout.resolve(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, path)
	}
	f := t.node.field
	if f.Type != schema.TypeFile || f.UploadSourceID == "" {
		return fmt.Errorf("form: field %q is not bound to an upload source", path)
	}
	value, err := s.uploader.Upload(ctx, path, f.UploadSourceID, files)
	if err != nil {
		return fmt.Errorf("form: upload %s: %w", path, err)
	}
	return s.SetValue(path, value)
}

// Errors returns a copy of the current field errors keyed by path.
func (s *Session) Errors() map[string]string {
	return copyErrors(s.errors)
}

// FormErrors returns form-level messages from the last server error mapping.
func (s *Session) FormErrors() []string {
	return append([]string(nil), s.formErrors...)
}

// Submitted reports whether the submission callback succeeded.
func (s *Session) Submitted() bool {
	return s.submitted
}

func (s *Session) lookup() visibility.Lookup {
	return visibility.Context{Values: s.store.Values(), Extras: s.extras}
}

func (s *Session) itemLookup(key string, index int) visibility.Lookup {
	raw, _ := s.store.Get(repeat.ItemPath(key, index, ""))
	item, _ := raw.(map[string]any)
	return visibility.Scoped{Item: item, Parent: s.lookup()}
}

// scopedPath resolves a sibling name relative to t's repeatable item.
func (s *Session) scopedPath(t target, name string) string {
	if t.index < 0 || !t.node.repeatable() {
		return name
	}
	for _, f := range t.node.section.fields {
		if f.field.Name == name {
			return repeat.ItemPath(t.node.section.ref.Key, t.index, name)
		}
	}
	return name
}

func (s *Session) dropItemErrors(key string) {
	prefix := key + "."
	for path := range s.errors {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			delete(s.errors, path)
		}
	}
}
