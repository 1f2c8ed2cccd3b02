package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Runner walks a form session on the terminal: it prompts for every visible,
// enabled field of the active step, offers to add repeatable items, and uses
// the session's submit affordance to advance and finally submit.
type Runner struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	logger       *zap.Logger
}

// New constructs a runner with the survey driver and JSON output.
func New(options ...Option) *Runner {
	r := &Runner{
		driver:       NewSurveyDriver(),
		outputFormat: OutputFormatJSON,
		theme:        DefaultTheme,
		logger:       zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ContentType reports the serialization format used by Run.
func (r *Runner) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// task is the next interaction the runner performs.
type task struct {
	field   *form.FieldView
	section *form.SectionView
}

type pass struct {
	prompted map[string]bool
	closed   map[string]bool
}

func newPass() pass {
	return pass{prompted: make(map[string]bool), closed: make(map[string]bool)}
}

// Run drives sess until it is submitted and returns the serialized values.
func (r *Runner) Run(ctx context.Context, sess *form.Session) ([]byte, error) {
	if sess == nil {
		return nil, errors.New("tui: session is nil")
	}
	p := newPass()
	announced := -1

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs := sess.RenderSet()
		if rs.StepIndex != announced {
			announced = rs.StepIndex
			if err := r.announce(ctx, rs); err != nil {
				return nil, err
			}
		}

		if next, ok := nextTask(rs, p); ok {
			if err := r.perform(ctx, sess, next, p); err != nil {
				return nil, err
			}
			continue
		}

		out, err := sess.Submit(ctx)
		var verr *form.ValidationError
		switch {
		case errors.As(err, &verr):
			if !r.reopen(ctx, rs, verr, p) {
				return nil, fmt.Errorf("%w: %w", ErrStuck, err)
			}
		case err != nil:
			return nil, err
		case out.Advanced:
			p = newPass()
		case out.Submitted:
			r.logger.Debug("tui session submitted")
			return r.serialize(sess.Values())
		}
	}
}

func (r *Runner) announce(ctx context.Context, rs form.RenderSet) error {
	if rs.Step == nil {
		if rs.Title == "" {
			return nil
		}
		return r.driver.Info(ctx, strings.TrimSpace(r.theme.StepPrefix+" "+rs.Title))
	}
	msg := fmt.Sprintf("%s Step %d/%d: %s", r.theme.StepPrefix, rs.StepIndex+1, rs.StepCount, rs.Step.Title)
	return r.driver.Info(ctx, strings.TrimSpace(msg))
}

// nextTask returns the first field not yet handled in this pass, or a
// repeatable section whose add offer is still open.
func nextTask(rs form.RenderSet, p pass) (task, bool) {
	for i := range rs.Fields {
		if !p.prompted[rs.Fields[i].Path] {
			return task{field: &rs.Fields[i]}, true
		}
	}
	for s := range rs.Sections {
		sec := &rs.Sections[s]
		for i := range sec.Fields {
			if !p.prompted[sec.Fields[i].Path] {
				return task{field: &sec.Fields[i]}, true
			}
		}
		for it := range sec.Items {
			for i := range sec.Items[it].Fields {
				f := &sec.Items[it].Fields[i]
				if !p.prompted[f.Path] {
					return task{field: f}, true
				}
			}
		}
		if sec.Repeatable && sec.CanAppend && !p.closed[sec.Key] {
			return task{section: sec}, true
		}
	}
	return task{}, false
}

func (r *Runner) perform(ctx context.Context, sess *form.Session, t task, p pass) error {
	if t.section != nil {
		label := t.section.AddLabel
		if label == "" {
			label = "Add another " + strings.ToLower(firstNonEmpty(t.section.Title, t.section.Key)) + "?"
		}
		add, err := r.driver.Confirm(ctx, ConfirmConfig{Message: label})
		if err != nil {
			return err
		}
		if !add || !sess.AppendItem(t.section.Key, nil) {
			p.closed[t.section.Key] = true
		}
		return nil
	}

	f := t.field
	p.prompted[f.Path] = true
	switch {
	case f.Type == schema.TypeHidden || !f.Enabled:
		return nil
	case f.ReadOnly:
		return r.driver.Info(ctx, fmt.Sprintf("%s %s: %s", r.theme.InfoPrefix, displayLabel(*f), readOnlyValue(*f)))
	}
	return r.promptField(ctx, sess, *f)
}

// reopen reports the errors and marks the failing fields for another prompt.
// It reports false when none of them can be prompted.
func (r *Runner) reopen(ctx context.Context, rs form.RenderSet, verr *form.ValidationError, p pass) bool {
	paths := make([]string, 0, len(verr.Fields))
	for path := range verr.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	promptable := promptablePaths(rs)
	reopened := false
	for _, path := range paths {
		_ = r.driver.Info(ctx, fmt.Sprintf("%s %s: %s", r.theme.ErrorPrefix, path, verr.Fields[path]))
		if promptable[path] {
			delete(p.prompted, path)
			reopened = true
		}
	}
	return reopened
}

func promptablePaths(rs form.RenderSet) map[string]bool {
	out := make(map[string]bool)
	add := func(fields []form.FieldView) {
		for _, f := range fields {
			if f.Enabled && !f.ReadOnly && f.Type != schema.TypeHidden {
				out[f.Path] = true
			}
		}
	}
	add(rs.Fields)
	for _, sec := range rs.Sections {
		add(sec.Fields)
		for _, item := range sec.Items {
			add(item.Fields)
		}
	}
	return out
}

func (r *Runner) promptField(ctx context.Context, sess *form.Session, f form.FieldView) error {
	rules := validation.RuleSet{Rules: f.Rules}
	label := displayLabel(f)

	for {
		value, skip, err := r.ask(ctx, f, label)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}
		if msg, failed := rules.First(value); failed {
			_ = r.driver.Info(ctx, fmt.Sprintf("%s %s: %s", r.theme.ErrorPrefix, label, msg))
			continue
		}
		if f.Type == schema.TypeFile {
			if err := r.uploadFile(ctx, sess, f, value); err != nil {
				_ = r.driver.Info(ctx, fmt.Sprintf("%s %s: %v", r.theme.ErrorPrefix, label, err))
				continue
			}
			return nil
		}
		return sess.SetValue(f.Path, value)
	}
}

// ask performs one prompt and converts the answer to the field's value kind.
// skip is true when the answer should leave the stored value untouched.
func (r *Runner) ask(ctx context.Context, f form.FieldView, label string) (any, bool, error) {
	help := f.Description
	switch f.Type {
	case schema.TypeCheckbox, schema.TypeSwitch:
		current, _ := f.Value.(bool)
		v, err := r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current, Help: help})
		return v, false, err

	case schema.TypeNumber:
		input, err := r.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(f.Value), Help: help})
		if err != nil {
			return nil, false, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			return nil, false, nil
		}
		n, perr := strconv.ParseFloat(input, 64)
		if perr != nil {
			_ = r.driver.Info(ctx, fmt.Sprintf("%s %s: not a number", r.theme.ErrorPrefix, label))
			return r.ask(ctx, f, label)
		}
		return n, false, nil

	case schema.TypeMultiSelect:
		if len(f.Options) == 0 {
			input, err := r.driver.Input(ctx, InputConfig{Message: label + " (comma separated)", Default: joinList(f.Value), Help: help})
			if err != nil {
				return nil, false, err
			}
			return splitList(input), false, nil
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  optionLabels(f.Options),
			Defaults: selectedIndices(f.Options, f.Value),
			Help:     help,
		})
		if err != nil {
			return nil, false, err
		}
		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(f.Options) {
				selected = append(selected, f.Options[idx].Value)
			}
		}
		return selected, false, nil

	case schema.TypePassword:
		v, err := r.driver.Password(ctx, InputConfig{Message: label, Default: stringValue(f.Value), Help: help})
		return v, false, err

	case schema.TypeTextarea:
		v, err := r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: stringValue(f.Value), Help: help})
		return v, false, err
	}

	if len(f.Options) > 0 {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      optionLabels(f.Options),
			DefaultIndex: optionIndex(f.Options, f.Value),
			Help:         help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(f.Options) {
			_ = r.driver.Info(ctx, fmt.Sprintf("%s invalid %s selection", r.theme.ErrorPrefix, label))
			return r.ask(ctx, f, label)
		}
		return f.Options[idx].Value, false, nil
	}

	msg := label
	if f.Type == schema.TypeFile {
		msg += " (path)"
	}
	v, err := r.driver.Input(ctx, InputConfig{Message: msg, Default: stringValue(f.Value), Help: help})
	if err != nil {
		return nil, false, err
	}
	if f.Type == schema.TypeFile && strings.TrimSpace(v) == "" {
		return nil, f.Value != nil, nil
	}
	return v, false, nil
}

// uploadFile reads the file at the answered path and hands it to the
// session's upload collaborator. Without one, the path itself is stored.
func (r *Runner) uploadFile(ctx context.Context, sess *form.Session, f form.FieldView, value any) error {
	path, _ := value.(string)
	if strings.TrimSpace(path) == "" {
		return sess.SetValue(f.Path, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	files := []upload.File{{Name: baseName(path), Data: data}}
	err = sess.Upload(ctx, f.Path, files)
	if errors.Is(err, form.ErrNoUploader) {
		return sess.SetValue(f.Path, path)
	}
	return err
}

func (r *Runner) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.MarshalIndent(values, "", "  ")
	}
}

func displayLabel(f form.FieldView) string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

func readOnlyValue(f form.FieldView) string {
	if f.Data != nil && f.Data.Error != "" {
		return "error: " + f.Data.Error
	}
	if f.Value == nil {
		return "-"
	}
	return fmt.Sprint(f.Value)
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func optionLabels(options []schema.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = firstNonEmpty(opt.Label, fmt.Sprint(opt.Value))
	}
	return out
}

func optionIndex(options []schema.Option, value any) int {
	for i, opt := range options {
		if fmt.Sprint(opt.Value) == fmt.Sprint(value) && value != nil {
			return i
		}
	}
	return -1
}

func selectedIndices(options []schema.Option, value any) []int {
	list, _ := value.([]any)
	var out []int
	for _, v := range list {
		if idx := optionIndex(options, v); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}

func joinList(v any) string {
	list, _ := v.([]any)
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, ", ")
}

func splitList(input string) []any {
	out := []any{}
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			flatten(joinKey(prefix, key), val, out)
		}
	case []any:
		for idx, val := range v {
			if _, nested := val.(map[string]any); nested {
				flatten(fmt.Sprintf("%s.%d", prefix, idx), val, out)
				continue
			}
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			writePretty(b, joinKey(prefix, key), v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
