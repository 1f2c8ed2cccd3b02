// Package upload sends file-type field values to declared upload sources and
// turns the response into the value stored for the field.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// ErrUnknownSource is returned for ids that were never declared.
var ErrUnknownSource = errors.New("upload: unknown source")

// File is a raw file handed over by a renderer.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Transform turns an upload response into the stored field value.
type Transform func(response any) (any, error)

// Sender performs the transport for one upload request.
type Sender interface {
	Send(ctx context.Context, src schema.UploadSource, files []File) (any, error)
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, src schema.UploadSource, files []File) (any, error)

// Send delegates to the underlying function.
func (fn SenderFunc) Send(ctx context.Context, src schema.UploadSource, files []File) (any, error) {
	return fn(ctx, src, files)
}

// Manager routes uploads to their source and tracks state per field path. It
// is safe for concurrent use.
type Manager struct {
	sources    map[string]schema.UploadSource
	transforms map[string]Transform
	sender     Sender
	tracker    *async.Tracker
	logger     *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSender swaps the transport; the default is a multipart HTTPSender.
func WithSender(s Sender) Option {
	return func(m *Manager) {
		if s != nil {
			m.sender = s
		}
	}
}

// WithTransform registers a named response transform.
func WithTransform(name string, fn Transform) Option {
	return func(m *Manager) {
		if name = strings.TrimSpace(name); name != "" && fn != nil {
			m.transforms[name] = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager registers upload sources.
func NewManager(sources []schema.UploadSource, opts ...Option) *Manager {
	m := &Manager{
		sources:    make(map[string]schema.UploadSource, len(sources)),
		transforms: make(map[string]Transform),
		sender:     &HTTPSender{Client: http.DefaultClient},
		tracker:    async.NewTracker(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, src := range sources {
		if id := strings.TrimSpace(src.ID); id != "" {
			m.sources[id] = src
		}
	}
	return m
}

// Upload sends files to source id on behalf of the field at path and returns
// the transformed value. A newer upload for the same path cancels this one.
func (m *Manager) Upload(ctx context.Context, path, id string, files []File) (any, error) {
	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	var fn Transform
	if name := strings.TrimSpace(src.Transform); name != "" {
		if fn, ok = m.transforms[name]; !ok {
			return nil, fmt.Errorf("upload: %s: unknown transform %q", id, name)
		}
	}
	return m.tracker.Run(ctx, path, func(ctx context.Context) (any, error) {
		m.logger.Debug("uploading files", zap.String("source", id), zap.String("path", path), zap.Int("files", len(files)))
		resp, err := m.sender.Send(ctx, src, files)
		if err != nil {
			m.logger.Warn("upload failed", zap.String("source", id), zap.Error(err))
			return nil, err
		}
		if fn == nil {
			return resp, nil
		}
		out, err := fn(resp)
		if err != nil {
			return nil, fmt.Errorf("upload: %s: transform: %w", id, err)
		}
		return out, nil
	})
}

// State returns the upload state of the field at path.
func (m *Manager) State(path string) async.State {
	return m.tracker.State(path)
}

// Close cancels in-flight uploads and waits for them.
func (m *Manager) Close() {
	m.tracker.Close()
}

// HTTPSender posts files as multipart/form-data and decodes a JSON response.
// Non-JSON responses are returned as a string.
type HTTPSender struct {
	Client *http.Client
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, src schema.UploadSource, files []File) (any, error) {
	if strings.TrimSpace(src.URL) == "" {
		return nil, fmt.Errorf("upload: %s: url is required", src.ID)
	}
	method := strings.ToUpper(strings.TrimSpace(src.Method))
	if method == "" {
		method = http.MethodPost
	}
	fieldName := strings.TrimSpace(src.FieldName)
	if fieldName == "" {
		fieldName = "file"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("upload: %s: create part: %w", src.ID, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("upload: %s: write part: %w", src.ID, err)
		}
	}
	for k, v := range src.AdditionalData {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("upload: %s: write field %s: %w", src.ID, k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: %s: close multipart: %w", src.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, src.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("upload: %s: request: %w", src.ID, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %s: do request: %w", src.ID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload: %s: unexpected status %d", src.ID, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("upload: %s: read response: %w", src.ID, err)
	}
	var payload any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		return strings.TrimSpace(buf.String()), nil
	}
	return payload, nil
}
