package upload_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/upload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHTTPSender_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "avatars", r.FormValue("bucket"))
		files := r.MultipartForm.File["upload"]
		if !assert.Len(t, files, 1) {
			return
		}
		assert.Equal(t, "me.png", files[0].Filename)
		f, err := files[0].Open()
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(data))
		_, _ = w.Write([]byte(`{"url": "https://cdn.example/me.png"}`))
	}))
	defer srv.Close()

	m := upload.NewManager([]schema.UploadSource{{
		ID:             "avatar",
		URL:            srv.URL,
		FieldName:      "upload",
		AdditionalData: map[string]string{"bucket": "avatars"},
		Transform:      "url",
	}},
		upload.WithSender(&upload.HTTPSender{Client: srv.Client()}),
		upload.WithTransform("url", func(resp any) (any, error) {
			return resp.(map[string]any)["url"], nil
		}),
	)
	defer m.Close()

	v, err := m.Upload(context.Background(), "profile.avatar", "avatar", []upload.File{{Name: "me.png", ContentType: "image/png", Data: []byte("png-bytes")}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/me.png", v)
	assert.Equal(t, async.State{Status: async.StatusSuccess, Value: "https://cdn.example/me.png"}, m.State("profile.avatar"))
}

func TestManager_FailureIsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	m := upload.NewManager([]schema.UploadSource{{ID: "docs", URL: srv.URL}},
		upload.WithSender(&upload.HTTPSender{Client: srv.Client()}))
	defer m.Close()

	_, err := m.Upload(context.Background(), "doc", "docs", nil)
	require.Error(t, err)
	state := m.State("doc")
	assert.Equal(t, async.StatusError, state.Status)
	assert.Contains(t, state.Error, "413")

	_, err = m.Upload(context.Background(), "doc", "missing", nil)
	assert.ErrorIs(t, err, upload.ErrUnknownSource)
}

func TestHTTPSender_PlainTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stored/123\n"))
	}))
	defer srv.Close()

	s := &upload.HTTPSender{Client: srv.Client()}
	v, err := s.Send(context.Background(), schema.UploadSource{ID: "x", URL: srv.URL}, []upload.File{{Name: "a.txt", Data: []byte("a")}})
	require.NoError(t, err)
	assert.Equal(t, "stored/123", v)
}
