package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaltts/legaltts/internal/audio"
	"github.com/legaltts/legaltts/internal/cache"
)

func wavBytes(t *testing.T) []byte {
	t.Helper()
	data, err := audio.EncodeWAV(audio.Silent(audio.DefaultFormat(), 100*time.Millisecond))
	require.NoError(t, err)
	return data
}

func newTestOrpheus(t *testing.T, url string, opts ...OrpheusOption) *Orpheus {
	t.Helper()
	cfg := DefaultOrpheusConfig()
	cfg.Endpoint = url
	cfg.Timeout = 5 * time.Second
	o, err := NewOrpheus(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestOrpheusRequestFormat(t *testing.T) {
	wav := wavBytes(t)
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	o := newTestOrpheus(t, srv.URL)
	data, err := o.Synthesize(context.Background(), Request{Text: "The court finds.", Voice: "Tara"})
	require.NoError(t, err)
	assert.Equal(t, wav, data)

	assert.Equal(t, speechRequest{
		Input:          "The court finds.",
		Model:          "orpheus-tts",
		Voice:          "tara",
		ResponseFormat: "wav",
		Speed:          1,
	}, got)
}

func TestOrpheusUsesCache(t *testing.T) {
	wav := wavBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(wav)
	}))
	defer srv.Close()

	c, err := cache.NewManager(cache.DefaultConfig())
	require.NoError(t, err)
	o := newTestOrpheus(t, srv.URL, WithCache(c))

	req := Request{Text: "Leave is granted.", Voice: "Leo"}
	for i := 0; i < 3; i++ {
		_, err := o.Synthesize(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	req.Voice = "Zoe"
	_, err = o.Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOrpheusErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  ErrorCode
		retryable bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model crashed", http.StatusInternalServerError)
			},
			wantCode:  ErrorCodeEngineFailure,
			retryable: true,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unknown voice", http.StatusBadRequest)
			},
			wantCode: ErrorCodeInvalidInput,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantCode:  ErrorCodeEngineFailure,
			retryable: true,
		},
		{
			name: "not wav",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":"oops"}`))
			},
			wantCode: ErrorCodeAudioFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			o := newTestOrpheus(t, srv.URL)
			_, err := o.Synthesize(context.Background(), Request{Text: "hello", Voice: "Tara"})
			require.Error(t, err)

			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestOrpheusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := newTestOrpheus(t, url)
	_, err := o.Synthesize(context.Background(), Request{Text: "hello"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestOrpheusRejectsEmptyText(t *testing.T) {
	o := newTestOrpheus(t, "http://localhost:1")
	_, err := o.Synthesize(context.Background(), Request{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOrpheusConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*OrpheusConfig)
		wantErr bool
	}{
		{"default", func(c *OrpheusConfig) {}, false},
		{"ftp endpoint", func(c *OrpheusConfig) { c.Endpoint = "ftp://host/speech" }, true},
		{"no model", func(c *OrpheusConfig) { c.Model = "" }, true},
		{"zero timeout", func(c *OrpheusConfig) { c.Timeout = 0 }, true},
		{"negative rpm", func(c *OrpheusConfig) { c.RequestsPerMinute = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOrpheusConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}
