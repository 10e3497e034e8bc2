package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"frontend/internal/config"
	"frontend/internal/http/middleware"
	"frontend/internal/model"
	"frontend/internal/service"
)

const wantBody = "<h1>Hello from EC2 via CodeDeploy!</h1><p>Version 1</p>"

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		AppHost:            "127.0.0.1",
		Port:               "0",
		ShutdownTimeoutSec: 2,
		Log:                config.LogConfig{Level: "info", Timezone: "UTC"},
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func newClient() *http.Client {
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
}

// startServe runs Serve in the background and returns a stop func that
// cancels it and waits for Serve's result.
func startServe(t *testing.T, s *Server, publicLn, adminLn net.Listener) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, publicLn, adminLn) }()

	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("server did not stop")
			return nil
		}
	}
}

func TestServe_EndToEnd(t *testing.T) {
	s, err := New(testConfig(), zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	ln := listen(t)
	base := "http://" + ln.Addr().String()
	stop := startServe(t, s, ln, nil)

	client := newClient()

	t.Run("get root", func(t *testing.T) {
		resp, err := client.Get(base + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
		assert.Equal(t, wantBody, string(body))
		assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	})

	t.Run("post root", func(t *testing.T) {
		resp, err := client.Post(base+"/", "text/plain", strings.NewReader("x"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, err := client.Get(base + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	require.NoError(t, stop())

	_, err = client.Get(base + "/")
	assert.Error(t, err)
}

func TestServe_Admin(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Addr = "127.0.0.1:0"
	reg := prometheus.NewRegistry()

	s, err := New(cfg, zerolog.Nop(), Deps{Pages: service.NewPageService(), Registry: reg})
	require.NoError(t, err)

	publicLn, adminLn := listen(t), listen(t)
	stop := startServe(t, s, publicLn, adminLn)
	defer func() { assert.NoError(t, stop()) }()

	client := newClient()

	resp, err := client.Get("http://" + publicLn.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get("http://" + adminLn.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/",status="200"} 1`)

	resp, err = client.Get("http://" + adminLn.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The public listener never serves admin routes.
	resp, err = client.Get("http://" + publicLn.Addr().String() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_AdminDisabledIgnoresListener(t *testing.T) {
	s, err := New(testConfig(), zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	publicLn, adminLn := listen(t), listen(t)
	defer adminLn.Close()
	stop := startServe(t, s, publicLn, adminLn)

	resp, err := newClient().Get("http://" + publicLn.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, stop())
}

func TestServe_CancelledBeforeStart(t *testing.T) {
	s, err := New(testConfig(), zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listen(t), nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_PortInUse(t *testing.T) {
	occupied := listen(t)
	defer occupied.Close()

	_, port, err := net.SplitHostPort(occupied.Addr().String())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Port = port

	s, err := New(cfg, zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen 127.0.0.1:"+port)
}

func TestRun_AdminPortInUse(t *testing.T) {
	occupied := listen(t)
	defer occupied.Close()

	cfg := testConfig()
	cfg.Admin.Addr = occupied.Addr().String()

	s, err := New(cfg, zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen admin "+cfg.Admin.Addr)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New(testConfig(), zerolog.Nop(), Deps{Pages: service.NewPageService()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Run(ctx))
}

func TestNew_RegistryConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := middleware.NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = New(testConfig(), zerolog.Nop(), Deps{Pages: service.NewPageService(), Registry: reg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register metrics")
}

type panickingPages struct{}

func (panickingPages) Home(context.Context) (*model.Page, error) {
	panic("render exploded")
}

func TestNew_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()

	s, err := New(testConfig(), zerolog.New(&buf), Deps{Pages: panickingPages{}, Registry: reg})
	require.NoError(t, err)

	resp, err := s.public.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Internal Server Error", string(body))

	var requestLines []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "request" {
			requestLines = append(requestLines, entry)
		}
	}
	require.Len(t, requestLines, 1)
	assert.Equal(t, "error", requestLines[0]["level"])
	assert.Equal(t, float64(http.StatusInternalServerError), requestLines[0]["status"])
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"level":"error"`)))

	expected := `
# HELP http_requests_total Total number of HTTP requests processed.
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/",status="500"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))
}

func TestNew_Tracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	record := func(t *testing.T, cfg *config.AppConfig) []sdktrace.ReadOnlySpan {
		t.Helper()
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
		// otelfiber resolves the global provider when the middleware is built.
		otel.SetTracerProvider(tp)

		s, err := New(cfg, zerolog.Nop(), Deps{Pages: service.NewPageService()})
		require.NoError(t, err)

		resp, err := s.public.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		return rec.Ended()
	}

	t.Run("enabled records a server span", func(t *testing.T) {
		cfg := testConfig()
		cfg.Tracing = config.TracingConfig{ServiceName: "frontend", Endpoint: "127.0.0.1:4317", Protocol: "grpc"}

		spans := record(t, cfg)
		require.Len(t, spans, 1)
		assert.Equal(t, oteltrace.SpanKindServer, spans[0].SpanKind())
	})

	t.Run("disabled records nothing", func(t *testing.T) {
		spans := record(t, testConfig())
		assert.Empty(t, spans)
	})

	t.Run("sdk disabled records nothing", func(t *testing.T) {
		cfg := testConfig()
		cfg.Tracing = config.TracingConfig{Endpoint: "127.0.0.1:4317", SDKDisabled: true}

		spans := record(t, cfg)
		assert.Empty(t, spans)
	})
}
