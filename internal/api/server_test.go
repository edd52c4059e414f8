package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ledsched/internal/api/models"
	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
	"github.com/smazurov/ledsched/internal/pattern"
	"github.com/smazurov/ledsched/internal/scheduler"
)

const numLeds = 3

type fixture struct {
	api    humatest.TestAPI
	server *Server
	sched  *scheduler.Scheduler
	mem    *led.Memory
	bus    *events.Bus
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	bus := events.New()
	mem := led.NewMemory(numLeds)
	strip := led.NewStrip(mem, numLeds, bus, nil)
	sched := scheduler.New(strip, scheduler.Options{QueueCapacity: 2, Bus: bus})

	lib, err := pattern.NewLibrary(
		pattern.Definition{
			Name:        "flash",
			Repetitions: 1,
			Steps:       []pattern.StepDefinition{{Colors: []string{"white"}, Duration: "1ms"}},
		},
		pattern.Definition{Name: "rainbow", Effect: pattern.EffectRainbow, Frames: 4, FrameDuration: "1ms"},
	)
	require.NoError(t, err)

	opts := &Options{Scheduler: sched, Library: lib, EventBus: bus}
	if mutate != nil {
		mutate(opts)
	}
	server := NewServer(opts)
	return &fixture{
		api:    humatest.Wrap(t, server.API()),
		server: server,
		sched:  sched,
		mem:    mem,
		bus:    bus,
	}
}

// run starts the scheduler loop until the test ends.
func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.sched.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	f.waitState(t, scheduler.StateStopped)
}

func (f *fixture) waitState(t *testing.T, want scheduler.State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.sched.State() == want }, 2*time.Second, time.Millisecond)
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func basic(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Get("/api/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decode[models.HealthData](t, resp).Status)

	resp = f.api.Get("/api/version")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, decode[models.VersionData](t, resp).GoVersion)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Get("/api/health", "X-Request-ID: abc-123")
	assert.Equal(t, "abc-123", resp.Header().Get(RequestIDHeader))

	resp = f.api.Get("/api/health")
	assert.Len(t, resp.Header().Get(RequestIDHeader), 36)
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.AuthUsername = "admin"
		o.AuthPassword = "secret"
	})

	resp := f.api.Get("/api/health")
	assert.Equal(t, http.StatusOK, resp.Code, "health is public")

	resp = f.api.Get("/api/scheduler")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("WWW-Authenticate"))

	resp = f.api.Get("/api/scheduler", "Authorization: Basic "+basic("admin", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.api.Get("/api/scheduler", "Authorization: Bearer token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.api.Get("/api/scheduler", "Authorization: Basic "+basic("admin", "secret"))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Get("/api/scheduler?auth=" + basic("admin", "secret"))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSchedulerStatus(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Get("/api/scheduler")
	require.Equal(t, http.StatusOK, resp.Code)
	st := decode[models.SchedulerStatusData](t, resp)
	assert.Equal(t, "unknown", st.State)
	assert.Equal(t, 2, st.QueueCapacity)
	assert.Equal(t, numLeds, st.LedCount)

	f.run(t)
	st = decode[models.SchedulerStatusData](t, f.api.Get("/api/scheduler"))
	assert.Equal(t, "stopped", st.State)
}

func TestSchedulerCommands(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	resp := f.api.Post("/api/scheduler/start")
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.Equal(t, "start", decode[models.SchedulerCommandData](t, resp).Command)
	f.waitState(t, scheduler.StateWaiting)

	resp = f.api.Post("/api/scheduler/stop")
	require.Equal(t, http.StatusAccepted, resp.Code)
	f.waitState(t, scheduler.StateStopped)

	resp = f.api.Post("/api/scheduler/bogus")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCommandQueueFull(t *testing.T) {
	f := newFixture(t, nil)

	// Nothing consumes commands before Run, so the single slot stays taken.
	require.Equal(t, http.StatusAccepted, f.api.Post("/api/scheduler/start").Code)
	resp := f.api.Post("/api/scheduler/pause")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSchedulePattern(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Post("/api/patterns", map[string]any{
		"name":        "blink",
		"repetitions": 2,
		"steps": []map[string]any{
			{"colors": []string{"red"}, "duration": "1ms"},
			{"colors": []string{"off"}, "duration": "1ms"},
		},
	})
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	queued := decode[models.PatternQueuedData](t, resp)
	assert.Equal(t, "blink", queued.Name)
	assert.Equal(t, uint32(2), queued.Repetitions)
	assert.NotEmpty(t, queued.ID)

	f.run(t)
	require.Equal(t, http.StatusAccepted, f.api.Post("/api/scheduler/start").Code)
	require.Eventually(t, func() bool { return f.mem.FrameCount() >= 4 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, led.Fill(numLeds, led.Red), f.mem.Frames()[0])
}

func TestScheduleInvalidPattern(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Post("/api/patterns", map[string]any{"name": "empty"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.api.Post("/api/patterns", map[string]any{
		"steps": []map[string]any{{"colors": []string{"red", "green"}, "duration": "1ms"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "two colors for three leds")

	resp = f.api.Post("/api/patterns", map[string]any{"effect": "rainbow", "frames": 1_000_000})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, "frame count above the step limit")
	assert.Zero(t, f.sched.QueueLen())
}

func TestPatternQueueFull(t *testing.T) {
	f := newFixture(t, nil)

	for range 2 {
		require.Equal(t, http.StatusAccepted, f.api.Post("/api/patterns/library/flash").Code)
	}
	resp := f.api.Post("/api/patterns/library/flash")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, 2, f.sched.Status().QueueDepth)
}

func TestScheduleReportsLiveQueueDepth(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	for want := 1; want <= 2; want++ {
		resp := f.api.Post("/api/patterns/library/flash")
		require.Equal(t, http.StatusAccepted, resp.Code)
		assert.Equal(t, want, decode[models.PatternQueuedData](t, resp).QueueDepth)
	}

	resp := f.api.Get("/api/scheduler")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, decode[models.SchedulerStatusData](t, resp).QueueDepth)
}

func TestLibrary(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Get("/api/patterns/library")
	require.Equal(t, http.StatusOK, resp.Code)
	lib := decode[models.LibraryData](t, resp)
	require.Equal(t, 2, lib.Count)
	assert.Equal(t, "flash", lib.Patterns[0].Name)
	assert.Equal(t, "rainbow", lib.Patterns[1].Name)

	resp = f.api.Post("/api/patterns/library/rainbow")
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "rainbow", decode[models.PatternQueuedData](t, resp).Name)

	resp = f.api.Post("/api/patterns/library/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSetLeds(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	resp := f.api.Get("/api/leds")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[models.LedsData](t, resp).Colors)

	resp = f.api.Put("/api/leds", map[string]any{"colors": []string{"red"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"#ff0000", "#ff0000", "#ff0000"}, decode[models.LedsData](t, resp).Colors)

	resp = f.api.Put("/api/leds/1", map[string]any{"color": "#00ff00"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"#ff0000", "#00ff00", "#ff0000"}, decode[models.LedsData](t, resp).Colors)

	resp = f.api.Put("/api/leds/7", map[string]any{"color": "red"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.api.Put("/api/leds/0", map[string]any{"color": "not-a-color"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.api.Put("/api/leds", map[string]any{"colors": []string{"red", "blue"}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSetLedsWhileRunning(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	require.Equal(t, http.StatusAccepted, f.api.Post("/api/scheduler/start").Code)
	f.waitState(t, scheduler.StateWaiting)

	resp := f.api.Put("/api/leds", map[string]any{"colors": []string{"blue"}})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSetLedsHardwareError(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t)

	f.mem.FailNext(led.NewHwError(led.KindTimeout, "transmit", nil))
	resp := f.api.Put("/api/leds", map[string]any{"colors": []string{"blue"}})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestLogLevels(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Put("/api/logs/levels/scheduler", map[string]any{"level": "debug"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[struct {
		Levels map[string]string `json:"levels"`
	}](t, resp)
	assert.Equal(t, "debug", body.Levels["scheduler"])

	resp = f.api.Get("/api/logs/levels")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.api.Put("/api/logs/levels/scheduler", map[string]any{"level": "loud"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = f.api.Put("/api/logs/levels/scheduler", map[string]any{"level": "info"})
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestLogs(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.api.Get("/api/logs?level=warn&limit=10")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	logs := decode[models.LogsData](t, resp)
	assert.Equal(t, len(logs.Entries), logs.Count)

	resp = f.api.Get("/api/logs?level=chatty")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestEventStreamSendsCurrentState(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	var eventName, data string
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			eventName = name
		}
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			data = payload
			break
		}
	}
	assert.Equal(t, "scheduler-state", eventName)
	assert.Contains(t, data, `"state":"unknown"`)
}

func TestUIFallback(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/leds", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")

	resp := f.api.Get("/api/health")
	assert.Equal(t, RequestIDHeader, resp.Header().Get("Access-Control-Expose-Headers"))
}
