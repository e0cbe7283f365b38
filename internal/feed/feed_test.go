package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/scenario"
	"github.com/san-kum/orbitsim/internal/sim"
)

func newEngine(t *testing.T) *sim.Engine {
	t.Helper()
	x, err := scenario.Binary(nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := sim.New(x, dynamo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func TestNewFrame(t *testing.T) {
	x := dynamo.State{{Name: "a", Mass: 2, Color: "#ffffff", IsStar: true}}
	x[0].Position.X, x[0].Velocity.Z = 1, 3
	f := NewFrame(1.5, 7, dynamo.EnergyStats{Total: -1}, x)

	if f.Time != 1.5 || f.Step != 7 || f.Stats.Total != -1 {
		t.Errorf("header = %+v", f)
	}
	b := f.Bodies[0]
	if b.Name != "a" || !b.Star || b.Position != [3]float64{1, 0, 0} || b.Velocity != [3]float64{0, 0, 3} {
		t.Errorf("body = %+v", b)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	a, b := dial(t, srv, "/"), dial(t, srv, "/")
	waitClients(t, h, 2)

	if !h.Publish(Frame{Step: 42}) {
		t.Fatal("Publish() = false")
	}
	for _, conn := range []*websocket.Conn{a, b} {
		if f := readFrame(t, conn); f.Step != 42 {
			t.Errorf("step = %d, want 42", f.Step)
		}
	}

	a.Close()
	waitClients(t, h, 1)
}

func TestHubReplaysLastFrame(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	first := dial(t, srv, "/")
	waitClients(t, h, 1)
	h.Publish(Frame{Step: 3})
	readFrame(t, first)

	late := dial(t, srv, "/")
	if f := readFrame(t, late); f.Step != 3 {
		t.Errorf("replayed step = %d, want 3", f.Step)
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if h.Publish(Frame{}) {
		t.Error("Publish after Close succeeded")
	}
}

func TestNewServerInvalid(t *testing.T) {
	_, err := NewServer(newEngine(t), Options{Dt: 0})
	if !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestServerTickPublishes(t *testing.T) {
	s, err := NewServer(newEngine(t), Options{Dt: 0.001, Substeps: 10})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Hub().Close()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "/ws")
	// the initial frame is recorded but only callback frames are broadcast
	waitClients(t, s.Hub(), 1)

	if err := s.Tick(); err != nil {
		t.Fatal(err)
	}
	f := readFrame(t, conn)
	if f.Step != 10 || len(f.Bodies) != 2 {
		t.Errorf("frame step=%d bodies=%d", f.Step, len(f.Bodies))
	}
	if f.Stats.Total >= 0 {
		t.Errorf("bound binary total = %g", f.Stats.Total)
	}

	resp, err := http.Get(srv.URL + "/frame")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var latest Frame
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatal(err)
	}
	if latest.Step != 10 {
		t.Errorf("/frame step = %d, want 10", latest.Step)
	}
}

func TestServerRunDuration(t *testing.T) {
	s, err := NewServer(newEngine(t), Options{Dt: 0.001, Substeps: 10, Tick: time.Millisecond, Duration: 0.05})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Hub().Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if got := s.Latest().Step; got < 50 {
		t.Errorf("latest step = %d, want >= 50", got)
	}
}

func TestServerRunCancelled(t *testing.T) {
	s, err := NewServer(newEngine(t), Options{Dt: 0.001, Tick: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Hub().Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger("warn", log.New(&buf, "", 0))
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info logged below warn level")
	}
	if !strings.Contains(out, "[WARN] shown 2") || !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("output = %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"debug": LevelDebug, "INFO": LevelInfo, "warning": LevelWarn, "error": LevelError, "": LevelInfo}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
