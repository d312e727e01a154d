package yolink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// testLogger counts log lines per level.
type testLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
}

func (l *testLogger) Debug(string, ...any) {}
func (l *testLogger) Info(string, ...any)  {}
func (l *testLogger) Warn(string, ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns++
}
func (l *testLogger) Error(string, ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

// apiServer returns a test server that answers every call with the given
// code and data, capturing the decoded request envelopes it receives.
func apiServer(t *testing.T, code string, data map[string]any) (*httptest.Server, *[]Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding envelope: %v", err)
		}
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(Response{
			Method: req.Method,
			Code:   code,
			Desc:   "test",
			Data:   data,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestCallSuccess(t *testing.T) {
	srv, reqs := apiServer(t, CodeSuccess, map[string]any{"online": true})
	c := NewClient(srv.URL)

	data, err := c.Call(context.Background(), "tok", Request{Method: "Lock.getState", TargetDevice: "d1", Token: "devtok"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if data["online"] != true {
		t.Errorf("data = %v, want online=true", data)
	}

	got := (*reqs)[0]
	if got.Method != "Lock.getState" || got.TargetDevice != "d1" || got.Token != "devtok" {
		t.Errorf("envelope = %+v, want method/target/token preserved", got)
	}
	if got.Time == 0 {
		t.Error("envelope time was not stamped")
	}
}

func TestCallUserCodeLogsWarn(t *testing.T) {
	srv, _ := apiServer(t, "000203", nil)
	log := &testLogger{}
	c := NewClient(srv.URL)
	c.SetLogger(log)

	_, err := c.Call(context.Background(), "tok", Request{Method: "Lock.setState"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Call() error = %v, want *APIError", err)
	}
	if apiErr.Code != "000203" {
		t.Errorf("Code = %q, want 000203", apiErr.Code)
	}
	if log.warns != 1 || log.errors != 0 {
		t.Errorf("logged warns=%d errors=%d, want 1 warn 0 errors", log.warns, log.errors)
	}
}

func TestCallUnexpectedCodeLogsError(t *testing.T) {
	srv, _ := apiServer(t, "999999", nil)
	log := &testLogger{}
	c := NewClient(srv.URL)
	c.SetLogger(log)

	_, err := c.Call(context.Background(), "tok", Request{Method: "Lock.setState"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Call() error = %v, want *APIError", err)
	}
	if log.errors != 1 || log.warns != 0 {
		t.Errorf("logged warns=%d errors=%d, want 0 warns 1 error", log.warns, log.errors)
	}
}

func TestCallAuthCodeMatchesErrAuth(t *testing.T) {
	srv, _ := apiServer(t, "010104", nil)
	c := NewClient(srv.URL)

	_, err := c.Call(context.Background(), "tok", Request{Method: "Home.getDeviceList"})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Call() error = %v, want ErrAuth in chain", err)
	}
}

func TestCallMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	_, err := c.Call(context.Background(), "tok", Request{Method: "Home.getGeneralInfo"})
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("Call() error = %v, want ErrBadResponse", err)
	}
}

func TestGetDeviceList(t *testing.T) {
	srv, _ := apiServer(t, CodeSuccess, map[string]any{
		"devices": []map[string]any{
			{"deviceId": "d1", "name": "Front Door", "type": "Lock", "token": "t1"},
			{"deviceId": "d2", "name": "Garage", "type": "GarageDoor", "token": "t2", "parentDeviceId": "d3"},
		},
	})
	c := NewClient(srv.URL)

	devices, err := c.GetDeviceList(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetDeviceList() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].DeviceID != "d1" || devices[0].Type != "Lock" || devices[0].Token != "t1" {
		t.Errorf("device[0] = %+v", devices[0])
	}
	if devices[1].ParentDeviceID != "d3" {
		t.Errorf("device[1].ParentDeviceID = %q, want d3", devices[1].ParentDeviceID)
	}
}

func TestGetHomeID(t *testing.T) {
	srv, _ := apiServer(t, CodeSuccess, map[string]any{"id": "home-42"})
	c := NewClient(srv.URL)

	id, err := c.GetHomeID(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetHomeID() error = %v", err)
	}
	if id != "home-42" {
		t.Errorf("home id = %q, want home-42", id)
	}
}

func TestGetDeviceStateMethodDerivation(t *testing.T) {
	srv, reqs := apiServer(t, CodeSuccess, map[string]any{"state": map[string]any{"state": "open"}})
	c := NewClient(srv.URL)

	dev := DeviceInfo{DeviceID: "d9", Type: "GarageDoor", Token: "devtok"}
	if _, err := c.GetDeviceState(context.Background(), "tok", dev); err != nil {
		t.Fatalf("GetDeviceState() error = %v", err)
	}
	if got := (*reqs)[0].Method; got != "GarageDoor.getState" {
		t.Errorf("method = %q, want GarageDoor.getState", got)
	}
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name       string
		deviceType string
		state      map[string]any
		wantKind   StateKind
	}{
		{"lock", "Lock", map[string]any{"state": "locked", "battery": 4.0}, KindLock},
		{"leak", "LeakSensor", map[string]any{"state": "alert", "battery": 3.0}, KindLeakSensor},
		{"th", "THSensor", map[string]any{"temperature": 21.5, "humidity": 40.0}, KindTHSensor},
		{"unknown type", "Spaceship", map[string]any{"warp": 9}, KindUnknown},
		{"nil state", "Lock", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DecodeState(tt.deviceType, tt.state)
			if d.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", d.Kind, tt.wantKind)
			}
			if tt.state != nil && d.Raw == nil {
				t.Error("Raw payload not preserved")
			}
		})
	}

	d := DecodeState("Lock", map[string]any{"state": "locked", "battery": 4.0})
	if d.Lock == nil || d.Lock.State != "locked" || d.Lock.Battery != 4.0 {
		t.Errorf("Lock variant = %+v, want locked/4.0", d.Lock)
	}
}
