package diag

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/moyoez/wx-station-go/types"
)

func TestTargetsDefaultsNone(t *testing.T) {
	if got := Targets(types.DefaultStationConfig()); len(got) != 0 {
		t.Errorf("nothing is enabled by default, got %+v", got)
	}
}

func TestTargetsEnabledEndpoints(t *testing.T) {
	cfg := types.DefaultStationConfig()
	cfg.Servers[1] = types.ServerTarget{Active: true, URL: "https://wx.example.org:8443/api", Name: ""}
	cfg.Servers[2] = types.ServerTarget{Active: true, URL: "::bad::", Name: "broken"}
	cfg.ActiveAPRS = true
	cfg.ActiveMQTT = true
	cfg.MqttServer = "broker.local"
	cfg.ActiveSyslog = true
	cfg.SyslogServer = ""

	got := Targets(cfg)
	want := []Target{
		{Name: "server1", Host: "wx.example.org", Method: MethodICMP},
		{Name: "aprs", Host: types.DefaultAprsHost, Port: types.DefaultAprsPort, Method: MethodICMP},
		{Name: "mqtt", Host: "broker.local", Port: types.DefaultMqttPort, Method: MethodMQTT},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got[2].Address() != "broker.local:1883" || got[0].Address() != "wx.example.org" {
		t.Errorf("unexpected addresses %q %q", got[2].Address(), got[0].Address())
	}
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Check(ctx, []Target{{Name: "mqtt", Host: "127.0.0.1", Port: 1, Method: MethodMQTT}})
	if len(res) != 1 {
		t.Fatalf("expected one result, got %d", len(res))
	}
	if res[0].Reachable || res[0].Error == "" {
		t.Errorf("cancelled check must report an error: %+v", res[0])
	}
	if res[0].Target != "127.0.0.1:1" || res[0].Method != MethodMQTT {
		t.Errorf("unexpected result %+v", res[0])
	}
}

// slowBroker accepts one client, answers CONNECT after delay and reports when the
// client sends DISCONNECT or drops the connection.
func slowBroker(t *testing.T, delay time.Duration) (int, <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp not available: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 512)
		if _, err := conn.Read(buf); err != nil {
			close(closed)
			return
		}
		time.Sleep(delay)
		_, _ = conn.Write([]byte{0x20, 0x02, 0x00, 0x00}) // CONNACK, accepted
		for {
			n, err := conn.Read(buf)
			if err != nil || (n > 0 && buf[0] == 0xE0) {
				close(closed)
				return
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, closed
}

func TestConnectMQTTClosesLateSession(t *testing.T) {
	port, closed := slowBroker(t, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := connectMQTT(ctx, "127.0.0.1", port); err == nil {
		t.Fatal("expected the cancelled connect to fail")
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session still open after the check returned")
	}
}

func TestConnectMQTTDisconnectsAfterSuccess(t *testing.T) {
	port, closed := slowBroker(t, 0)

	rtt, err := connectMQTT(context.Background(), "127.0.0.1", port)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if rtt <= 0 {
		t.Errorf("expected a positive round trip, got %s", rtt)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed after a successful check")
	}
}
