package diag

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

const (
	MethodICMP = "icmp"
	MethodMQTT = "mqtt"
)

var (
	// CheckTimeout bounds each individual check.
	CheckTimeout = 3 * time.Second
	// Privileged selects raw ICMP sockets; unprivileged mode uses UDP pings.
	Privileged = false
)

// Target is one endpoint the station would talk to.
type Target struct {
	Name   string
	Host   string
	Port   int
	Method string
}

func (t Target) Address() string {
	if t.Port > 0 {
		return t.Host + ":" + strconv.Itoa(t.Port)
	}
	return t.Host
}

// Targets lists the enabled endpoints of cfg. Disabled features are skipped.
func Targets(cfg types.StationConfig) []Target {
	var targets []Target
	for i, s := range cfg.Servers {
		if !s.Active {
			continue
		}
		u, err := url.Parse(s.URL)
		if err != nil || u.Hostname() == "" {
			continue
		}
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("server%d", i)
		}
		targets = append(targets, Target{Name: name, Host: u.Hostname(), Method: MethodICMP})
	}
	if cfg.ActiveAPRS && cfg.AprsHost != "" {
		targets = append(targets, Target{Name: "aprs", Host: cfg.AprsHost, Port: cfg.AprsPort, Method: MethodICMP})
	}
	if cfg.ActiveMQTT && cfg.MqttServer != "" {
		targets = append(targets, Target{Name: "mqtt", Host: cfg.MqttServer, Port: cfg.MqttPort, Method: MethodMQTT})
	}
	if cfg.ActiveSyslog && cfg.SyslogServer != "" {
		targets = append(targets, Target{Name: "syslog", Host: cfg.SyslogServer, Port: cfg.SyslogPort, Method: MethodICMP})
	}
	return targets
}

// Check tests all targets concurrently. Results keep the order of targets.
func Check(ctx context.Context, targets []Target) []types.ReachabilityResult {
	results := make([]types.ReachabilityResult, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			results[i] = checkTarget(ctx, t)
		}(i, t)
	}
	wg.Wait()
	return results
}

func checkTarget(ctx context.Context, t Target) types.ReachabilityResult {
	res := types.ReachabilityResult{Name: t.Name, Target: t.Address(), Method: t.Method}
	var (
		rtt time.Duration
		err error
	)
	switch t.Method {
	case MethodMQTT:
		rtt, err = connectMQTT(ctx, t.Host, t.Port)
	default:
		rtt, err = ping(ctx, t.Host)
	}
	if err != nil {
		res.Error = err.Error()
		tool.DefaultLogger.Debugf("[Diag] %s (%s) unreachable: %v", t.Name, res.Target, err)
		return res
	}
	res.Reachable = true
	res.RttMillis = float64(rtt.Microseconds()) / 1000
	return res
}

func ping(ctx context.Context, host string) (time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", host, err)
	}
	pinger.Count = 1
	pinger.Timeout = CheckTimeout
	pinger.SetPrivileged(Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no reply from %s", host)
	}
	return stats.AvgRtt, nil
}

// connectMQTT opens and closes a session with the broker.
func connectMQTT(ctx context.Context, host string, port int) (time.Duration, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID("wx-diag-" + tool.GenerateFingerprint()[:8])
	opts.SetConnectTimeout(CheckTimeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	client := mqtt.NewClient(opts)
	start := time.Now()
	token := client.Connect()
	defer closeMQTT(client, token)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(CheckTimeout):
		return 0, fmt.Errorf("timed out connecting to %s:%d", host, port)
	}
	if err := token.Error(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// closeMQTT tears the session down. A connect still in flight is aborted, and if it
// completes anyway the session is closed once the token settles.
func closeMQTT(client mqtt.Client, token mqtt.Token) {
	select {
	case <-token.Done():
		if client.IsConnectionOpen() {
			client.Disconnect(100)
		}
		return
	default:
	}
	client.Disconnect(0)
	go func() {
		token.WaitTimeout(2 * CheckTimeout)
		if client.IsConnectionOpen() {
			client.Disconnect(0)
		}
	}()
}
