package boardcast

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

const (
	defaultMulticastAddress = "224.0.0.251"
	defaultMulticastPort    = 53318
	// announceInterval is how often the station repeats itself while in setup mode.
	announceInterval = 5 * time.Second
)

// Announcer advertises the station over UDP multicast while setup mode lasts,
// so a phone on the pairing network can find the config page.
type Announcer struct {
	address  string
	port     int
	interval time.Duration
	message  func() *types.AnnounceMessage

	// lifecycle serializes Start and Stop so only one loop owns the cancel func.
	lifecycle sync.Mutex
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewAnnouncer builds an announcer; message is evaluated on every send so renames show up.
func NewAnnouncer(address string, port int, message func() *types.AnnounceMessage) *Announcer {
	if address == "" {
		address = defaultMulticastAddress
	}
	if port <= 0 {
		port = defaultMulticastPort
	}
	return &Announcer{
		address:  address,
		port:     port,
		interval: announceInterval,
		message:  message,
	}
}

func (a *Announcer) Address() string {
	return net.JoinHostPort(a.address, fmt.Sprint(a.port))
}

// Running reports whether an announce loop is active.
func (a *Announcer) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Start announces for timeout (0 means until Stop). Starting again restarts the timer.
func (a *Announcer) Start(timeout time.Duration) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	addr, err := net.ResolveUDPAddr("udp4", a.Address())
	if err != nil {
		return fmt.Errorf("failed to resolve multicast address: %w", err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to dial multicast address: %w", err)
	}

	a.stopLoop()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	if timeout > 0 {
		tool.DefaultLogger.Infof("[Announce] Sending to %s every %s for %s", a.Address(), a.interval, timeout)
	} else {
		tool.DefaultLogger.Infof("[Announce] Sending to %s every %s", a.Address(), a.interval)
	}
	go a.loop(ctx, cancel, conn, done)
	return nil
}

// Stop ends the announce loop and waits for it to exit.
func (a *Announcer) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	a.stopLoop()
}

func (a *Announcer) stopLoop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *Announcer) loop(ctx context.Context, cancel context.CancelFunc, conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	defer cancel()
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("[Announce] Failed to close multicast connection: %v", err)
		}
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.sendOnce(conn)
	for {
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Infof("[Announce] Stopped")
			a.mu.Lock()
			if a.done == done {
				a.cancel, a.done = nil, nil
			}
			a.mu.Unlock()
			return
		case <-ticker.C:
			a.sendOnce(conn)
		}
	}
}

func (a *Announcer) sendOnce(conn *net.UDPConn) {
	payload, err := EncodeAnnounce(a.message())
	if err != nil {
		tool.DefaultLogger.Errorf("[Announce] %v", err)
		return
	}
	if _, err := conn.Write(payload); err != nil {
		tool.DefaultLogger.Warnf("[Announce] Failed to send: %v", err)
		return
	}
	tool.DefaultLogger.Debugf("[Announce] Sent %d bytes", len(payload))
}

// EncodeAnnounce marshals an announcement for the wire.
func EncodeAnnounce(msg *types.AnnounceMessage) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil announce message")
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal announce message: %w", err)
	}
	return data, nil
}
