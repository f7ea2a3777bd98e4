package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// MaxPayloadSize caps one framed notification.
const MaxPayloadSize = 32 * 1024

// SocketTimeout bounds dial, write and the acknowledgement read.
var SocketTimeout = 3 * time.Second

// SocketNotifier forwards notifications to the station's sampling process over a
// Unix socket: a little-endian uint32 length followed by the JSON payload.
// The peer may answer with {"error": "..."}.
type SocketNotifier struct {
	Path string
}

var _ types.NotifyHub = (*SocketNotifier)(nil)

func NewSocketNotifier(path string) *SocketNotifier {
	return &SocketNotifier{Path: path}
}

// Broadcast sends and only logs failures.
func (n *SocketNotifier) Broadcast(notification *types.Notification) {
	if err := n.Send(notification); err != nil {
		tool.DefaultLogger.Debugf("[Notify] %v", err)
	}
}

func (n *SocketNotifier) Send(notification *types.Notification) error {
	if n == nil || n.Path == "" {
		return nil
	}
	if _, err := os.Stat(n.Path); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", n.Path)
	}

	payload := []byte("{}")
	if notification != nil {
		var err error
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification: %w", err)
		}
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	conn, err := net.DialTimeout("unix", n.Path, SocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to unix socket %s: %w", n.Path, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("[Notify] Failed to close unix socket: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(SocketTimeout)); err != nil {
		tool.DefaultLogger.Warnf("[Notify] Failed to set deadline: %v", err)
	}
	if err := WriteFrame(conn, payload); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	read, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read acknowledgement: %w", err)
	}
	if read > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:read], &response); err == nil {
			if msg, ok := response["error"].(string); ok && msg != "" {
				return fmt.Errorf("sampler returned error: %s", msg)
			}
		}
	}
	if notification != nil {
		tool.DefaultLogger.Debugf("[Notify] Sent %s to %s", notification.Type, n.Path)
	}
	return nil
}

// WriteFrame writes the length prefix and payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}
