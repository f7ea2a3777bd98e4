package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/moyoez/wx-station-go/types"
)

// HostCommandTimeout bounds the reboot and setup commands.
var HostCommandTimeout = 30 * time.Second

// SystemHost runs the platform commands configured in settings.yaml.
type SystemHost struct {
	RebootCommand string
	SetupCommand  string
	// OnSetupMode runs before the setup command, e.g. to start the discovery announcer.
	OnSetupMode func()
}

var _ types.Host = (*SystemHost)(nil)

func NewSystemHost(settings types.Settings) *SystemHost {
	return &SystemHost{
		RebootCommand: settings.RebootCommand,
		SetupCommand:  settings.SetupCommand,
	}
}

func (h *SystemHost) Reboot() error {
	DefaultLogger.Warnf("[Host] Rebooting station")
	return runHostCommand(h.RebootCommand)
}

func (h *SystemHost) StartSetupMode() error {
	DefaultLogger.Infof("[Host] Entering setup mode")
	if h.OnSetupMode != nil {
		h.OnSetupMode()
	}
	if strings.TrimSpace(h.SetupCommand) == "" {
		return nil
	}
	return runHostCommand(h.SetupCommand)
}

func runHostCommand(command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("no host command configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), HostCommandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, fields[0], fields[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("host command %q failed: %v (%s)", command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
