package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// RestartScheduler reboots the station on the cadence chosen by restartMode.
type RestartScheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	host   types.Host
	mode   types.RestartMode
	entry  cron.EntryID
	active bool
}

func NewRestartScheduler(host types.Host) *RestartScheduler {
	return &RestartScheduler{
		cron: cron.New(),
		host: host,
		mode: types.RestartDisabled,
	}
}

// Spec returns the cron expression for mode, or "" when restarts are disabled.
func Spec(mode types.RestartMode) string {
	if !mode.Valid() || mode == types.RestartDisabled {
		return ""
	}
	return fmt.Sprintf("@every %s", mode.Interval())
}

// Apply re-arms the job for mode. The timer restarts only when the mode changes.
func (s *RestartScheduler) Apply(mode types.RestartMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active && mode == s.mode {
		return nil
	}
	if s.active {
		s.cron.Remove(s.entry)
		s.active = false
	}
	s.mode = mode

	spec := Spec(mode)
	if spec == "" {
		tool.DefaultLogger.Infof("[Restart] Periodic restart disabled")
		return nil
	}
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("failed to schedule restart %q: %w", spec, err)
	}
	s.entry = id
	s.active = true
	tool.DefaultLogger.Infof("[Restart] Station restarts every %s", mode)
	return nil
}

// Mode returns the currently armed mode.
func (s *RestartScheduler) Mode() types.RestartMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return types.RestartDisabled
	}
	return s.mode
}

func (s *RestartScheduler) fire() {
	tool.DefaultLogger.Warnf("[Restart] Scheduled restart")
	if err := s.host.Reboot(); err != nil {
		tool.DefaultLogger.Errorf("[Restart] Reboot failed: %v", err)
	}
}

func (s *RestartScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job.
func (s *RestartScheduler) Stop() {
	<-s.cron.Stop().Done()
}
