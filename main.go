package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/wx-station-go/api"
	"github.com/moyoez/wx-station-go/api/notifyhub"
	"github.com/moyoez/wx-station-go/boardcast"
	"github.com/moyoez/wx-station-go/notify"
	"github.com/moyoez/wx-station-go/scheduler"
	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

const appVersion = "1.0.0"

func main() {
	flags := tool.SetFlags()

	tool.InitLogger()
	tool.SetLogMode(flags.Log)
	baseLevel := tool.DefaultLogger.GetLevel()

	settings, err := tool.LoadSettings(flags.UseSettingsPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&settings, flags)

	store := tool.NewConfigStore(tool.NewDirFlash(settings.FlashDir), settings.DocumentName)
	state, err := store.Load()
	switch state {
	case tool.StateUnmounted:
		// Keep serving defaults so the station can still be reached and reset.
		tool.DefaultLogger.Errorf("[Config] Flash unavailable, running on defaults: %v", err)
	case tool.StateDefaults:
		tool.DefaultLogger.Infof("[Config] No %s yet, using defaults", settings.DocumentName)
	case tool.StateCorrupt:
		tool.DefaultLogger.Warnf("[Config] %s unusable, using defaults: %v", settings.DocumentName, err)
	default:
		tool.DefaultLogger.Infof("[Config] Loaded %s", settings.DocumentName)
	}

	cfg := store.Snapshot()
	tool.ApplyDebugMode(cfg.DebugMode, baseLevel)

	announcer := boardcast.NewAnnouncer(settings.MulticastAddress, settings.MulticastPort, func() *types.AnnounceMessage {
		return &types.AnnounceMessage{
			StationName: store.Snapshot().StationName,
			Fingerprint: settings.Fingerprint,
			Version:     appVersion,
			ConfigURL:   tool.ConfigURL(settings.Port),
			SetupMode:   true,
		}
	})

	host := tool.NewSystemHost(settings)
	host.OnSetupMode = func() {
		if err := announcer.Start(time.Duration(settings.SetupAnnounceSec) * time.Second); err != nil {
			tool.DefaultLogger.Errorf("[Announce] %v", err)
		}
	}

	restarts := scheduler.NewRestartScheduler(host)
	if !flags.SkipRestart {
		if err := restarts.Apply(cfg.RestartMode); err != nil {
			tool.DefaultLogger.Errorf("%v", err)
		}
		restarts.Start()
	}

	hub := notifyhub.New()
	sampler := notify.NewSocketNotifier(settings.NotifySocket)

	store.OnChange(func(cfg types.StationConfig) {
		tool.ApplyDebugMode(cfg.DebugMode, baseLevel)
		if !flags.SkipRestart {
			if err := restarts.Apply(cfg.RestartMode); err != nil {
				tool.DefaultLogger.Errorf("%v", err)
			}
		}
	})

	var limiter *rate.Limiter
	if settings.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.RateLimitPerSec), settings.RateLimitBurst)
	}

	server := api.NewServer(api.Options{
		Port:    settings.Port,
		Version: appVersion,
		Store:   store,
		Host:    host,
		Hub:     hub,
		Notify:  notify.Fanout{hub, sampler},
		Limiter: limiter,
	})
	go func() {
		if err := server.Start(); err != nil {
			tool.DefaultLogger.Fatalf("[Web] Server startup failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	tool.DefaultLogger.Infof("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		tool.DefaultLogger.Errorf("[Web] Shutdown: %v", err)
	}
	announcer.Stop()
	if !flags.SkipRestart {
		restarts.Stop()
	}
}
