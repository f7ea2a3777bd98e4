package tool

import (
	"flag"

	"github.com/moyoez/wx-station-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseSettingsPath, "useSettingsPath", "", "override settings file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override HTTP listen port")
	flag.StringVar(&cfg.UseFlashDir, "useFlashDir", "", "override flash directory holding config.json")
	flag.BoolVar(&cfg.SkipRestart, "skipRestart", false, "if true, never schedule the periodic restart")
	flag.Parse()
	return cfg
}
