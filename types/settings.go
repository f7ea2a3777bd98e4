package types

// Settings configures the daemon itself, loaded from settings.yaml.
// The station record lives in the flash directory and is edited over HTTP.
type Settings struct {
	Port             int     `yaml:"port"`
	FlashDir         string  `yaml:"flashDir"`
	DocumentName     string  `yaml:"documentName"`
	RebootCommand    string  `yaml:"rebootCommand"`
	SetupCommand     string  `yaml:"setupCommand"`
	MulticastAddress string  `yaml:"multicastAddress"`
	MulticastPort    int     `yaml:"multicastPort"`
	SetupAnnounceSec int     `yaml:"setupAnnounceSeconds"`
	RateLimitPerSec  float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst   int     `yaml:"rateLimitBurst"`
	NotifySocket     string  `yaml:"notifySocket"`
	Fingerprint      string  `yaml:"fingerprint,omitempty"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log             string
	UseSettingsPath string
	UsePort         int
	UseFlashDir     string
	SkipRestart     bool // if true, the restart policy is never scheduled.
}
