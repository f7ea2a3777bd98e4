package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/wx-station-go/types"
)

var SettingsPath = "settings.yaml" // be aware that it can be changed by -useSettingsPath

// DefaultSettings returns the daemon defaults. Port 80 matches the station's captive network.
func DefaultSettings() types.Settings {
	return types.Settings{
		Port:             80,
		FlashDir:         "/data/flash",
		DocumentName:     DefaultDocumentName,
		RebootCommand:    "systemctl reboot",
		SetupCommand:     "",
		MulticastAddress: "224.0.0.251",
		MulticastPort:    53318,
		SetupAnnounceSec: 300,
		RateLimitPerSec:  2,
		RateLimitBurst:   5,
		NotifySocket:     "/tmp/wx-station-notify.sock",
	}
}

// LoadSettings reads the YAML settings file on top of the defaults. A missing file is not an
// error; the fingerprint is generated and written back so it stays stable across restarts.
func LoadSettings(path string) (types.Settings, error) {
	if path == "" {
		path = SettingsPath
	}
	SettingsPath = path

	settings := DefaultSettings()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			settings.Fingerprint = GenerateFingerprint()
			if writeErr := writeSettings(path, settings); writeErr != nil {
				DefaultLogger.Warnf("Settings file not found and could not be created: %v", writeErr)
			} else {
				DefaultLogger.Infof("Created new settings file %s", path)
			}
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %v", err)
	}
	if info.IsDir() {
		return settings, fmt.Errorf("settings file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %v", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %v", err)
	}

	if settings.Fingerprint == "" {
		settings.Fingerprint = GenerateFingerprint()
		if writeErr := writeSettings(path, settings); writeErr != nil {
			DefaultLogger.Warnf("Failed to update settings file: %v", writeErr)
		}
	}
	if settings.DocumentName == "" {
		settings.DocumentName = DefaultDocumentName
	}
	return settings, nil
}

func writeSettings(path string, settings types.Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyFlagOverrides lets CLI flags win over the settings file.
func ApplyFlagOverrides(settings *types.Settings, flags types.Config) {
	if flags.UsePort > 0 {
		settings.Port = flags.UsePort
	}
	if flags.UseFlashDir != "" {
		settings.FlashDir = flags.UseFlashDir
	}
}
