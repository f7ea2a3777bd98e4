package types

// Notification is pushed to websocket clients when the configuration changes.
type Notification struct {
	Type    string         `json:"type,omitempty"`    // e.g. "config_saved", "config_restored"
	Title   string         `json:"title,omitempty"`   // short title
	Message string         `json:"message,omitempty"` // human readable text
	Data    map[string]any `json:"data,omitempty"`    // extra fields
}

const (
	NotifyTypeConfigSaved    = "config_saved"
	NotifyTypeConfigRestored = "config_restored"
	NotifyTypeConfigReset    = "config_reset"
	NotifyTypeSetupMode      = "setup_mode"
	NotifyTypeRebooting      = "rebooting"
	NotifyTypeHello          = "hello"
)

// FlashLevel maps to the Bootstrap alert class used by the config page.
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashDanger  FlashLevel = "danger"
	FlashInfo    FlashLevel = "info"
)

// FlashMessage is shown once on the next page render after an action.
type FlashMessage struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// NotifyHub broadcasts notifications to connected UI clients.
type NotifyHub interface {
	Broadcast(notification *Notification)
}
