package types

import "time"

// MaxServerTargets is the number of upload server slots a station carries.
const MaxServerTargets = 4

// ServerTarget is one upload destination for measured data.
type ServerTarget struct {
	Active bool   `json:"active"`
	URL    string `json:"url"`
	Name   string `json:"name"`
}

// StationConfig is the station configuration record persisted as config.json.
// The JSON layout is flat and is produced by tool.EncodeDocument, not by these fields directly.
type StationConfig struct {
	// feature toggles
	DebugMode    bool
	ActiveAPRS   bool
	ActiveMQTT   bool
	ActiveSyslog bool
	ActiveLight  bool

	// identity
	StationName string
	Altitude    float64

	// sensor labels and calibration offsets
	DataTemp    string
	DataHumi    string
	DataPress   string
	DataLight   string
	DataRssi    string
	OffsetTemp  float64
	OffsetHumi  float64
	OffsetPress float64

	Servers [MaxServerTargets]ServerTarget

	AprsHost    string
	AprsPort    int
	AprsCall    string
	AprsPass    string
	AprsLat     string
	AprsLon     string
	AprsComment CommentText

	MqttServer    string
	MqttPort      int
	MqttTopicPub1 string
	MqttTopicPub2 string
	MqttTopicSub1 string
	MqttTopicSub2 string

	SyslogServer string
	SyslogPort   int

	IntervalHTTP Millis
	IntervalAPRS Millis
	IntervalMQTT Millis
	RestartMode  RestartMode
}

// Default values of every field.
const (
	DefaultStationName  = "wx-station"
	DefaultAltitude     = 230.0
	DefaultDataTemp     = "temperature"
	DefaultDataHumi     = "humidity"
	DefaultDataPress    = "pressure"
	DefaultDataLight    = "light"
	DefaultDataRssi     = "rssi"
	DefaultServerURL    = "http://example.com/"
	DefaultAprsHost     = "euro.aprs2.net"
	DefaultAprsPort     = 14580
	DefaultAprsCall     = "NOCALL-13"
	DefaultAprsPass     = "12345"
	DefaultAprsLat      = "0000.00N"
	DefaultAprsLon      = "00000.00E"
	DefaultAprsComment  = "WX-Station https://www.ok1kky.cz"
	DefaultMqttServer   = "example.com"
	DefaultMqttPort     = 1883
	DefaultSyslogServer = "example.com"
	DefaultSyslogPort   = 514

	DefaultIntervalHTTP Millis = 300000
	DefaultIntervalAPRS Millis = 600000
	DefaultIntervalMQTT Millis = 100000

	DefaultRestartMode = Restart12h
)

// DefaultServerTarget is the value of an unconfigured server slot.
func DefaultServerTarget() ServerTarget {
	return ServerTarget{Active: false, URL: DefaultServerURL, Name: ""}
}

// DefaultStationConfig returns the compiled-in configuration.
func DefaultStationConfig() StationConfig {
	cfg := StationConfig{
		StationName:  DefaultStationName,
		Altitude:     DefaultAltitude,
		DataTemp:     DefaultDataTemp,
		DataHumi:     DefaultDataHumi,
		DataPress:    DefaultDataPress,
		DataLight:    DefaultDataLight,
		DataRssi:     DefaultDataRssi,
		AprsHost:     DefaultAprsHost,
		AprsPort:     DefaultAprsPort,
		AprsCall:     DefaultAprsCall,
		AprsPass:     DefaultAprsPass,
		AprsLat:      DefaultAprsLat,
		AprsLon:      DefaultAprsLon,
		AprsComment:  NewCommentText(DefaultAprsComment),
		MqttServer:   DefaultMqttServer,
		MqttPort:     DefaultMqttPort,
		SyslogServer: DefaultSyslogServer,
		SyslogPort:   DefaultSyslogPort,
		IntervalHTTP: DefaultIntervalHTTP,
		IntervalAPRS: DefaultIntervalAPRS,
		IntervalMQTT: DefaultIntervalMQTT,
		RestartMode:  DefaultRestartMode,
	}
	for i := range cfg.Servers {
		cfg.Servers[i] = DefaultServerTarget()
	}
	return cfg
}

// AnyServerActive reports whether at least one upload server is enabled.
func (c *StationConfig) AnyServerActive() bool {
	for _, s := range c.Servers {
		if s.Active {
			return true
		}
	}
	return false
}

// Millis is a duration stored in milliseconds and edited in minutes.
type Millis int64

// MillisPerMinute is the factor between the edited and the stored unit.
const MillisPerMinute = 60000

// MillisFromMinutes converts a user-entered minute count.
func MillisFromMinutes(minutes int64) Millis {
	return Millis(minutes * MillisPerMinute)
}

// Minutes truncates to whole minutes for display.
func (m Millis) Minutes() int64 {
	return int64(m) / MillisPerMinute
}

func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// RestartMode selects the periodic restart policy.
type RestartMode int

const (
	RestartDisabled RestartMode = iota
	Restart6h
	Restart12h
	Restart24h
	Restart48h
)

var restartIntervals = map[RestartMode]time.Duration{
	RestartDisabled: 0,
	Restart6h:       6 * time.Hour,
	Restart12h:      12 * time.Hour,
	Restart24h:      24 * time.Hour,
	Restart48h:      48 * time.Hour,
}

func (m RestartMode) Valid() bool {
	_, ok := restartIntervals[m]
	return ok
}

// Interval returns the restart period, 0 when disabled or unknown.
func (m RestartMode) Interval() time.Duration {
	return restartIntervals[m]
}

func (m RestartMode) String() string {
	switch m {
	case RestartDisabled:
		return "Disable"
	case Restart6h:
		return "6 hours"
	case Restart12h:
		return "12 hours"
	case Restart24h:
		return "24 hours"
	case Restart48h:
		return "48 hours"
	default:
		return "unknown"
	}
}

// RestartModes lists the selectable modes in display order.
func RestartModes() []RestartMode {
	return []RestartMode{RestartDisabled, Restart6h, Restart12h, Restart24h, Restart48h}
}
