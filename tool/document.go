package tool

import (
	"errors"
	"fmt"
	"math"

	"github.com/bytedance/sonic"

	"github.com/moyoez/wx-station-go/types"
)

// MaxDocumentSize bounds the serialized config document. The full record encodes to
// roughly 1.5 KiB with defaults; the rest is headroom for long user strings.
const MaxDocumentSize = 4096

// Keys of the persisted document.
const (
	keyDebugMode     = "debugMode"
	keyActiveAPRS    = "activeAPRS"
	keyActiveMQTT    = "activeMQTT"
	keyActiveSyslog  = "activeSYSLOG"
	keyActiveLight   = "activeLight"
	keyStationName   = "stationName"
	keyAltitude      = "altitude"
	keyDataTemp      = "dataTemp"
	keyDataHumi      = "dataHumi"
	keyDataPress     = "dataPress"
	keyDataLight     = "dataLight"
	keyDataRssi      = "dataRssi"
	keyOffsetTemp    = "offsetTemp"
	keyOffsetHumi    = "offsetHumi"
	keyOffsetPress   = "offsetPress"
	keyAprsHost      = "aprsHost"
	keyAprsPort      = "aprsPort"
	keyAprsCall      = "aprsCall"
	keyAprsPass      = "aprsPass"
	keyAprsLat       = "aprsLat"
	keyAprsLon       = "aprsLon"
	keyAprsComment   = "aprsComment"
	keyMqttServer    = "mqttServer"
	keyMqttPort      = "mqttPort"
	keyMqttTopicPub1 = "mqttTopicPub1"
	keyMqttTopicPub2 = "mqttTopicPub2"
	keyMqttTopicSub1 = "mqttTopicSub1"
	keyMqttTopicSub2 = "mqttTopicSub2"
	keySyslogServer  = "syslogServer"
	keySyslogPort    = "syslogPort"
	keyIntervalHTTP  = "intervalHttp"
	keyIntervalAPRS  = "intervalAprs"
	keyIntervalMQTT  = "intervalMqtt"
	keyRestartMode   = "restartMode"
)

func serverActiveKey(i int) string { return fmt.Sprintf("serverActive%d", i) }
func serverURLKey(i int) string    { return fmt.Sprintf("serverUrl%d", i) }
func serverNameKey(i int) string   { return fmt.Sprintf("serverName%d", i) }

var (
	ErrDocumentCorrupt  = errors.New("config document is corrupt")
	ErrDocumentTooLarge = errors.New("config document exceeds size limit")
)

// EncodeDocument serializes every field of cfg into the flat, indented JSON document.
func EncodeDocument(cfg *types.StationConfig) ([]byte, error) {
	doc := map[string]any{
		keyDebugMode:     cfg.DebugMode,
		keyActiveAPRS:    cfg.ActiveAPRS,
		keyActiveMQTT:    cfg.ActiveMQTT,
		keyActiveSyslog:  cfg.ActiveSyslog,
		keyActiveLight:   cfg.ActiveLight,
		keyStationName:   cfg.StationName,
		keyAltitude:      cfg.Altitude,
		keyDataTemp:      cfg.DataTemp,
		keyDataHumi:      cfg.DataHumi,
		keyDataPress:     cfg.DataPress,
		keyDataLight:     cfg.DataLight,
		keyDataRssi:      cfg.DataRssi,
		keyOffsetTemp:    cfg.OffsetTemp,
		keyOffsetHumi:    cfg.OffsetHumi,
		keyOffsetPress:   cfg.OffsetPress,
		keyAprsHost:      cfg.AprsHost,
		keyAprsPort:      cfg.AprsPort,
		keyAprsCall:      cfg.AprsCall,
		keyAprsPass:      cfg.AprsPass,
		keyAprsLat:       cfg.AprsLat,
		keyAprsLon:       cfg.AprsLon,
		keyAprsComment:   cfg.AprsComment.String(),
		keyMqttServer:    cfg.MqttServer,
		keyMqttPort:      cfg.MqttPort,
		keyMqttTopicPub1: cfg.MqttTopicPub1,
		keyMqttTopicPub2: cfg.MqttTopicPub2,
		keyMqttTopicSub1: cfg.MqttTopicSub1,
		keyMqttTopicSub2: cfg.MqttTopicSub2,
		keySyslogServer:  cfg.SyslogServer,
		keySyslogPort:    cfg.SyslogPort,
		keyIntervalHTTP:  int64(cfg.IntervalHTTP),
		keyIntervalAPRS:  int64(cfg.IntervalAPRS),
		keyIntervalMQTT:  int64(cfg.IntervalMQTT),
		keyRestartMode:   int(cfg.RestartMode),
	}
	for i, s := range cfg.Servers {
		doc[serverActiveKey(i)] = s.Active
		doc[serverURLKey(i)] = s.URL
		doc[serverNameKey(i)] = s.Name
	}

	// ConfigStd sorts map keys, which keeps the file stable between saves.
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(data), MaxDocumentSize)
	}
	return data, nil
}

// DecodeDocument parses a persisted document. Each recognized key is applied on top of
// the defaults on its own; absent keys and values of the wrong kind keep the default.
// Unknown keys are ignored. Only syntax errors and non-object documents fail.
func DecodeDocument(data []byte) (types.StationConfig, error) {
	cfg := types.DefaultStationConfig()
	if len(data) > MaxDocumentSize {
		return cfg, fmt.Errorf("%w: %v", ErrDocumentCorrupt, ErrDocumentTooLarge)
	}

	var parsed any
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrDocumentCorrupt, err)
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf("%w: top level is not an object", ErrDocumentCorrupt)
	}

	d := docReader(doc)
	cfg.DebugMode = d.boolOr(keyDebugMode, cfg.DebugMode)
	cfg.ActiveAPRS = d.boolOr(keyActiveAPRS, cfg.ActiveAPRS)
	cfg.ActiveMQTT = d.boolOr(keyActiveMQTT, cfg.ActiveMQTT)
	cfg.ActiveSyslog = d.boolOr(keyActiveSyslog, cfg.ActiveSyslog)
	cfg.ActiveLight = d.boolOr(keyActiveLight, cfg.ActiveLight)

	cfg.StationName = d.stringOr(keyStationName, cfg.StationName)
	cfg.Altitude = d.floatOr(keyAltitude, cfg.Altitude)

	cfg.DataTemp = d.stringOr(keyDataTemp, cfg.DataTemp)
	cfg.DataHumi = d.stringOr(keyDataHumi, cfg.DataHumi)
	cfg.DataPress = d.stringOr(keyDataPress, cfg.DataPress)
	cfg.DataLight = d.stringOr(keyDataLight, cfg.DataLight)
	cfg.DataRssi = d.stringOr(keyDataRssi, cfg.DataRssi)
	cfg.OffsetTemp = d.floatOr(keyOffsetTemp, cfg.OffsetTemp)
	cfg.OffsetHumi = d.floatOr(keyOffsetHumi, cfg.OffsetHumi)
	cfg.OffsetPress = d.floatOr(keyOffsetPress, cfg.OffsetPress)

	for i := range cfg.Servers {
		s := &cfg.Servers[i]
		s.Active = d.boolOr(serverActiveKey(i), s.Active)
		s.URL = d.stringOr(serverURLKey(i), s.URL)
		s.Name = d.stringOr(serverNameKey(i), s.Name)
	}

	cfg.AprsHost = d.stringOr(keyAprsHost, cfg.AprsHost)
	cfg.AprsPort = int(d.intOr(keyAprsPort, int64(cfg.AprsPort)))
	cfg.AprsCall = d.stringOr(keyAprsCall, cfg.AprsCall)
	cfg.AprsPass = d.stringOr(keyAprsPass, cfg.AprsPass)
	cfg.AprsLat = d.stringOr(keyAprsLat, cfg.AprsLat)
	cfg.AprsLon = d.stringOr(keyAprsLon, cfg.AprsLon)
	cfg.AprsComment.Set(d.stringOr(keyAprsComment, cfg.AprsComment.String()))

	cfg.MqttServer = d.stringOr(keyMqttServer, cfg.MqttServer)
	cfg.MqttPort = int(d.intOr(keyMqttPort, int64(cfg.MqttPort)))
	cfg.MqttTopicPub1 = d.stringOr(keyMqttTopicPub1, cfg.MqttTopicPub1)
	cfg.MqttTopicPub2 = d.stringOr(keyMqttTopicPub2, cfg.MqttTopicPub2)
	cfg.MqttTopicSub1 = d.stringOr(keyMqttTopicSub1, cfg.MqttTopicSub1)
	cfg.MqttTopicSub2 = d.stringOr(keyMqttTopicSub2, cfg.MqttTopicSub2)

	cfg.SyslogServer = d.stringOr(keySyslogServer, cfg.SyslogServer)
	cfg.SyslogPort = int(d.intOr(keySyslogPort, int64(cfg.SyslogPort)))

	cfg.IntervalHTTP = types.Millis(d.intOr(keyIntervalHTTP, int64(cfg.IntervalHTTP)))
	cfg.IntervalAPRS = types.Millis(d.intOr(keyIntervalAPRS, int64(cfg.IntervalAPRS)))
	cfg.IntervalMQTT = types.Millis(d.intOr(keyIntervalMQTT, int64(cfg.IntervalMQTT)))
	if mode := types.RestartMode(d.intOr(keyRestartMode, int64(cfg.RestartMode))); mode.Valid() {
		cfg.RestartMode = mode
	}

	return cfg, nil
}

type docReader map[string]any

func (d docReader) boolOr(key string, def bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return def
}

func (d docReader) stringOr(key string, def string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return def
}

func (d docReader) floatOr(key string, def float64) float64 {
	if v, ok := d[key].(float64); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return def
}

// intOr accepts only integral numbers that fit in 32 bits.
func (d docReader) intOr(key string, def int64) int64 {
	v, ok := d[key].(float64)
	if !ok || v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return def
	}
	return int64(v)
}
