package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/moyoez/wx-station-go/types"
)

// FormSource is what ApplyForm reads submitted fields from; *gin.Context satisfies it.
type FormSource interface {
	GetPostForm(key string) (string, bool)
}

// Range rules for numeric form fields.
const (
	portRule     = "min=1,max=65535"
	intervalRule = "min=1,max=10080" // minutes, up to one week
	restartRule  = "min=0,max=4"
)

var validate = validator.New()

// formApplier collects per-field problems while writing the record.
type formApplier struct {
	src      FormSource
	cfg      *types.StationConfig
	problems []string
}

// ApplyForm writes the submitted fields into cfg. Checkboxes that are absent mean false;
// every other field is only overwritten when present. Numbers that do not parse or break
// their range keep the previous value and are returned as problems.
func ApplyForm(src FormSource, cfg *types.StationConfig) []string {
	a := &formApplier{src: src, cfg: cfg}

	cfg.DebugMode = a.checked("debugMode")
	cfg.ActiveAPRS = a.checked("activeAPRS")
	cfg.ActiveMQTT = a.checked("activeMQTT")
	cfg.ActiveSyslog = a.checked("activeSYSLOG")

	a.text("stationName", &cfg.StationName)
	a.float("altitude", &cfg.Altitude)

	cfg.ActiveLight = a.checked("activeLight")
	a.text("dataTemp", &cfg.DataTemp)
	a.text("dataHumi", &cfg.DataHumi)
	a.text("dataPress", &cfg.DataPress)
	a.text("dataLight", &cfg.DataLight)
	a.text("dataRssi", &cfg.DataRssi)
	a.float("offsetTemp", &cfg.OffsetTemp)
	a.float("offsetHumi", &cfg.OffsetHumi)
	a.float("offsetPress", &cfg.OffsetPress)

	for i := range cfg.Servers {
		s := &cfg.Servers[i]
		s.Active = a.checked(fmt.Sprintf("serverActive%d", i))
		a.text(fmt.Sprintf("serverUrl%d", i), &s.URL)
		a.text(fmt.Sprintf("serverName%d", i), &s.Name)
	}

	a.text("aprsHost", &cfg.AprsHost)
	a.integer("aprsPort", portRule, &cfg.AprsPort)
	a.text("aprsCall", &cfg.AprsCall)
	a.text("aprsPass", &cfg.AprsPass)
	a.text("aprsLat", &cfg.AprsLat)
	a.text("aprsLon", &cfg.AprsLon)
	if v, ok := src.GetPostForm("aprsComment"); ok {
		cfg.AprsComment.Set(v)
	}

	a.text("mqttServer", &cfg.MqttServer)
	a.integer("mqttPort", portRule, &cfg.MqttPort)
	a.text("mqttTopicPub1", &cfg.MqttTopicPub1)
	a.text("mqttTopicPub2", &cfg.MqttTopicPub2)
	a.text("mqttTopicSub1", &cfg.MqttTopicSub1)
	a.text("mqttTopicSub2", &cfg.MqttTopicSub2)

	a.text("syslogServer", &cfg.SyslogServer)
	a.integer("syslogPort", portRule, &cfg.SyslogPort)

	a.minutes("intervalHttp", &cfg.IntervalHTTP)
	a.minutes("intervalAprs", &cfg.IntervalAPRS)
	a.minutes("intervalMqtt", &cfg.IntervalMQTT)
	var mode int
	if a.integer("restartMode", restartRule, &mode) {
		cfg.RestartMode = types.RestartMode(mode)
	}

	return a.problems
}

func (a *formApplier) checked(key string) bool {
	_, ok := a.src.GetPostForm(key)
	return ok
}

func (a *formApplier) text(key string, dst *string) {
	if v, ok := a.src.GetPostForm(key); ok {
		*dst = v
	}
}

func (a *formApplier) float(key string, dst *float64) {
	v, ok := a.src.GetPostForm(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		a.problems = append(a.problems, fmt.Sprintf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}

// integer parses key and checks rule; it reports whether dst was written.
func (a *formApplier) integer(key, rule string, dst *int) bool {
	v, ok := a.src.GetPostForm(key)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		a.problems = append(a.problems, fmt.Sprintf("%s: %q is not a whole number", key, v))
		return false
	}
	if err := validate.Var(n, rule); err != nil {
		a.problems = append(a.problems, fmt.Sprintf("%s: %d is out of range", key, n))
		return false
	}
	*dst = n
	return true
}

func (a *formApplier) minutes(key string, dst *types.Millis) {
	var m int
	if a.integer(key, intervalRule, &m) {
		*dst = types.MillisFromMinutes(int64(m))
	}
}
