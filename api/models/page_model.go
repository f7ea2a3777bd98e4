package models

import (
	"strconv"
	"strings"

	"github.com/moyoez/wx-station-go/types"
)

// ServerRow is one upload server slot as rendered in the form.
type ServerRow struct {
	Index  int
	Label  string
	Short  string
	Active bool
	URL    string
	Name   string
}

// RestartOption is one entry of the restart select.
type RestartOption struct {
	Value    int
	Label    string
	Selected bool
}

// PageData feeds templates/index.html.
type PageData struct {
	Cfg     types.StationConfig
	Version string
	Flash   *types.FlashMessage

	Altitude    string
	OffsetTemp  string
	OffsetHumi  string
	OffsetPress string
	AprsComment string

	Servers        []ServerRow
	RestartOptions []RestartOption

	IntervalHTTP int64
	IntervalAPRS int64
	IntervalMQTT int64

	IntervalHTTPDisabled bool
	IntervalAPRSDisabled bool
	IntervalMQTTDisabled bool
}

// formatFloat prints the shortest exact form of f, keeping at least one decimal.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// NewPageData prepares the form view of cfg. Intervals are shown in whole minutes.
func NewPageData(cfg types.StationConfig, version string, flash *types.FlashMessage) PageData {
	data := PageData{
		Cfg:         cfg,
		Version:     version,
		Flash:       flash,
		Altitude:    formatFloat(cfg.Altitude),
		OffsetTemp:  formatFloat(cfg.OffsetTemp),
		OffsetHumi:  formatFloat(cfg.OffsetHumi),
		OffsetPress: formatFloat(cfg.OffsetPress),
		AprsComment: cfg.AprsComment.String(),

		IntervalHTTP: cfg.IntervalHTTP.Minutes(),
		IntervalAPRS: cfg.IntervalAPRS.Minutes(),
		IntervalMQTT: cfg.IntervalMQTT.Minutes(),

		IntervalHTTPDisabled: !cfg.AnyServerActive(),
		IntervalAPRSDisabled: !cfg.ActiveAPRS,
		IntervalMQTTDisabled: !cfg.ActiveMQTT,
	}

	for i, s := range cfg.Servers {
		row := ServerRow{
			Index:  i,
			Label:  "Server " + strconv.Itoa(i),
			Short:  "S" + strconv.Itoa(i),
			Active: s.Active,
			URL:    s.URL,
			Name:   s.Name,
		}
		data.Servers = append(data.Servers, row)
	}

	for _, mode := range types.RestartModes() {
		data.RestartOptions = append(data.RestartOptions, RestartOption{
			Value:    int(mode),
			Label:    mode.String(),
			Selected: mode == cfg.RestartMode,
		})
	}
	return data
}
