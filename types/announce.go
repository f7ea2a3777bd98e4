package types

/*
 Setup mode multicast announcement example

{
  "stationName": "wx-station",
  "fingerprint": "2f0c...",
  "version": "1.4.0",
  "configUrl": "http://192.168.4.1:80/",
  "setupMode": true
}

*/

// AnnounceMessage is multicast by the station while it is in setup mode so that
// field tools can find the configuration page.
type AnnounceMessage struct {
	StationName string `json:"stationName"`
	Fingerprint string `json:"fingerprint"`
	Version     string `json:"version"`
	ConfigURL   string `json:"configUrl"`
	SetupMode   bool   `json:"setupMode"`
}
