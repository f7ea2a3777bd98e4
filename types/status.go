package types

// StatusResponse is the JSON shape of GET /status.
type StatusResponse struct {
	Running     bool   `json:"running"`
	Version     string `json:"version"`
	StationName string `json:"stationName"`
	LoadState   string `json:"loadState"`
	LoadError   string `json:"loadError,omitempty"`
	Document    string `json:"document"`
	NotifyWS    bool   `json:"notifyWs"`
	WSClients   int    `json:"wsClients"`
}

// ReachabilityResult is one row of GET /diag.
type ReachabilityResult struct {
	Name      string  `json:"name"`
	Target    string  `json:"target"`
	Method    string  `json:"method"` // icmp | mqtt
	Reachable bool    `json:"reachable"`
	RttMillis float64 `json:"rttMs,omitempty"`
	Error     string  `json:"error,omitempty"`
}
