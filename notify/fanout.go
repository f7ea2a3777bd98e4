package notify

import "github.com/moyoez/wx-station-go/types"

// Fanout delivers each notification to every non-nil hub in order.
type Fanout []types.NotifyHub

var _ types.NotifyHub = Fanout(nil)

func (f Fanout) Broadcast(notification *types.Notification) {
	for _, hub := range f {
		if hub != nil {
			hub.Broadcast(notification)
		}
	}
}
