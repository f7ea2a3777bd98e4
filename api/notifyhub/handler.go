package notifyhub

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the config page is served from the station itself
	},
}

// HandleNotifyWS upgrades to a websocket, greets the page with the current state
// and keeps it registered until the browser goes away.
// GET /notify-ws
func HandleNotifyWS(hub *Hub, greeting func() *types.Notification) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[Notify] Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		if greeting != nil {
			if err := hub.Send(conn, greeting()); err != nil {
				return
			}
		}
		hub.Register(conn)
		defer hub.Unregister(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
