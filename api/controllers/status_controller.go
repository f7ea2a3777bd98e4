package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// HandleStatus reports where the active configuration came from, so operators can tell a
// first boot (defaults) from a corrupt document.
// GET /status
func HandleStatus(store *tool.ConfigStore, version string, wsClients func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := store.State()
		resp := types.StatusResponse{
			Running:     true,
			Version:     version,
			StationName: store.Snapshot().StationName,
			LoadState:   state.String(),
			Document:    store.DocumentName(),
			NotifyWS:    wsClients != nil,
		}
		if wsClients != nil {
			resp.WSClients = wsClients()
		}
		if err != nil {
			resp.LoadError = err.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}
