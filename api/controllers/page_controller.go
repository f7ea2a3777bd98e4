package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/api/models"
	"github.com/moyoez/wx-station-go/tool"
)

type PageController struct {
	store   *tool.ConfigStore
	flashes *models.FlashStore
	version string
}

func NewPageController(store *tool.ConfigStore, flashes *models.FlashStore, version string) *PageController {
	return &PageController{
		store:   store,
		flashes: flashes,
		version: version,
	}
}

// HandleIndex renders the configuration form.
// GET /
func (ctrl *PageController) HandleIndex(c *gin.Context) {
	data := models.NewPageData(ctrl.store.Snapshot(), ctrl.version, ctrl.flashes.Pop(c))
	c.HTML(http.StatusOK, "index.html", data)
}
