package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// DefaultHandOffDelay lets the response reach the browser before the host takes over.
const DefaultHandOffDelay = 500 * time.Millisecond

type DeviceController struct {
	host  types.Host
	hub   types.NotifyHub
	delay time.Duration
	// after schedules fn; tests replace it to run synchronously.
	after func(d time.Duration, fn func())
}

func NewDeviceController(host types.Host, hub types.NotifyHub) *DeviceController {
	return &DeviceController{
		host:  host,
		hub:   hub,
		delay: DefaultHandOffDelay,
		after: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// SetScheduler replaces how hand-off actions are deferred.
func (ctrl *DeviceController) SetScheduler(after func(d time.Duration, fn func())) {
	ctrl.after = after
}

func (ctrl *DeviceController) notify(kind, title string) {
	if ctrl.hub != nil {
		ctrl.hub.Broadcast(&types.Notification{Type: kind, Title: title})
	}
}

// HandleReboot answers, then restarts the station.
// GET /reboot
func (ctrl *DeviceController) HandleReboot(c *gin.Context) {
	c.String(http.StatusOK, "Rebooting...")
	ctrl.notify(types.NotifyTypeRebooting, "Station is restarting")
	ctrl.after(ctrl.delay, func() {
		if err := ctrl.host.Reboot(); err != nil {
			tool.DefaultLogger.Errorf("[Device] Reboot failed: %v", err)
		}
	})
}

// HandleSetup redirects, then hands control to the host setup (pairing) routine.
// GET /wifi
func (ctrl *DeviceController) HandleSetup(c *gin.Context) {
	redirectHome(c)
	ctrl.notify(types.NotifyTypeSetupMode, "Setup mode started")
	ctrl.after(ctrl.delay, func() {
		if err := ctrl.host.StartSetupMode(); err != nil {
			tool.DefaultLogger.Errorf("[Device] Setup mode failed: %v", err)
		}
	})
}
