package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/diag"
	"github.com/moyoez/wx-station-go/share"
	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// Checker tests endpoint reachability.
type Checker func(ctx context.Context, targets []diag.Target) []types.ReachabilityResult

type DiagController struct {
	store   *tool.ConfigStore
	check   Checker
	cache   *share.ReachCache
	timeout time.Duration
}

func NewDiagController(store *tool.ConfigStore, check Checker, cache *share.ReachCache) *DiagController {
	if check == nil {
		check = diag.Check
	}
	if cache == nil {
		cache = share.NewReachCache(share.DefaultReachTTL)
	}
	return &DiagController{store: store, check: check, cache: cache, timeout: 10 * time.Second}
}

// HandleDiag checks the enabled APRS, MQTT, syslog and server endpoints.
// Recent results are reused unless ?fresh=1.
// GET /diag
func (ctrl *DiagController) HandleDiag(c *gin.Context) {
	targets := diag.Targets(ctrl.store.Snapshot())
	fresh := c.Query("fresh") == "1"

	results := make([]types.ReachabilityResult, len(targets))
	var pending []diag.Target
	var slots []int
	for i, t := range targets {
		if !fresh {
			if res, ok := ctrl.cache.Get(t.Method, t.Address()); ok {
				res.Name = t.Name
				results[i] = res
				continue
			}
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}

	if len(pending) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
		defer cancel()
		checked := ctrl.check(ctx, pending)
		for j := range min(len(checked), len(slots)) {
			ctrl.cache.Set(checked[j])
			results[slots[j]] = checked[j]
		}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(results))
}
