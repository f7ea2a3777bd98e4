package share

import (
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

const (
	DefaultReachTTL = 30 * time.Second
)

// ReachCache remembers recent reachability results keyed by method and address.
type ReachCache struct {
	cache *ttlworker.Cache[string, types.ReachabilityResult]
}

func NewReachCache(ttl time.Duration) *ReachCache {
	if ttl <= 0 {
		ttl = DefaultReachTTL
	}
	return &ReachCache{cache: ttlworker.NewCache[string, types.ReachabilityResult](ttl)}
}

func reachKey(method, target string) string {
	return method + "://" + target
}

func (r *ReachCache) Get(method, target string) (types.ReachabilityResult, bool) {
	res := r.cache.Get(reachKey(method, target))
	if res.Method == "" {
		return res, false
	}
	return res, true
}

func (r *ReachCache) Set(res types.ReachabilityResult) {
	r.cache.Set(reachKey(res.Method, res.Target), res)
	tool.DefaultLogger.Debugf("[Diag] Cached %s %s reachable=%v", res.Method, res.Target, res.Reachable)
}
