package models

import (
	"net/http"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

const (
	FlashCookieName = "wx_flash"
	DefaultFlashTTL = 60 * time.Second
)

// FlashStore keeps one-shot messages between a POST/redirect and the next page render.
type FlashStore struct {
	cache *ttlworker.Cache[string, *types.FlashMessage]
}

func NewFlashStore(ttl time.Duration) *FlashStore {
	if ttl <= 0 {
		ttl = DefaultFlashTTL
	}
	return &FlashStore{cache: ttlworker.NewCache[string, *types.FlashMessage](ttl)}
}

// Push stores msg and hands the browser a cookie pointing at it.
func (f *FlashStore) Push(c *gin.Context, level types.FlashLevel, msg string) {
	id := tool.GenerateRandomUUID()
	f.cache.Set(id, &types.FlashMessage{Level: level, Message: msg})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookieName, id, int(DefaultFlashTTL/time.Second), "/", "", false, true)
}

// Pop returns and forgets the message referenced by the request cookie, or nil.
func (f *FlashStore) Pop(c *gin.Context) *types.FlashMessage {
	id, err := c.Cookie(FlashCookieName)
	if err != nil || id == "" {
		return nil
	}
	msg := f.cache.Get(id)
	f.cache.Delete(id)
	c.SetCookie(FlashCookieName, "", -1, "/", "", false, true)
	return msg
}
