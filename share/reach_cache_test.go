package share

import (
	"testing"

	"github.com/moyoez/wx-station-go/types"
)

func TestReachCache(t *testing.T) {
	c := NewReachCache(0)
	if _, ok := c.Get("icmp", "euro.aprs2.net:14580"); ok {
		t.Fatal("empty cache returned a result")
	}
	c.Set(types.ReachabilityResult{Name: "aprs", Target: "euro.aprs2.net:14580", Method: "icmp", Reachable: true})

	res, ok := c.Get("icmp", "euro.aprs2.net:14580")
	if !ok || !res.Reachable || res.Name != "aprs" {
		t.Errorf("unexpected cached result %+v ok=%v", res, ok)
	}
	if _, ok := c.Get("mqtt", "euro.aprs2.net:14580"); ok {
		t.Errorf("method is part of the key")
	}
}
