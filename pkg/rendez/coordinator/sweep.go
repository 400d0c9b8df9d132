package coordinator

import (
	"net/netip"
	"time"

	"github.com/yago-123/punch-relay/pkg/metrics"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/rendez/store"
	"github.com/yago-123/punch-relay/pkg/util"
)

// Sweep evicts every registration older than its policy TTL and returns the
// number of entries removed. It runs on the loop goroutine after the tick's
// events have been handled.
func (c *Coordinator) Sweep(now time.Time) int {
	evictedServers := c.servers.Sweep(now, c.cfg.serverTTL)
	for _, ip := range evictedServers {
		c.logger.Info("Evicted stale server", "server", util.RedactIP(ip))
	}

	evictedWaiting := c.waiting.Sweep(now, c.cfg.waitingTTL)
	for _, token := range evictedWaiting {
		c.logger.V(1).Info("Evicted waiting peer", "token", token)
	}

	c.metrics.Evicted(metrics.RegistryServers, len(evictedServers))
	c.metrics.Evicted(metrics.RegistryWaiting, len(evictedWaiting))
	if len(evictedServers) > 0 {
		c.metrics.SetEntries(metrics.RegistryServers, c.servers.Len())
	}
	if len(evictedWaiting) > 0 {
		c.metrics.SetEntries(metrics.RegistryWaiting, c.waiting.Len())
	}

	return len(evictedServers) + len(evictedWaiting)
}

// LookupServer returns the live registration for ip.
func (c *Coordinator) LookupServer(ip netip.Addr) (store.Record[peer.Server], bool) {
	return c.servers.Get(ip.Unmap())
}

// RangeServers iterates the server registry.
func (c *Coordinator) RangeServers(fn func(ip netip.Addr, rec store.Record[peer.Server]) bool) {
	c.servers.Range(fn)
}

// RangeWaiting iterates the waiting list.
func (c *Coordinator) RangeWaiting(fn func(token string, rec store.Record[peer.Pair]) bool) {
	c.waiting.Range(fn)
}

// Counts returns the number of live server registrations and waiting peers.
func (c *Coordinator) Counts() (int, int) {
	return c.servers.Len(), c.waiting.Len()
}

// TTLs returns the configured server and waiting TTLs.
func (c *Coordinator) TTLs() (time.Duration, time.Duration) {
	return c.cfg.serverTTL, c.cfg.waitingTTL
}
