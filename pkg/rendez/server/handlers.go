package server

import (
	"net/http"
	"net/netip"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/rendez/coordinator"
	"github.com/yago-123/punch-relay/pkg/rendez/store"
	"github.com/yago-123/punch-relay/pkg/rendez/types"
	"github.com/yago-123/punch-relay/pkg/util"
)

// Registry is the read-only view of the relay state served by the admin API.
type Registry interface {
	Policy() coordinator.Policy
	Counts() (int, int)
	TTLs() (time.Duration, time.Duration)
	LookupServer(ip netip.Addr) (store.Record[peer.Server], bool)
	RangeServers(fn func(ip netip.Addr, rec store.Record[peer.Server]) bool)
	RangeWaiting(fn func(token string, rec store.Record[peer.Pair]) bool)
}

type Handler struct {
	registry Registry
	clock    clock.Clock
}

func NewHandler(r Registry, clk clock.Clock) *Handler {
	return &Handler{registry: r, clock: clk}
}

// HealthHandler godoc
// @Summary      Liveness probe
// @Tags         admin
// @Produce      plain
// @Success      200  {string}  string "ok"
// @Router       /healthz [get]
func (h *Handler) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// StatsHandler godoc
// @Summary      Registry summary
// @Tags         admin
// @Produce      json
// @Success      200  {object}  types.StatsResponse
// @Router       /v1/stats [get]
func (h *Handler) StatsHandler(c *gin.Context) {
	servers, waiting := h.registry.Counts()
	serverTTL, waitingTTL := h.registry.TTLs()

	c.JSON(http.StatusOK, types.StatsResponse{
		Policy:       h.registry.Policy().String(),
		Servers:      servers,
		Waiting:      waiting,
		ServerTTLMS:  serverTTL.Milliseconds(),
		WaitingTTLMS: waitingTTL.Milliseconds(),
	})
}

// ServersHandler godoc
// @Summary      List registered servers
// @Description  Addresses are redacted and tokens are never returned
// @Tags         admin
// @Produce      json
// @Success      200  {array}  types.ServerResponse
// @Router       /v1/servers [get]
func (h *Handler) ServersHandler(c *gin.Context) {
	type entry struct {
		ip  netip.Addr
		rec store.Record[peer.Server]
	}

	var entries []entry
	h.registry.RangeServers(func(ip netip.Addr, rec store.Record[peer.Server]) bool {
		entries = append(entries, entry{ip: ip, rec: rec})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ip.Less(entries[j].ip)
	})

	now := h.clock.Now()
	resp := make([]types.ServerResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toServerResponse(e.ip, e.rec, now))
	}

	c.JSON(http.StatusOK, resp)
}

// ServerHandler godoc
// @Summary      Look up a server by public IP
// @Tags         admin
// @Produce      json
// @Param        ip   path      string  true  "Server public IP"
// @Success      200  {object}  types.ServerResponse
// @Failure      400  {object}  types.ErrorResponse "invalid ip"
// @Failure      404  {object}  types.ErrorResponse "server not found"
// @Router       /v1/servers/{ip} [get]
func (h *Handler) ServerHandler(c *gin.Context) {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid ip"})
		return
	}
	ip = ip.Unmap()

	rec, ok := h.registry.LookupServer(ip)
	if !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "server not found"})
		return
	}

	c.JSON(http.StatusOK, toServerResponse(ip, rec, h.clock.Now()))
}

// WaitingHandler godoc
// @Summary      List peers waiting for a counterpart
// @Description  Addresses are redacted and tokens are never returned
// @Tags         admin
// @Produce      json
// @Success      200  {array}  types.WaitingResponse
// @Router       /v1/waiting [get]
func (h *Handler) WaitingHandler(c *gin.Context) {
	var recs []store.Record[peer.Pair]
	h.registry.RangeWaiting(func(_ string, rec store.Record[peer.Pair]) bool {
		recs = append(recs, rec)
		return true
	})
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastSeen.Before(recs[j].LastSeen)
	})

	now := h.clock.Now()
	resp := make([]types.WaitingResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, types.WaitingResponse{
			Internal: util.RedactAddr(rec.Value.Internal),
			External: util.RedactAddr(rec.Value.External),
			LastSeen: rec.LastSeen.UTC().Format(time.RFC3339),
			AgeMS:    now.Sub(rec.LastSeen).Milliseconds(),
		})
	}

	c.JSON(http.StatusOK, resp)
}

func toServerResponse(ip netip.Addr, rec store.Record[peer.Server], now time.Time) types.ServerResponse {
	return types.ServerResponse{
		IP:       util.RedactIP(ip),
		Internal: util.RedactAddr(rec.Value.Internal),
		External: util.RedactAddr(rec.Value.External),
		LastSeen: rec.LastSeen.UTC().Format(time.RFC3339),
		AgeMS:    now.Sub(rec.LastSeen).Milliseconds(),
	}
}
