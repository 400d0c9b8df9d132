package types

// StatsResponse summarizes the registries.
type StatsResponse struct {
	Policy       string `json:"policy" example:"asymmetric"`
	Servers      int    `json:"servers" example:"3"`
	Waiting      int    `json:"waiting" example:"1"`
	ServerTTLMS  int64  `json:"server_ttl_ms" example:"10000"`
	WaitingTTLMS int64  `json:"waiting_ttl_ms" example:"6000"`
}

// ServerResponse is a redacted server registration. Tokens are never exposed.
type ServerResponse struct {
	IP       string `json:"ip" example:"203.0.x.x"`
	Internal string `json:"internal" example:"10.0.x.x:4230"`
	External string `json:"external" example:"203.0.x.x:4240"`
	LastSeen string `json:"last_seen" example:"2024-01-01T00:00:00Z"`
	AgeMS    int64  `json:"age_ms" example:"1500"`
}

// WaitingResponse is a redacted peer waiting for its counterpart.
type WaitingResponse struct {
	Internal string `json:"internal" example:"10.0.x.x:4230"`
	External string `json:"external" example:"203.0.x.x:4240"`
	LastSeen string `json:"last_seen" example:"2024-01-01T00:00:00Z"`
	AgeMS    int64  `json:"age_ms" example:"1500"`
}

// ErrorResponse carries a human readable failure.
type ErrorResponse struct {
	Error string `json:"error" example:"server not found"`
}
