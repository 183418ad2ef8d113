package server

const (
	RouteIndex    = "/"
	RouteLogin    = "/auth/login"
	RouteCallback = "/auth/callback"
	RouteLogout   = "/auth/logout"

	// RouteAPIPrefix fronts the protected REST API; requests under it are
	// proxied outbound with the session's bearer token attached.
	RouteAPIPrefix = "/api/"
)
