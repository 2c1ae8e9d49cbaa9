package httpapi

const (
	RouteAPI = "/api"

	RouteFiles       = RouteAPI + "/files"
	RouteFile        = RouteFiles + "/:id"
	RouteFileContent = RouteFile + "/content"
	RouteFileShares  = RouteFile + "/shares"

	RouteShares        = RouteAPI + "/shares"
	RouteShare         = RouteShares + "/:id"
	RouteShareViewed   = RouteShare + "/viewed"
	RouteSharesInbound = RouteShares + "/received"
	RouteSharesSent    = RouteShares + "/sent"

	// ops
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
