package routing

import "context"

type contextKey struct{}

var routeDataKey contextKey

// NewContext returns a new context carrying the route data.
func NewContext(ctx context.Context, rd *RouteData) context.Context {
	return context.WithValue(ctx, routeDataKey, rd)
}

// FromContext returns the route data stored in ctx, or nil.
func FromContext(ctx context.Context) *RouteData {
	rd, _ := ctx.Value(routeDataKey).(*RouteData)
	return rd
}

// ValuesFromContext returns the route values of the matched route, or nil.
func ValuesFromContext(ctx context.Context) Values {
	if rd := FromContext(ctx); rd != nil {
		return rd.Values
	}

	return nil
}

type serveInfoKey struct{}

// ServeInfo receives the name of the route and the selected variant, when
// a Table serves a request with a context created by NewServeInfoContext.
// Used by the access log, wrapping the table.
type ServeInfo struct {
	RouteName string
	Variant   string
}

// NewServeInfoContext returns a context carrying an empty ServeInfo.
func NewServeInfoContext(ctx context.Context) (context.Context, *ServeInfo) {
	si := &ServeInfo{}
	return context.WithValue(ctx, serveInfoKey{}, si), si
}

func serveInfoFromContext(ctx context.Context) *ServeInfo {
	si, _ := ctx.Value(serveInfoKey{}).(*ServeInfo)
	return si
}
