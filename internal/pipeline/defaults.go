package pipeline

import "strings"

// Platform routes the dispatcher understands. Anything else a classifier
// emits is routed to GENERIC and reported as UNKNOWN.
const (
	RouteMeta    = "META"
	RouteGoogle  = "GOOGLE"
	RouteShopee  = "SHOPEE"
	RouteLazada  = "LAZADA"
	RouteTikTok  = "TIKTOK"
	RouteSPX     = "SPX"
	RouteThaiTax = "THAI_TAX"
	RouteGeneric = "GENERIC"

	PlatformUnknown = "UNKNOWN"
)

// PlatformGroups maps a platform label to its default expense group.
var PlatformGroups = map[string]string{
	RouteMeta:       "Advertising Expense",
	RouteGoogle:     "Advertising Expense",
	RouteShopee:     "Marketplace Expense",
	RouteLazada:     "Marketplace Expense",
	RouteTikTok:     "Marketplace Expense",
	RouteSPX:        "Marketplace Expense",
	RouteThaiTax:    "General Expense",
	PlatformUnknown: "Other Expense",
	RouteGeneric:    "Other Expense",
}

// PlatformDescriptions maps a platform label to its default line
// description. Unknown documents get none.
var PlatformDescriptions = map[string]string{
	RouteMeta:    "Meta Ads",
	RouteGoogle:  "Google Ads",
	RouteShopee:  "Shopee Marketplace Fee",
	RouteLazada:  "Lazada Marketplace Fee",
	RouteTikTok:  "TikTok Shop Fee",
	RouteSPX:     "Shopee Express",
	RouteThaiTax: "Tax Invoice",
}

// NormalizeRoute maps a raw classifier label to a dispatch route.
func NormalizeRoute(raw string) string {
	p := strings.ToUpper(strings.TrimSpace(raw))
	switch p {
	case RouteMeta, RouteGoogle, RouteShopee, RouteLazada, RouteTikTok, RouteSPX, RouteThaiTax:
		return p
	}
	return RouteGeneric
}

// OutputPlatform is the label recorded on the result: the route itself,
// except GENERIC which is reported as UNKNOWN.
func OutputPlatform(route string) string {
	if route == RouteGeneric {
		return PlatformUnknown
	}
	return route
}

// glBucket groups platforms for per-company account-code configuration.
func glBucket(platform string) string {
	switch strings.ToUpper(strings.TrimSpace(platform)) {
	case RouteMeta, RouteGoogle:
		return "ADS"
	case RouteShopee, RouteLazada, RouteTikTok, RouteSPX:
		return "MARKETPLACE"
	}
	return "DEFAULT"
}

func lower(s string) string { return strings.ToLower(s) }
