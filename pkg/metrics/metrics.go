package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DeviceLogins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forgecred_device_logins_total",
		Help: "Total number of device-authorization sessions by terminal status",
	}, []string{"status"})
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forgecred_token_refreshes_total",
		Help: "Total number of refresh-token exchanges by outcome",
	}, []string{"outcome"})
	ResolverLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forgecred_resolver_lookups_total",
		Help: "Total number of credential resolutions by source",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(DeviceLogins)
	prometheus.MustRegister(TokenRefreshes)
	prometheus.MustRegister(ResolverLookups)
}
