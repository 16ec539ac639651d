package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Completed auto-dispatch batch runs.",
	})
	servicesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_services_scanned_total",
		Help: "Pending services examined by auto-dispatch.",
	})
	servicesAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_services_assigned_total",
		Help: "Services assigned a lead technician by auto-dispatch.",
	})
	servicesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_services_skipped_total",
		Help: "Services left pending for lack of a matching technician.",
	})
	servicesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_services_failed_total",
		Help: "Services whose assignment attempt errored during a run.",
	})
)
