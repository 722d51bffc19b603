package metrics

import (
	"slices"

	metrics "github.com/rcrowley/go-metrics"
)

const unknownMethod = "_unknownmethod_"

var measuredMethods = []string{
	"OPTIONS", "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "TRACE", "CONNECT",
}

// timerFactory creates the timers of the CodaHale registry, sampling with
// an exponentially decaying or a uniform reservoir.
func timerFactory(expDecay bool) func() metrics.Timer {
	return func() metrics.Timer {
		var s metrics.Sample
		if expDecay {
			s = metrics.NewExpDecaySample(defaultExpDecayReservoirSize, defaultExpDecayAlpha)
		} else {
			s = metrics.NewUniformSample(defaultUniformReservoirSize)
		}

		return metrics.NewCustomTimer(metrics.NewHistogram(s), metrics.NewMeter())
	}
}

// limits the cardinality of the method label
func measuredMethod(m string) string {
	if slices.Contains(measuredMethods, m) {
		return m
	}

	return unknownMethod
}

// serve route and variant metrics are on unless the compatibility
// defaults are disabled
func applyCompatibilityDefaults(o Options) Options {
	if !o.DisableCompatibilityDefaults {
		o.EnableServeRouteMetrics = true
		o.EnableVariantMetrics = true
	}

	return o
}
