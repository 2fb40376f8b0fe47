// Package promcollector exports index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := promcollector.New(reg, "clmediakit")
//	idx, _ := clmediakit.Open("phash.clhx", clmediakit.WithMetricsCollector(mc))
//	mc.WatchIndex(idx)
package promcollector
