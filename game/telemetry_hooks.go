package game

// flushTelemetry closes the current window and hands it to the log, the
// stats callback and the CSV output.
func (g *Game) flushTelemetry() {
	stats := g.collector.Flush(g.tick, g.snapshots(), g.spans(), g.targets.Count())
	perf := g.perf.Stats()

	if g.logStats {
		stats.LogStats(g.logger)
		perf.LogStats(g.logger)
	}
	if g.onWindow != nil {
		g.onWindow(stats)
	}
	if err := g.output.WriteTelemetry(stats); err != nil {
		g.logger.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perf, g.tick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}
