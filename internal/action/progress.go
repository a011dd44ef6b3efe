package action

// Progress bounds. Reports outside the range are clamped.
const (
	MinProgress = 0.0
	MaxProgress = 100.0
)

// Reporter carries scalar progress from a running action back to its
// controller. It is bound to one run: once that run is superseded or reset,
// every call is silently dropped. Safe to call from any goroutine.
type Reporter func(value float64)

// clampProgress limits v to [MinProgress, MaxProgress].
// NaN is treated as no progress.
func clampProgress(v float64) float64 {
	if v != v {
		return MinProgress
	}
	return min(max(v, MinProgress), MaxProgress)
}

// reporter returns the Reporter handed to the run identified by token.
func (c *Controller[In, Out]) reporter(token uint64) Reporter {
	return func(value float64) {
		c.report(token, value)
	}
}

func (c *Controller[In, Out]) report(token uint64, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token || c.phase != PhaseRunning {
		c.logger.Debug("dropping stale progress report",
			"action", c.name,
			"token", token,
			"current_token", c.token,
			"value", value)
		return
	}

	c.progress = clampProgress(value)
	c.emitProgressLocked()
}
