package countdown

// Percentage reports how much of the window has elapsed at now, in [0,100].
// Progress is undefined without a start, so such windows are a ConfigError.
func Percentage(window SaleWindow, now Instant) (float64, error) {
	if !window.HasStart {
		return 0, newConfigError("window.startTime", "required for progress")
	}
	if err := window.Validate(); err != nil {
		return 0, err
	}
	if now <= window.Start {
		return 0, nil
	}
	if now >= window.End {
		return 100, nil
	}
	elapsed := float64(now - window.Start)
	total := float64(window.End - window.Start)
	pct := elapsed * 100 / total
	if pct > 100 {
		return 100, nil
	}
	return pct, nil
}
