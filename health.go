package cafematch

import "context"

// Health is an aggregated health report: "ok", "degraded" or "error".
type Health struct {
	Status string
	Checks map[string]string
}

// Health checks the catalog, the cache and the relevance service.
func (c *Client) Health(ctx context.Context) Health {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return Health{Status: string(report.Status), Checks: checks}
}
