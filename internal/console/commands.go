package console

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/adminclient"
	"github.com/angelmondragon/gemline-backend/pkg/auth"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

func (c *Console) runAnalytics(ctx context.Context, args []string) error {
	if err := c.flags("analytics").Parse(args); err != nil {
		return err
	}
	data, err := readThrough(ctx, c, cache.KeyAnalyticsData, AnalyticsTTL, c.api.CachedAnalytics)
	if err != nil {
		return err
	}
	return c.print(data)
}

func (c *Console) runReport(ctx context.Context, args []string) error {
	fs := c.flags("report")
	period := fs.String("period", string(analytics.DefaultPeriod), `"This Week", "This Month", "Last 3 Months" or "This Year"`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	parsed, err := analytics.ParsePeriod(*period)
	if err != nil {
		return err
	}
	report, err := c.api.PeriodAnalytics(ctx, parsed)
	if err != nil {
		return err
	}
	return c.print(report)
}

func (c *Console) runLive(ctx context.Context, args []string) error {
	if err := c.flags("live").Parse(args); err != nil {
		return err
	}
	live, err := c.api.LiveMetrics(ctx)
	if err != nil {
		return err
	}
	return c.print(live)
}

func (c *Console) runStatus(ctx context.Context, args []string) error {
	if err := c.flags("status").Parse(args); err != nil {
		return err
	}
	status, err := readThrough(ctx, c, cache.KeyAnalyticsStatus, StatusTTL, c.api.Status)
	if err != nil {
		return err
	}
	return c.print(status)
}

func (c *Console) runRuns(ctx context.Context, args []string) error {
	fs := c.flags("runs")
	limit := fs.Int("limit", 20, "number of runs (1-100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	runs, err := c.api.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	return c.print(runs)
}

// runRefresh asks the server to recompute. A cooldown rejection is reported,
// not returned, and leaves the cache untouched.
func (c *Console) runRefresh(ctx context.Context, args []string) error {
	fs := c.flags("refresh")
	metric := fs.String("metric", "", "metric to refresh (net_revenue, monthly_trends, expense_breakdown, top_products); empty for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	metricType, err := parseMetric(*metric)
	if err != nil {
		return err
	}

	res, err := c.api.Refresh(ctx, metricType)
	if cooldown, ok := adminclient.IsCooldown(err); ok {
		seconds := int64((cooldown.Remaining + time.Second - 1) / time.Second)
		c.printf("cooldown active: %s (retry in %ds)", cooldown.Message, seconds)
		return nil
	}
	if err != nil {
		return err
	}

	cleared := c.cache.InvalidateOnDataChange(ctx, cache.ChangeAnalytics)
	c.cache.Clear(ctx, cache.KeyDashboardWidgets)
	// A full refresh returns every metric, which is exactly the ANALYTICS_DATA payload.
	if metricType == "" && res.Result.Success && len(res.Result.Data) > 0 {
		c.cache.Set(ctx, cache.KeyAnalyticsData, res.Result.Data, AnalyticsTTL, true)
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{"metric_type": string(metricType), "cleared": cleared}), "console.refresh.completed")

	if res.Message != "" {
		c.printf("%s", res.Message)
	}
	return c.print(res)
}

func (c *Console) runWidgets(ctx context.Context, args []string) error {
	fs := c.flags("widgets")
	refresh := fs.Bool("refresh", false, "rebuild the bundle on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		widgets, err := c.api.RefreshWidgets(ctx)
		if err != nil {
			return err
		}
		c.cache.Set(ctx, cache.KeyDashboardWidgets, widgets, WidgetsTTL, true)
		return c.print(widgets)
	}
	widgets, err := readThrough(ctx, c, cache.KeyDashboardWidgets, WidgetsTTL, c.api.Widgets)
	if err != nil {
		return err
	}
	return c.print(widgets)
}

func (c *Console) runInvalidate(ctx context.Context, args []string) error {
	fs := c.flags("invalidate")
	change := fs.String("change", "", "product, order, expense or analytics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	changeType, err := cache.ParseChangeType(*change)
	if err != nil {
		return err
	}
	keys := c.cache.InvalidateOnDataChange(ctx, changeType)
	return c.print(map[string]any{"change": changeType, "cleared": keys})
}

func (c *Console) runCacheStatus(ctx context.Context, args []string) error {
	fs := c.flags("cache-status")
	key := fs.String("key", "", "cache key, e.g. ANALYTICS_DATA")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		out := make(map[cache.Key]cache.Status)
		for _, k := range cache.PersistableKeys() {
			out[k] = c.cache.Status(ctx, k)
		}
		return c.print(out)
	}
	parsed, err := cache.ParseKey(*key)
	if err != nil {
		return err
	}
	return c.print(c.cache.Status(ctx, parsed))
}

func (c *Console) runClear(ctx context.Context, args []string) error {
	fs := c.flags("clear")
	key := fs.String("key", "", "single cache key; empty clears everything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		c.cache.ClearAll(ctx)
		c.printf("cache cleared")
		return nil
	}
	parsed, err := cache.ParseKey(*key)
	if err != nil {
		return err
	}
	c.cache.Clear(ctx, parsed)
	c.printf("%s cleared", parsed)
	return nil
}

func (c *Console) runToken(ctx context.Context, args []string) error {
	fs := c.flags("token")
	email := fs.String("email", "", "admin email recorded as the actor")
	role := fs.String("role", string(enums.AdminRoleAdmin), "admin or staff")
	ttl := fs.Duration("ttl", 0, "token lifetime (default: configured expiration)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.jwt.Secret == "" {
		return fmt.Errorf("token signing secret not configured")
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}
	parsedRole, err := enums.ParseAdminRole(*role)
	if err != nil {
		return err
	}
	token, err := auth.MintAccessToken(c.jwt, c.clock.Now(), auth.AccessTokenPayload{
		Subject: uuid.NewString(),
		Email:   *email,
		Role:    parsedRole,
		TTL:     *ttl,
	})
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	c.printf("%s", token)
	return nil
}
