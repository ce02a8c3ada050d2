package console

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/adminclient"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// Client-side freshness windows per cached response.
const (
	AnalyticsTTL = 10 * time.Minute
	StatusTTL    = 30 * time.Second
	WidgetsTTL   = 5 * time.Minute
)

// ErrUnknownCommand is returned for an unrecognised subcommand.
var ErrUnknownCommand = errors.New("unknown command")

// API is the slice of the admin API the console talks to.
type API interface {
	PeriodAnalytics(ctx context.Context, period analytics.Period) (*analytics.PeriodReport, error)
	CachedAnalytics(ctx context.Context) (map[enums.MetricType]json.RawMessage, error)
	LiveMetrics(ctx context.Context) (*analytics.LiveMetrics, error)
	Status(ctx context.Context) (*analytics.StatusReport, error)
	Runs(ctx context.Context, limit int) ([]analytics.RefreshRun, error)
	Refresh(ctx context.Context, metricType enums.MetricType) (*adminclient.RefreshResponse, error)
	Widgets(ctx context.Context) (*dashboard.Widgets, error)
	RefreshWidgets(ctx context.Context) (*dashboard.Widgets, error)
}

type Params struct {
	API    API
	Cache  *cache.Cache
	Out    io.Writer
	Logger *logger.Logger
	Clock  clockwork.Clock
	// JWT is only needed by the token command.
	JWT config.JWTConfig
}

// Console runs admin commands through a read-through client cache.
type Console struct {
	api   API
	cache *cache.Cache
	out   io.Writer
	logg  *logger.Logger
	clock clockwork.Clock
	jwt   config.JWTConfig
}

func New(params Params) (*Console, error) {
	if params.API == nil {
		return nil, fmt.Errorf("admin api required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if params.Out == nil {
		return nil, fmt.Errorf("output writer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Console{
		api:   params.API,
		cache: params.Cache,
		out:   params.Out,
		logg:  params.Logger,
		clock: clock,
		jwt:   params.JWT,
	}, nil
}

// Start applies the load kind to the persistent mirror before any command runs.
func (c *Console) Start(ctx context.Context, kind cache.LoadKind) {
	c.cache.ClearOnHardReload(ctx, kind)
}

type command struct {
	summary string
	run     func(c *Console, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"analytics":    {"stored analytics snapshots (cached 10m)", (*Console).runAnalytics},
	"report":       {"ad hoc period report (-period)", (*Console).runReport},
	"live":         {"live entity counts", (*Console).runLive},
	"status":       {"refresh status and cooldowns (cached 30s)", (*Console).runStatus},
	"runs":         {"recent refresh runs (-limit)", (*Console).runRuns},
	"refresh":      {"refresh all analytics or one (-metric)", (*Console).runRefresh},
	"widgets":      {"dashboard widgets (cached 5m, -refresh to rebuild)", (*Console).runWidgets},
	"invalidate":   {"drop cache entries derived from a data change (-change)", (*Console).runInvalidate},
	"cache-status": {"inspect one cache entry (-key)", (*Console).runCacheStatus},
	"clear":        {"clear the whole cache or one entry (-key)", (*Console).runClear},
	"token":        {"mint an admin access token", (*Console).runToken},
}

// Run dispatches args[0] to its command.
func (c *Console) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	ctx = c.logg.WithField(ctx, "command", args[0])
	return cmd.run(c, ctx, args[1:])
}

func (c *Console) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "commands:")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-13s %s\n", name, commands[name].summary)
	}
}

func (c *Console) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

// readThrough serves key from the cache, falling back to fetch and storing the result.
func readThrough[T any](ctx context.Context, c *Console, key cache.Key, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	if c.cache.Get(ctx, key, &out) {
		c.logg.Debug(c.logg.WithField(ctx, "cache_key", string(key)), "console.cache.hit")
		return out, nil
	}
	out, err := fetch(ctx)
	if err != nil {
		return out, err
	}
	c.cache.Set(ctx, key, out, ttl, true)
	return out, nil
}

func (c *Console) print(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(raw))
	return err
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func parseMetric(value string) (enums.MetricType, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || value == "all" {
		return "", nil
	}
	return enums.ParseMetricType(value)
}
