package db

import (
	"bytes"
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/db/models"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	client := Wrap(conn)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAutoMigrateBuildsAnalyticsSchema(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	order := models.Order{
		OrderNumber:  "GEM-0001",
		CustomerName: "Ana",
		TotalAmount:  decimal.RequireFromString("129.90"),
		Status:       enums.OrderStatusDelivered,
	}
	require.NoError(t, client.DB().WithContext(ctx).Create(&order).Error)
	assert.NotEqual(t, "", order.ID.String())

	expense := models.Expense{Amount: decimal.NewFromInt(30), ExpenseDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, client.DB().WithContext(ctx).Create(&expense).Error)

	var loaded models.Order
	require.NoError(t, client.DB().First(&loaded, "id = ?", order.ID).Error)
	assert.True(t, loaded.TotalAmount.Equal(decimal.RequireFromString("129.90")))
	assert.Equal(t, enums.OrderStatusDelivered, loaded.Status)
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewOpensSQLite(t *testing.T) {
	cfg := config.DBConfig{Driver: config.DBDriverSQLite, DSN: "file:new_opens?mode=memory&cache=shared"}
	client, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()))
}

func TestQueryLoggerReportsFailuresAndSlowQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: logger.FormatJSON, Output: buf})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	query := func() (string, int64) { return "SELECT * FROM analytics_snapshots", 3 }

	ql.Trace(ctx, time.Now(), query, nil)
	assert.Empty(t, buf.String(), "fast successful queries stay quiet at warn level")

	ql.Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	assert.Contains(t, buf.String(), `"db.slow_query"`)
	assert.Contains(t, buf.String(), `"rows":3`)

	buf.Reset()
	ql.Trace(ctx, time.Now(), query, stdErrors.New("relation does not exist"))
	assert.Contains(t, buf.String(), `"db.query_failed"`)

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), query, stdErrors.New("x"))
	assert.Empty(t, buf.String())

	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)
}
