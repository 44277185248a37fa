package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dbMeterForTest returns a meter backed by a manual reader so tests can
// pull recorded data on demand.
func dbMeterForTest(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("db.client.test"), reader
}

func collectDBMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findDBMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumByAttr totals int64 sum datapoints matching the given attribute.
func sumByAttr(m metricdata.Metrics, kv attribute.KeyValue) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(kv.Key); ok && v == kv.Value {
			total += dp.Value
		}
	}
	return total
}

func gormWithSQLMock(t *testing.T) *gorm.DB {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	meter, _ := dbMeterForTest(t)

	t.Run("creates all instruments", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		assert.NotNil(t, m.queryTotal)
		assert.NotNil(t, m.queryDuration)
		assert.NotNil(t, m.slowQueryTotal)
		assert.NotNil(t, m.poolConnections)
		assert.NotNil(t, m.poolMax)
	})

	t.Run("fills in zero config values", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DBMetricsConfig{Enabled: true}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	})

	t.Run("tolerates nil logger", func(t *testing.T) {
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, m.logger)
	})
}

func TestDBMetricsRecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("counts queries by operation and status", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "products", 5*time.Millisecond, nil)
		m.RecordQuery(ctx, "SELECT", "products", 8*time.Millisecond, nil)
		m.RecordQuery(ctx, "INSERT", "orders", 3*time.Millisecond, errors.New("duplicate key"))

		rm := collectDBMetrics(t, reader)
		total, ok := findDBMetric(rm, "db_query_total")
		require.True(t, ok)

		assert.Equal(t, int64(2), sumByAttr(total, AttrDBOperation.String("SELECT")))
		assert.Equal(t, int64(1), sumByAttr(total, AttrDBOperation.String("INSERT")))
		assert.Equal(t, int64(2), sumByAttr(total, AttrDBStatus.String("ok")))
		assert.Equal(t, int64(1), sumByAttr(total, AttrDBStatus.String("error")))

		_, ok = findDBMetric(rm, "db_query_duration_seconds")
		assert.True(t, ok, "duration histogram should be populated")
	})

	t.Run("counts slow queries against their table", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)
		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		m.RecordQuery(ctx, "SELECT", "ledger_entries", 250*time.Millisecond, nil)
		m.RecordQuery(ctx, "SELECT", "ledger_entries", 20*time.Millisecond, nil)

		rm := collectDBMetrics(t, reader)
		slow, ok := findDBMetric(rm, "db_slow_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(1), sumByAttr(slow, AttrDBTable.String("ledger_entries")))
	})

	t.Run("normalizes operation case and fills blanks", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)
		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 10 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		m.RecordQuery(ctx, "select", "payments", time.Millisecond, nil)
		m.RecordQuery(ctx, "Select", "payments", time.Millisecond, nil)
		m.RecordQuery(ctx, "", "", 50*time.Millisecond, nil)

		rm := collectDBMetrics(t, reader)
		total, ok := findDBMetric(rm, "db_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(2), sumByAttr(total, AttrDBOperation.String("SELECT")))
		assert.Equal(t, int64(1), sumByAttr(total, AttrDBOperation.String("UNKNOWN")))

		slow, ok := findDBMetric(rm, "db_slow_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(1), sumByAttr(slow, AttrDBTable.String("unknown")))
	})
}

func TestDBMetricsPoolStats(t *testing.T) {
	t.Run("samples pool gauges on the interval", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 20 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		m.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.StartPoolStatsCollection(ctx)
		time.Sleep(60 * time.Millisecond)
		m.Stop()

		rm := collectDBMetrics(t, reader)
		_, ok := findDBMetric(rm, "db_pool_connections_max")
		assert.True(t, ok, "pool max gauge should be sampled")

		pool, ok := findDBMetric(rm, "db_pool_connections")
		require.True(t, ok, "pool state gauge should be sampled")
		gauge, ok := pool.Data.(metricdata.Gauge[int64])
		require.True(t, ok)

		states := make(map[string]bool)
		for _, dp := range gauge.DataPoints {
			if v, ok := dp.Attributes.Value(AttrDBState); ok {
				states[v.AsString()] = true
			}
		}
		assert.True(t, states["idle"])
		assert.True(t, states["in_use"])
		assert.True(t, states["open"])
	})

	t.Run("refuses to start without a sql.DB", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)
		m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		m.StartPoolStatsCollection(context.Background())
		m.Stop()

		rm := collectDBMetrics(t, reader)
		_, ok := findDBMetric(rm, "db_pool_connections")
		assert.False(t, ok, "nothing should be sampled")
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		meter, _ := dbMeterForTest(t)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: time.Second,
		}, zap.NewNop())
		require.NoError(t, err)
		m.SetSQLDB(mockDB)

		ctx, cancel := context.WithCancel(context.Background())
		m.StartPoolStatsCollection(ctx)
		cancel()
		m.Stop()
	})

	t.Run("stop does not block and is idempotent", func(t *testing.T) {
		meter, _ := dbMeterForTest(t)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m, err := NewDBMetrics(meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		m.SetSQLDB(mockDB)
		m.StartPoolStatsCollection(context.Background())

		done := make(chan struct{})
		go func() {
			m.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop blocked")
		}

		assert.NotPanics(t, func() { m.Stop() })
	})
}

func TestDBMetricsPlugin(t *testing.T) {
	meter, _ := dbMeterForTest(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	plugin := NewDBMetricsPlugin(m, zap.NewNop())

	t.Run("plugin name", func(t *testing.T) {
		assert.Equal(t, "db_metrics", plugin.Name())
	})

	t.Run("registers callbacks on a gorm connection", func(t *testing.T) {
		gormDB := gormWithSQLMock(t)
		require.NoError(t, plugin.Initialize(gormDB))
	})
}

func TestSQLOperation(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM products WHERE merchant_id = $1", "SELECT"},
		{"select id from orders", "SELECT"},
		{"  SELECT sku FROM products", "SELECT"},
		{"INSERT INTO ledger_entries (id) VALUES ($1)", "INSERT"},
		{"UPDATE inventory_items SET reserved = reserved + 1", "UPDATE"},
		{"DELETE FROM stock_reservations WHERE expires_at < now()", "DELETE"},
		{"TRUNCATE TABLE webhook_events", "OTHER"},
		{"LOCK TABLE payouts", "OTHER"},
		{"", "OTHER"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sqlOperation(tc.sql), tc.sql)
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("returns nil when disabled", func(t *testing.T) {
		meter, _ := dbMeterForTest(t)
		gormDB := gormWithSQLMock(t)

		m, err := RegisterDBMetrics(ctx, gormDB, meter, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("registers plugin and starts pool sampling", func(t *testing.T) {
		meter, reader := dbMeterForTest(t)
		gormDB := gormWithSQLMock(t)

		m, err := RegisterDBMetrics(ctx, gormDB, meter, DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 20 * time.Millisecond,
		}, logger)
		require.NoError(t, err)
		require.NotNil(t, m)
		defer m.Stop()

		time.Sleep(40 * time.Millisecond)
		rm := collectDBMetrics(t, reader)
		_, ok := findDBMetric(rm, "db_pool_connections")
		assert.True(t, ok, "pool sampling should start automatically")
	})
}

func TestDBMetricsConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	meter, reader := dbMeterForTest(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"products", "orders", "payments", "inventory_items"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	rm := collectDBMetrics(t, reader)
	total, ok := findDBMetric(rm, "db_query_total")
	require.True(t, ok)
	assert.Equal(t, int64(100), sumByAttr(total, AttrDBStatus.String("ok")))
}
