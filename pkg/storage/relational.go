// Package storage implements the Relational and VectorStore outbound
// capabilities (spec.md §6): a Postgres-backed schedule/request store
// via sqlx, and a jsonb-backed vector store with an in-process cosine
// scan. Construction and pooling follow the teacher's DatabaseManager
// (pkg/database/manager.go): explicit defaulting, a ping-on-connect
// health check, and repository objects handed out by a single manager.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"log/slog"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// Config mirrors the teacher's DatabaseConfig shape, narrowed to this
// domain's connection needs and renamed off the OLLAMA_ env prefix.
type Config struct {
	Host     string `yaml:"host" env:"BURNWISE_DB_HOST"`
	Port     int    `yaml:"port" env:"BURNWISE_DB_PORT"`
	Name     string `yaml:"name" env:"BURNWISE_DB_NAME"`
	User     string `yaml:"user" env:"BURNWISE_DB_USER"`
	Password string `yaml:"password" env:"BURNWISE_DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"BURNWISE_DB_SSL_MODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"BURNWISE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"BURNWISE_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"BURNWISE_DB_CONN_MAX_LIFETIME"`

	RedisHost     string `yaml:"redis_host" env:"BURNWISE_REDIS_HOST"`
	RedisPort     int    `yaml:"redis_port" env:"BURNWISE_REDIS_PORT"`
	RedisPassword string `yaml:"redis_password" env:"BURNWISE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"BURNWISE_REDIS_DB"`
}

// applyDefaults fills unset pool/timeout fields, matching the
// teacher's NewDatabaseManager defaulting block.
func (c *Config) applyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 30 // spec.md §5's "shared DB connection pool, max e.g. 30"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}
}

// Manager owns the Postgres and Redis connections and hands out the
// Relational and VectorStore adapters built on top of them.
type Manager struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	config *Config
	logger *slog.Logger

	Relational Relational
	Vectors    VectorStore
}

// NewManager connects to Postgres and Redis, pings both, and wires up
// the repository adapters. Mirrors the teacher's two-phase
// initializePostgreSQL/initializeRedis construction.
func NewManager(config *Config, logger *slog.Logger) (*Manager, error) {
	config.applyDefaults()

	m := &Manager{config: config, logger: logger}

	if err := m.connectPostgres(); err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := m.connectRedis(); err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	m.Relational = &sqlRelational{db: m.DB, logger: logger}
	m.Vectors = &jsonbVectorStore{db: m.DB, logger: logger}

	logger.Info("storage manager initialized",
		"postgres_host", config.Host, "postgres_db", config.Name,
		"redis_host", config.RedisHost)

	return m, nil
}

func (m *Manager) connectPostgres() error {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		m.config.Host, m.config.Port, m.config.User, m.config.Password, m.config.Name, m.config.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(m.config.MaxOpenConns)
	db.SetMaxIdleConns(m.config.MaxIdleConns)
	db.SetConnMaxLifetime(m.config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	m.DB = db
	return nil
}

func (m *Manager) connectRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", m.config.RedisHost, m.config.RedisPort),
		Password: m.config.RedisPassword,
		DB:       m.config.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	m.Redis = rdb
	return nil
}

// Health reports connectivity for both backing stores, in the shape
// the teacher's DatabaseManager.Health returns.
type Health struct {
	PostgresOK    bool
	PostgresError string
	RedisOK       bool
	RedisError    string
}

// Health pings both connections, mirroring DatabaseManager.Health.
func (m *Manager) Health(ctx context.Context) Health {
	h := Health{PostgresOK: true, RedisOK: true}
	if err := m.DB.PingContext(ctx); err != nil {
		h.PostgresOK = false
		h.PostgresError = err.Error()
	}
	if err := m.Redis.Ping(ctx).Err(); err != nil {
		h.RedisOK = false
		h.RedisError = err.Error()
	}
	return h
}

// Relational is the outbound capability spec.md §6 names: typed
// query/insert used to persist schedules and read historical
// features.
type Relational interface {
	InsertBurnRequest(ctx context.Context, req types.BurnRequest) error
	SaveSchedule(ctx context.Context, scheduleID string, date string, schedule types.Schedule) error
	HistoricalFeatures(ctx context.Context, farmID int64) (*types.HistoricalFeatures, bool, error)
	RecordOutcome(ctx context.Context, farmID int64, success bool, durationHours float64, hadConflict bool, onTime bool) error
}

// sqlRelational is the sqlx/lib-pq-backed Relational adapter, adapted
// from the teacher's per-entity repository pattern
// (pkg/database/repositories.go) collapsed into one struct since this
// domain has far fewer entities than the teacher's model/node/user
// split.
type sqlRelational struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func (r *sqlRelational) InsertBurnRequest(ctx context.Context, req types.BurnRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO burn_requests (id, farm_id, acres, crop_type, burn_date, window_start, window_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		req.ID, req.FarmID, req.Acres, string(req.CropType), req.BurnDate,
		int64(req.TimeWindow.Start), int64(req.TimeWindow.End),
	)
	return err
}

func (r *sqlRelational) SaveSchedule(ctx context.Context, scheduleID string, date string, schedule types.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for requestID, assignment := range schedule.Assignments {
		startHHMM := slotToHHMM(assignment.StartSlot)
		endHHMM := slotToHHMM(assignment.EndSlot)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_assignments (schedule_id, date, burn_request_id, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (schedule_id, burn_request_id) DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time`,
			scheduleID, date, requestID, startHHMM, endHHMM,
		); err != nil {
			return fmt.Errorf("insert assignment for request %d: %w", requestID, err)
		}
	}
	for requestID, reason := range schedule.Unscheduled {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_unscheduled (schedule_id, date, burn_request_id, reason)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (schedule_id, burn_request_id) DO UPDATE SET reason = EXCLUDED.reason`,
			scheduleID, date, requestID, reason,
		); err != nil {
			return fmt.Errorf("insert unscheduled for request %d: %w", requestID, err)
		}
	}
	return tx.Commit()
}

// slotToHHMM renders a slot index as "HH:MM" local time of the
// scheduling date, per spec.md §6's persisted-shape requirement.
// Slot 0 is 06:00.
func slotToHHMM(slot int) string {
	totalMinutes := 6*60 + slot*types.SlotMinutes
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}

func (r *sqlRelational) HistoricalFeatures(ctx context.Context, farmID int64) (*types.HistoricalFeatures, bool, error) {
	var hist types.HistoricalFeatures
	err := r.db.GetContext(ctx, &hist, `
		SELECT success_rate, avg_duration_hours, conflict_rate, good_weather_rate,
		       on_time_rate, experience_score, no_violation_rate, recent_success_score, seasonal_success
		FROM farm_burn_history WHERE farm_id = $1`, farmID)
	if err != nil {
		return nil, false, nil // no history row is not an error; caller treats as nil
	}
	return &hist, true, nil
}

func (r *sqlRelational) RecordOutcome(ctx context.Context, farmID int64, success bool, durationHours float64, hadConflict bool, onTime bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO farm_burn_outcomes (farm_id, success, duration_hours, had_conflict, on_time, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		farmID, success, durationHours, hadConflict, onTime, time.Now(),
	)
	return err
}
