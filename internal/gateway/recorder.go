package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/lacrosse-mqtt-gateway/internal/lacrosse"
)

// Sighting is what the radio has heard from one device id.
type Sighting struct {
	DeviceID       int       `json:"device_id"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	FrameCount     int64     `json:"frame_count"`
	Registered     bool      `json:"registered"`
	NewBatterySeen bool      `json:"new_battery_seen"`
}

// SightingRecorder passively records every device id heard on the radio.
//
// LaCrosse sensors pick a new random id after a battery change, so the
// sighting list is how an operator finds the id to put in the config:
// look for an unregistered id with new_battery_seen set.
//
// The database must have the sensor_sightings table (see migrations).
//
// Thread Safety: All methods are safe for concurrent use.
type SightingRecorder struct {
	db     *sql.DB
	logger Logger

	upsertStmt *sql.Stmt
	stmtMu     sync.Mutex
}

// NewSightingRecorder creates a recorder over an open database.
func NewSightingRecorder(db *sql.DB) *SightingRecorder {
	return &SightingRecorder{db: db}
}

// SetLogger sets the logger for the recorder.
func (r *SightingRecorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start prepares the upsert statement. Calling it twice is harmless.
func (r *SightingRecorder) Start() error {
	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.upsertStmt != nil {
		return nil
	}

	stmt, err := r.db.Prepare(`
		INSERT INTO sensor_sightings (device_id, first_seen, last_seen, frame_count, registered, new_battery_seen)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			frame_count = frame_count + 1,
			registered = excluded.registered,
			new_battery_seen = MAX(new_battery_seen, excluded.new_battery_seen)
	`)
	if err != nil {
		return fmt.Errorf("preparing sighting upsert: %w", err)
	}
	r.upsertStmt = stmt
	return nil
}

// Stop releases the prepared statement. Later RecordFrame calls are ignored.
func (r *SightingRecorder) Stop() {
	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.upsertStmt != nil {
		r.upsertStmt.Close()
		r.upsertStmt = nil
	}
}

// RecordFrame upserts the sighting for the frame's device id.
// Failures are logged, never returned: recording must not hold up
// publishing.
func (r *SightingRecorder) RecordFrame(f lacrosse.Frame, registered bool) {
	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.upsertStmt == nil {
		return
	}

	seen := f.ReceivedAt
	if seen.IsZero() {
		seen = time.Now()
	}
	if _, err := r.upsertStmt.Exec(f.DeviceID, seen.Unix(), seen.Unix(), boolInt(registered), boolInt(f.NewBattery)); err != nil {
		r.logError("recording sighting", err)
	}
}

// Sightings lists recorded device ids, most recently heard first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - unregisteredOnly: skip ids that belong to a configured sensor
func (r *SightingRecorder) Sightings(ctx context.Context, unregisteredOnly bool) ([]Sighting, error) {
	query := `
		SELECT device_id, first_seen, last_seen, frame_count, registered, new_battery_seen
		FROM sensor_sightings`
	if unregisteredOnly {
		query += ` WHERE registered = 0`
	}
	query += ` ORDER BY last_seen DESC, device_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	sightings := []Sighting{}
	for rows.Next() {
		var s Sighting
		var first, last int64
		var registered, newBattery int
		if err := rows.Scan(&s.DeviceID, &first, &last, &s.FrameCount, &registered, &newBattery); err != nil {
			return nil, fmt.Errorf("scanning sighting: %w", err)
		}
		s.FirstSeen = time.Unix(first, 0).UTC()
		s.LastSeen = time.Unix(last, 0).UTC()
		s.Registered = registered != 0
		s.NewBatterySeen = newBattery != 0
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}

// Count returns the number of distinct device ids heard.
func (r *SightingRecorder) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_sightings`).Scan(&n)
	return n, err
}

func (r *SightingRecorder) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
