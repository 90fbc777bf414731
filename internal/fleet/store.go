// Package fleet is the aggregator that collects vitals reports from every
// vehicle, keeping the latest snapshot and the history per plate.
package fleet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/timeutil"
)

// TimestampLayout is the history timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Defaults for a plate seen for the first time.
const (
	DefaultModel   = "Unknown"
	DefaultCVLabel = "No detection"
	DefaultVDLabel = "normal"
)

// ErrNoPlate is returned by Apply when the update carries no plate.
var ErrNoPlate = errors.New("fleet: no plate provided")

// DefaultBio is the bio block of a newly registered plate.
func DefaultBio() json.RawMessage {
	b, _ := json.Marshal(report.Bio{})
	return b
}

// Update is a partial /trigger submission. Nil fields leave the stored
// value untouched.
type Update struct {
	Plate    string          `json:"plate"`
	Model    *string         `json:"model,omitempty"`
	CVLabel  *string         `json:"cv_label,omitempty"`
	CVImage  *string         `json:"cv_image,omitempty"`
	VDLabel  *string         `json:"vd_label,omitempty"`
	Bio      json.RawMessage `json:"bio,omitempty"`
	ReportID string          `json:"report_id,omitempty"`
	Source   string          `json:"source,omitempty"`
}

// Snapshot is the latest state of a plate.
type Snapshot struct {
	CVLabel string          `json:"cv_label"`
	CVImage string          `json:"cv_image"`
	VDLabel string          `json:"vd_label"`
	Bio     json.RawMessage `json:"bio"`
}

// HistoryEntry is a snapshot as it was after one submission.
type HistoryEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Snapshot
	ReportID string `json:"report_id,omitempty"`
	Source   string `json:"source,omitempty"`

	recordedAt time.Time
}

// RecordedAt is the submission time of e.
func (e HistoryEntry) RecordedAt() time.Time { return e.recordedAt }

// Store persists the fleet state in sqlite.
type Store struct {
	*sql.DB
	Clock timeutil.Clock
}

// Open opens (or creates) the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{DB: db, Clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Apply registers u.Plate if it is new, overwrites the fields u carries and
// appends a history entry with the resulting snapshot.
func (s *Store) Apply(ctx context.Context, u Update) (HistoryEntry, error) {
	if u.Plate == "" {
		return HistoryEntry{}, ErrNoPlate
	}
	if u.Bio != nil && !json.Valid(u.Bio) {
		return HistoryEntry{}, fmt.Errorf("invalid bio JSON")
	}
	now := s.now()

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return HistoryEntry{}, err
	}
	defer tx.Rollback()

	model := DefaultModel
	if u.Model != nil {
		model = *u.Model
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vehicles (plate, model, cv_label, cv_image, vd_label, bio, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(plate) DO NOTHING`,
		u.Plate, model, DefaultCVLabel, "", DefaultVDLabel, string(DefaultBio()), now.Unix(),
	); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to register plate: %w", err)
	}

	var snap Snapshot
	var bio string
	if err := tx.QueryRowContext(ctx,
		`SELECT cv_label, cv_image, vd_label, bio FROM vehicles WHERE plate = ?`, u.Plate,
	).Scan(&snap.CVLabel, &snap.CVImage, &snap.VDLabel, &bio); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to load plate: %w", err)
	}
	snap.Bio = json.RawMessage(bio)

	if u.CVLabel != nil {
		snap.CVLabel = *u.CVLabel
	}
	if u.CVImage != nil {
		snap.CVImage = *u.CVImage
	}
	if u.VDLabel != nil {
		snap.VDLabel = *u.VDLabel
	}
	if u.Bio != nil {
		snap.Bio = u.Bio
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET cv_label = ?, cv_image = ?, vd_label = ?, bio = ?, updated_at = ? WHERE plate = ?`,
		snap.CVLabel, snap.CVImage, snap.VDLabel, string(snap.Bio), now.Unix(), u.Plate,
	); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to update plate: %w", err)
	}

	entry := HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  now.Format(TimestampLayout),
		Snapshot:   snap,
		ReportID:   u.ReportID,
		Source:     u.Source,
		recordedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (history_id, plate, recorded_at, cv_label, cv_image, vd_label, bio, report_id, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, u.Plate, now.Unix(), snap.CVLabel, snap.CVImage, snap.VDLabel, string(snap.Bio),
		nullString(u.ReportID), nullString(u.Source),
	); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return HistoryEntry{}, err
	}
	return entry, nil
}

// Latest returns the current snapshot of plate. ok is false for an unknown
// plate.
func (s *Store) Latest(ctx context.Context, plate string) (snap Snapshot, ok bool, err error) {
	var bio string
	err = s.QueryRowContext(ctx,
		`SELECT cv_label, cv_image, vd_label, bio FROM vehicles WHERE plate = ?`, plate,
	).Scan(&snap.CVLabel, &snap.CVImage, &snap.VDLabel, &bio)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	snap.Bio = json.RawMessage(bio)
	return snap, true, nil
}

// History returns every entry of plate, oldest first. ok is false for an
// unknown plate.
func (s *Store) History(ctx context.Context, plate string) (entries []HistoryEntry, ok bool, err error) {
	var known int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE plate = ?`, plate).Scan(&known); err != nil {
		return nil, false, err
	}
	if known == 0 {
		return nil, false, nil
	}

	rows, err := s.QueryContext(ctx,
		`SELECT history_id, recorded_at, cv_label, cv_image, vd_label, bio, report_id, source
		 FROM history WHERE plate = ? ORDER BY recorded_at, rowid`, plate)
	if err != nil {
		return nil, true, err
	}
	defer rows.Close()

	entries = []HistoryEntry{}
	for rows.Next() {
		var (
			e        HistoryEntry
			unix     int64
			bio      string
			reportID sql.NullString
			source   sql.NullString
		)
		if err := rows.Scan(&e.ID, &unix, &e.CVLabel, &e.CVImage, &e.VDLabel, &bio, &reportID, &source); err != nil {
			return nil, true, err
		}
		e.recordedAt = time.Unix(unix, 0)
		e.Timestamp = e.recordedAt.Format(TimestampLayout)
		e.Bio = json.RawMessage(bio)
		e.ReportID = reportID.String
		e.Source = source.String
		entries = append(entries, e)
	}
	return entries, true, rows.Err()
}

// Plates lists every registered plate.
func (s *Store) Plates(ctx context.Context) ([]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT plate FROM vehicles ORDER BY plate`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plates []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		plates = append(plates, p)
	}
	return plates, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
