package db

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"medadherence/internal/adherence"
)

// ErrNoSnapshot is returned when no report snapshot exists yet.
var ErrNoSnapshot = errors.New("no report snapshot")

// Store reads and writes dose logs and report snapshots.
type Store struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

// NewStore wraps db. Logs inserted through the store expire retentionDays after
// insertion; zero or less keeps them forever.
func NewStore(db *gorm.DB, retentionDays int) *Store {
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Store{db: db, retention: retention, now: time.Now}
}

// Filter narrows ListDoses. Zero values are unbounded. Limit keeps only the most
// recently scheduled logs.
type Filter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}

// InsertDose stores one dose event with optional client attributes.
func (s *Store) InsertDose(ctx context.Context, ev adherence.DoseEvent, attrs map[string]any) (*DoseLog, error) {
	row := newDoseLog(ev, attrs, s.now(), s.retention)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListDoses returns stored events in scheduled order. From and To are inclusive.
func (s *Store) ListDoses(ctx context.Context, f Filter) ([]adherence.DoseEvent, error) {
	q := s.db.WithContext(ctx).Model(&DoseLog{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.From.IsZero() {
		q = q.Where("scheduled_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("scheduled_time <= ?", f.To)
	}

	var rows []DoseLog
	if f.Limit > 0 {
		if err := q.Order("scheduled_time DESC, id DESC").Limit(f.Limit).Find(&rows).Error; err != nil {
			return nil, err
		}
		slices.Reverse(rows)
	} else if err := q.Order("scheduled_time ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]adherence.DoseEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].Event())
	}
	return events, nil
}

// SaveSnapshot stores r as the newest snapshot for userID ("" for all users).
func (s *Store) SaveSnapshot(ctx context.Context, userID string, r *adherence.Report) (*ReportSnapshot, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	row := &ReportSnapshot{
		UserID:      userID,
		EventCount:  int64(r.OverallAdherence.TotalDoses),
		OverallRate: r.OverallAdherence.AdherenceRate,
		Payload:     datatypes.JSON(payload),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// LatestSnapshot returns the newest snapshot for userID, or ErrNoSnapshot.
func (s *Store) LatestSnapshot(ctx context.Context, userID string) (*ReportSnapshot, error) {
	var row ReportSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, ErrNoSnapshot
	}
	return &row, nil
}

func newDoseLog(ev adherence.DoseEvent, attrs map[string]any, now time.Time, retention time.Duration) *DoseLog {
	row := &DoseLog{
		UserID:        ev.UserID,
		MedicationID:  ev.MedicationID,
		ScheduledTime: ev.ScheduledTime.UTC(),
		TakenTime:     ev.TakenTime,
		Status:        string(ev.Status),
		HourOfDay:     ev.Hour,
		DayOfWeek:     ev.Day,
	}
	if len(attrs) > 0 {
		row.Attributes = datatypes.JSONMap(attrs)
	}
	if retention > 0 {
		exp := now.Add(retention)
		row.ExpiresAt = &exp
	}
	return row
}

// Event converts a stored row back into a dose event.
func (l *DoseLog) Event() adherence.DoseEvent {
	return adherence.DoseEvent{
		UserID:        l.UserID,
		MedicationID:  l.MedicationID,
		ScheduledTime: l.ScheduledTime,
		TakenTime:     l.TakenTime,
		Status:        adherence.Status(l.Status),
		Hour:          l.HourOfDay,
		Day:           l.DayOfWeek,
	}
}
