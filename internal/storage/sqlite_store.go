package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS destinations (
  id TEXT PRIMARY KEY,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  budget_level TEXT NOT NULL,
  primary_styles_json TEXT NOT NULL DEFAULT '[]',
  climate_type TEXT NOT NULL,
  popular_activities_json TEXT NOT NULL DEFAULT '[]',
  best_months_json TEXT NOT NULL DEFAULT '[]',
  image_url TEXT NOT NULL DEFAULT '',
  average_cost_per_day REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_destinations_position ON destinations(position);

CREATE TABLE IF NOT EXISTS preferences (
  user_id TEXT PRIMARY KEY,
  profile_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_recommendations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  destination_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL DEFAULT 0,
  reasoning TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_user ON saved_recommendations(user_id, created_at);

CREATE TABLE IF NOT EXISTS interactions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  destination_id TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id, id);
`

func (s *SQLiteStore) EnsureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ---- destinations ----

const destinationColumns = `id, name, country, description, budget_level, primary_styles_json, climate_type,
popular_activities_json, best_months_json, image_url, average_cost_per_day`

func (s *SQLiteStore) CountDestinations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM destinations`).Scan(&n)
	return n, err
}

// UpsertDestinations inserts new destinations at the end of the catalog and
// updates existing ones in place, keeping their position.
func (s *SQLiteStore) UpsertDestinations(ctx context.Context, items []domain.Destination) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO destinations
(`+destinationColumns+`, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM destinations))
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  country = excluded.country,
  description = excluded.description,
  budget_level = excluded.budget_level,
  primary_styles_json = excluded.primary_styles_json,
  climate_type = excluded.climate_type,
  popular_activities_json = excluded.popular_activities_json,
  best_months_json = excluded.best_months_json,
  image_url = excluded.image_url,
  average_cost_per_day = excluded.average_cost_per_day
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range items {
		styles, _ := json.Marshal(nonNil(d.PrimaryStyles))
		acts, _ := json.Marshal(nonNil(d.PopularActivities))
		months, _ := json.Marshal(nonNil(d.BestMonths))

		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Name, d.Country, d.Description, string(d.BudgetLevel), string(styles),
			string(d.ClimateType), string(acts), string(months), d.ImageURL, d.AverageCostPerDay,
		); err != nil {
			return fmt.Errorf("upsert destination %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// SeedDestinations loads items only when the catalog is empty.
func (s *SQLiteStore) SeedDestinations(ctx context.Context, items []domain.Destination) (bool, error) {
	n, err := s.CountDestinations(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, s.UpsertDestinations(ctx, items)
}

func (s *SQLiteStore) GetDestination(ctx context.Context, id string) (domain.Destination, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE id = ?`, id)
	d, err := scanDestination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Destination{}, false, nil
	}
	if err != nil {
		return domain.Destination{}, false, err
	}
	return d, true, nil
}

func (s *SQLiteStore) DeleteDestination(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM destinations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

// Destinations returns the whole catalog in insertion order.
func (s *SQLiteStore) Destinations(ctx context.Context) ([]domain.Destination, error) {
	items, _, err := s.ListDestinations(ctx, DestinationFilter{})
	return items, err
}

// DestinationFilter narrows ListDestinations. Zero values mean no filter;
// Limit <= 0 returns every row.
type DestinationFilter struct {
	Style   string
	Climate string
	Budget  string
	Limit   int
	Offset  int
}

func (f DestinationFilter) matches(d domain.Destination) bool {
	if f.Style != "" && !d.HasStyle(domain.TravelStyle(f.Style)) {
		return false
	}
	if f.Climate != "" && string(d.ClimateType) != f.Climate {
		return false
	}
	if f.Budget != "" && string(d.BudgetLevel) != f.Budget {
		return false
	}
	return true
}

func (s *SQLiteStore) ListDestinations(ctx context.Context, f DestinationFilter) ([]domain.Destination, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if f.Style != "" {
		// exact, case-sensitive element match, same as DestinationFilter.matches
		where = append(where, "EXISTS (SELECT 1 FROM json_each(primary_styles_json) WHERE value = ?)")
		args = append(args, f.Style)
	}
	if f.Climate != "" {
		where = append(where, "climate_type = ?")
		args = append(args, f.Climate)
	}
	if f.Budget != "" {
		where = append(where, "budget_level = ?")
		args = append(args, f.Budget)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM destinations "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(f.Offset, 0)

	rowsSQL := "SELECT " + destinationColumns + " FROM destinations " + whereSQL +
		"\nORDER BY position, id\nLIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, rowsSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Destination, 0)
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDestination(sc scanner) (domain.Destination, error) {
	var d domain.Destination
	var budget, climate, stylesJSON, actsJSON, monthsJSON string
	if err := sc.Scan(
		&d.ID, &d.Name, &d.Country, &d.Description, &budget, &stylesJSON, &climate,
		&actsJSON, &monthsJSON, &d.ImageURL, &d.AverageCostPerDay,
	); err != nil {
		return domain.Destination{}, err
	}
	d.BudgetLevel = domain.BudgetRange(budget)
	d.ClimateType = domain.Climate(climate)
	if err := json.Unmarshal([]byte(stylesJSON), &d.PrimaryStyles); err != nil {
		return domain.Destination{}, fmt.Errorf("destination %s styles: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(actsJSON), &d.PopularActivities); err != nil {
		return domain.Destination{}, fmt.Errorf("destination %s activities: %w", d.ID, err)
	}
	_ = json.Unmarshal([]byte(monthsJSON), &d.BestMonths)
	return d, nil
}

// ---- preferences ----

func (s *SQLiteStore) SavePreferences(ctx context.Context, userID string, p domain.PreferenceProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO preferences (user_id, profile_json, updated_at) VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at
`, userID, string(b), time.Now().Unix())
	return err
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (domain.PreferenceProfile, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile_json FROM preferences WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PreferenceProfile{}, false, nil
	}
	if err != nil {
		return domain.PreferenceProfile{}, false, err
	}
	var p domain.PreferenceProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.PreferenceProfile{}, false, fmt.Errorf("unmarshal preferences: %w", err)
	}
	return p, true, nil
}

// ---- saved recommendations ----

func (s *SQLiteStore) SaveRecommendation(ctx context.Context, rec domain.SavedRecommendation) (domain.SavedRecommendation, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO saved_recommendations (id, user_id, destination_id, name, country, score, reasoning, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.UserID, rec.DestinationID, rec.Name, rec.Country, rec.Score, rec.Reasoning, rec.CreatedAt)
	return rec, err
}

func (s *SQLiteStore) ListSavedRecommendations(ctx context.Context, userID string) ([]domain.SavedRecommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, destination_id, name, country, score, reasoning, created_at
FROM saved_recommendations WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SavedRecommendation, 0)
	for rows.Next() {
		var r domain.SavedRecommendation
		if err := rows.Scan(&r.ID, &r.UserID, &r.DestinationID, &r.Name, &r.Country, &r.Score, &r.Reasoning, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSavedRecommendation(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_recommendations WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

// ---- interactions ----

// AppendInteraction records an engagement event and trims the session to
// its most recent window events. It returns the resulting log.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, sessionID, destinationID string, window int) (matching.InteractionLog, error) {
	if window <= 0 {
		window = matching.DefaultInteractionWindow
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (session_id, destination_id, created_at) VALUES (?, ?, ?)`,
		sessionID, destinationID, time.Now().Unix(),
	); err != nil {
		return nil, fmt.Errorf("insert interaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM interactions
WHERE session_id = ? AND id NOT IN (
  SELECT id FROM interactions WHERE session_id = ? ORDER BY id DESC LIMIT ?
)`, sessionID, sessionID, window); err != nil {
		return nil, fmt.Errorf("trim interactions: %w", err)
	}

	log, err := queryInteractions(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	return log, tx.Commit()
}

func (s *SQLiteStore) GetInteractions(ctx context.Context, sessionID string) (matching.InteractionLog, error) {
	return queryInteractions(ctx, s.db, sessionID)
}

func (s *SQLiteStore) ClearInteractions(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM interactions WHERE session_id = ?`, sessionID)
	return err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryInteractions(ctx context.Context, q queryer, sessionID string) (matching.InteractionLog, error) {
	rows, err := q.QueryContext(ctx, `SELECT destination_id FROM interactions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	log := make(matching.InteractionLog, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		log = append(log, id)
	}
	return log, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
