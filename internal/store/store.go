// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/tuimeteor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for player records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under the HTTP server.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			best_score INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			wrong INTEGER NOT NULL,
			score INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			per_minute REAL NOT NULL,
			passed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_players_best ON players(best_score DESC, updated_at ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_player ON rounds(player_id, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPlayer creates a player with best score 0 or updates a non-empty name.
func (s *Store) UpsertPlayer(ctx context.Context, id, name string) (model.Player, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, best_score, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE players.name END,
			updated_at = CASE WHEN excluded.name <> '' AND excluded.name <> players.name THEN excluded.updated_at ELSE players.updated_at END`,
		id, name, now, now)
	if err != nil {
		return model.Player{}, err
	}
	return s.GetPlayer(ctx, id)
}

// RaiseBestScore sets best_score to max(best_score, score), creating the
// player if needed. updated_at only moves when the score actually rises.
func (s *Store) RaiseBestScore(ctx context.Context, id string, score int) (model.Player, bool, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Player{}, false, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO players (id, name, best_score, created_at, updated_at)
		 VALUES (?, '', 0, ?, ?)
		 ON CONFLICT(id) DO NOTHING`, id, now, now); err != nil {
		return model.Player{}, false, err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE players SET best_score = ?, updated_at = ? WHERE id = ? AND best_score < ?`,
		score, now, id, score)
	if err != nil {
		return model.Player{}, false, err
	}
	var changed int64
	changed, err = res.RowsAffected()
	if err != nil {
		return model.Player{}, false, err
	}
	var p model.Player
	p, err = scanPlayer(tx.QueryRowContext(ctx,
		`SELECT id, name, best_score, updated_at FROM players WHERE id = ?`, id))
	if err != nil {
		return model.Player{}, false, err
	}
	if err = tx.Commit(); err != nil {
		return model.Player{}, false, err
	}
	return p, changed > 0, nil
}

// GetPlayer returns a player; unknown ids yield a zero-score record.
func (s *Store) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT id, name, best_score, updated_at FROM players WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{ID: id}, nil
	}
	if err != nil {
		return model.Player{}, err
	}
	return p, nil
}

// Leaderboard returns players ordered by best score, oldest update first on
// ties. An empty prefix matches every player.
func (s *Store) Leaderboard(ctx context.Context, limit int, prefix string) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, best_score, updated_at FROM players
		 WHERE (? = '' OR substr(id, 1, length(?)) = ?)
		 ORDER BY best_score DESC, updated_at ASC, id ASC
		 LIMIT ?`, prefix, prefix, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var players []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

// Groups aggregates players by the first prefixLen id characters.
func (s *Store) Groups(ctx context.Context, prefixLen int) ([]model.GroupSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(id, 1, ?) AS grp, COUNT(*), MAX(best_score), AVG(best_score)
		 FROM players
		 GROUP BY grp
		 ORDER BY grp ASC`, prefixLen)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var groups []model.GroupSummary
	for rows.Next() {
		var g model.GroupSummary
		if err := rows.Scan(&g.Group, &g.MemberCount, &g.TopScore, &g.AverageScore); err != nil {
			return nil, err
		}
		g.AverageScore = math.Round(g.AverageScore*10) / 10
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// InsertRound stores a completed round.
func (s *Store) InsertRound(ctx context.Context, r model.RoundRecord) error {
	passed := 0
	if r.Passed {
		passed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, player_id, level, correct, wrong, score, accuracy, per_minute, passed, duration_ms, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.PlayerID,
		r.Level,
		r.Correct,
		r.Wrong,
		r.Score,
		r.Accuracy,
		r.PerMinute,
		passed,
		r.DurationMs,
		r.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListRounds returns a player's most recent rounds, newest first.
func (s *Store) ListRounds(ctx context.Context, playerID string, limit int) ([]model.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, level, correct, wrong, score, accuracy, per_minute, passed, duration_ms, ended_at
		 FROM rounds
		 WHERE player_id = ?
		 ORDER BY ended_at DESC
		 LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var rounds []model.RoundRecord
	for rows.Next() {
		var r model.RoundRecord
		var passed int
		var endedAt string
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.Level, &r.Correct, &r.Wrong, &r.Score,
			&r.Accuracy, &r.PerMinute, &passed, &r.DurationMs, &endedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		r.EndedAt = parsed
		r.Passed = passed != 0
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

// ClearPrefix resets or deletes every player whose id starts with prefix.
// An empty prefix matches every player. It returns the affected player count.
func (s *Store) ClearPrefix(ctx context.Context, prefix string, mode model.ClearMode) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	const match = `(? = '' OR substr(%s, 1, length(?)) = ?)`
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM rounds WHERE `+fmt.Sprintf(match, "player_id"), prefix, prefix, prefix); err != nil {
		return 0, err
	}
	var res sql.Result
	switch mode {
	case model.ClearDelete:
		res, err = tx.ExecContext(ctx,
			`DELETE FROM players WHERE `+fmt.Sprintf(match, "id"), prefix, prefix, prefix)
	default:
		res, err = tx.ExecContext(ctx,
			`UPDATE players SET best_score = 0, updated_at = ? WHERE `+fmt.Sprintf(match, "id"),
			s.now().UTC().Format(time.RFC3339Nano), prefix, prefix, prefix)
	}
	if err != nil {
		return 0, err
	}
	var affected int64
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (model.Player, error) {
	var p model.Player
	var updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.BestScore, &updatedAt); err != nil {
		return model.Player{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return model.Player{}, err
	}
	p.UpdatedAt = parsed
	return p, nil
}
