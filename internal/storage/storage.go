package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type CompletedGame struct {
	ID        string
	Winner    string
	Status    string
	Columns   int
	Rows      int
	Moves     int
	StartedAt time.Time
	EndedAt   time.Time
}

// DecisionRecord is one column choice made by the engine.
type DecisionRecord struct {
	ID        string
	GameID    string
	Field     string
	Player    int
	Column    int
	Tier      string
	Primary   int
	Secondary int
	CreatedAt time.Time
}

type LeaderboardRow struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

type Store interface {
	SaveGame(ctx context.Context, game CompletedGame) error
	SaveDecision(ctx context.Context, d DecisionRecord) error
	GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) EnsureTables(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	winner TEXT,
	status TEXT,
	columns_count INT,
	rows_count INT,
	moves INT,
	started_at TIMESTAMP,
	ended_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	game_id TEXT,
	field TEXT NOT NULL,
	player INT NOT NULL,
	column_index INT NOT NULL,
	tier TEXT NOT NULL,
	primary_score INT,
	secondary_score INT,
	created_at TIMESTAMP NOT NULL
);
`)
	return err
}

func (p *PostgresStore) SaveGame(ctx context.Context, game CompletedGame) error {
	if p == nil || p.pool == nil {
		return nil
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO games (id, winner, status, columns_count, rows_count, moves, started_at, ended_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (id) DO NOTHING`,
		game.ID, game.Winner, game.Status, game.Columns, game.Rows, game.Moves, game.StartedAt, game.EndedAt)
	if err != nil {
		log.WithError(err).WithField("game_id", game.ID).Error("failed to save game")
	}
	return err
}

func (p *PostgresStore) SaveDecision(ctx context.Context, d DecisionRecord) error {
	if p == nil || p.pool == nil {
		return nil
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO decisions (id, game_id, field, player, column_index, tier, primary_score, secondary_score, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.GameID, d.Field, d.Player, d.Column, d.Tier, d.Primary, d.Secondary, d.CreatedAt)
	if err != nil {
		log.WithError(err).WithField("decision_id", d.ID).Error("failed to save decision")
	}
	return err
}

func (p *PostgresStore) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := p.pool.Query(ctx, `
SELECT winner, COUNT(*) as wins
FROM games
WHERE winner IS NOT NULL AND winner <> ''
GROUP BY winner
ORDER BY wins DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Wins); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
