package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/steamstats/internal/model"
)

// PostgresPlayerRepo はPostgreSQLを使用したプロフィールキャッシュリポジトリ。
type PostgresPlayerRepo struct {
	db *sql.DB
}

// NewPostgresPlayerRepo はPostgresPlayerRepoを生成する。
func NewPostgresPlayerRepo(db *sql.DB) *PostgresPlayerRepo {
	return &PostgresPlayerRepo{db: db}
}

// FindBySteamID は指定SteamIDのプロフィールレコードを取得する。
// 未キャッシュの場合はnilを返す。
func (r *PostgresPlayerRepo) FindBySteamID(ctx context.Context, steamID string) (*model.Player, error) {
	player := &model.Player{}
	var timeCreated sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT steam_id, persona_name, avatar_hash, time_created, cached_at
		 FROM players WHERE steam_id = $1`,
		steamID,
	).Scan(&player.SteamID, &player.PersonaName, &player.AvatarHash, &timeCreated, &player.CachedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}

	if timeCreated.Valid {
		t := timeCreated.Time
		player.TimeCreated = &t
	}

	return player, nil
}

// Upsert はプロフィールレコードを丸ごと上書き保存する。
func (r *PostgresPlayerRepo) Upsert(ctx context.Context, player *model.Player) error {
	var timeCreated sql.NullTime
	if player.TimeCreated != nil {
		timeCreated = sql.NullTime{Time: *player.TimeCreated, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (steam_id, persona_name, avatar_hash, time_created, cached_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (steam_id) DO UPDATE SET
		   persona_name = EXCLUDED.persona_name,
		   avatar_hash = EXCLUDED.avatar_hash,
		   time_created = EXCLUDED.time_created,
		   cached_at = EXCLUDED.cached_at`,
		player.SteamID, player.PersonaName, player.AvatarHash, timeCreated, player.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// DeleteBySteamID は指定SteamIDのプロフィールレコードを削除する。
func (r *PostgresPlayerRepo) DeleteBySteamID(ctx context.Context, steamID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM players WHERE steam_id = $1`,
		steamID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PlayerRepository = (*PostgresPlayerRepo)(nil)
