package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
)

// PostgresGameRepo はPostgreSQLを使用したゲームライブラリキャッシュリポジトリ。
type PostgresGameRepo struct {
	db *sql.DB
}

// NewPostgresGameRepo はPostgresGameRepoを生成する。
func NewPostgresGameRepo(db *sql.DB) *PostgresGameRepo {
	return &PostgresGameRepo{db: db}
}

// FindLibraryBySteamID は指定SteamIDのライブラリレコードを取得する。
// 未キャッシュ（スナップショットなし）の場合はnilを返す。
// ゲーム0件でもスナップショットがあれば空ライブラリとして返す。
func (r *PostgresGameRepo) FindLibraryBySteamID(ctx context.Context, steamID string) (*LibraryRecord, error) {
	record := &LibraryRecord{}

	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM library_snapshots WHERE steam_id = $1`,
		steamID,
	).Scan(&record.FetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find library snapshot: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT g.app_id, g.name, ug.playtime_forever, ug.playtime_2weeks, ug.cached_at
		 FROM user_games ug
		 INNER JOIN games g ON g.app_id = ug.app_id
		 WHERE ug.steam_id = $1
		 ORDER BY g.app_id`,
		steamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var game model.Game
		var recent sql.NullInt64

		if err := rows.Scan(&game.AppID, &game.Name, &game.PlaytimeForever, &recent, &game.CachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user game: %w", err)
		}
		if recent.Valid {
			minutes := int(recent.Int64)
			game.Playtime2Weeks = &minutes
		}
		record.Games = append(record.Games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user games: %w", err)
	}

	return record, nil
}

// ReplaceLibrary はライブラリレコードを同一トランザクションで丸ごと入れ替える。
// gamesカタログはUPSERT、user_gamesは全削除のうえ再挿入、
// スナップショットのfetched_atを更新する。
func (r *PostgresGameRepo) ReplaceLibrary(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 既存のユーザーゲーム行を全削除（全体入れ替え）
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_games WHERE steam_id = $1`,
		steamID,
	); err != nil {
		return fmt.Errorf("failed to delete user games: %w", err)
	}

	for _, game := range games {
		// ゲームカタログをUPSERT（app_id→名前の対応は全ユーザー共有）
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (app_id, name, cached_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (app_id) DO UPDATE SET
			   name = EXCLUDED.name,
			   cached_at = EXCLUDED.cached_at`,
			game.AppID, game.Name, fetchedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert game %d: %w", game.AppID, err)
		}

		var recent sql.NullInt64
		if game.Playtime2Weeks != nil {
			recent = sql.NullInt64{Int64: int64(*game.Playtime2Weeks), Valid: true}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_games (steam_id, app_id, playtime_forever, playtime_2weeks, cached_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			steamID, game.AppID, game.PlaytimeForever, recent, fetchedAt,
		); err != nil {
			return fmt.Errorf("failed to insert user game %d: %w", game.AppID, err)
		}
	}

	// スナップショットを更新。ゲーム0件でもキャッシュ済みとして記録する。
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO library_snapshots (steam_id, fetched_at)
		 VALUES ($1, $2)
		 ON CONFLICT (steam_id) DO UPDATE SET fetched_at = EXCLUDED.fetched_at`,
		steamID, fetchedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert library snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteBySteamID は指定SteamIDのライブラリレコードを削除する。
func (r *PostgresGameRepo) DeleteBySteamID(ctx context.Context, steamID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_games WHERE steam_id = $1`,
		steamID,
	); err != nil {
		return fmt.Errorf("failed to delete user games: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM library_snapshots WHERE steam_id = $1`,
		steamID,
	); err != nil {
		return fmt.Errorf("failed to delete library snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ GameRepository = (*PostgresGameRepo)(nil)
