// Package cleanup は期限切れセッションと古いキャッシュの自動削除ジョブを提供する。
// 期限切れのsessionsと、保持期間（デフォルト30日）を超過した
// players / user_games / library_snapshotsの各キャッシュ行を
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れセッションと古いキャッシュの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // キャッシュ行の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
	}
}

// cleanupQueries はクリーンアップ対象ごとの削除クエリ。
// expiresがtrueのクエリは期限切れ判定、falseは保持期間判定に引数を使う。
var cleanupQueries = []struct {
	name    string
	query   string
	expires bool
}{
	{
		name:    "sessions",
		query:   `DELETE FROM sessions WHERE expires_at < now()`,
		expires: true,
	},
	{
		name:  "user_games",
		query: `DELETE FROM user_games WHERE cached_at < now() - $1::interval`,
	},
	{
		name:  "library_snapshots",
		query: `DELETE FROM library_snapshots WHERE fetched_at < now() - $1::interval`,
	},
	{
		name:  "players",
		query: `DELETE FROM players WHERE cached_at < now() - $1::interval`,
	},
}

// Run は期限切れセッションと保持期間を超過したキャッシュ行を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
// グローバルなゲームカタログ（games）は削除しない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	var total int64
	for _, target := range cleanupQueries {
		var result sql.Result
		var err error
		if target.expires {
			result, err = j.db.ExecContext(ctx, target.query)
		} else {
			result, err = j.db.ExecContext(ctx, target.query, interval)
		}
		if err != nil {
			j.logger.Error("クリーンアップジョブの実行に失敗しました",
				slog.String("target", target.name),
				slog.String("error", err.Error()),
				slog.Int("retention_days", j.RetentionDays),
			)
			return fmt.Errorf("%sのクリーンアップに失敗: %w", target.name, err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			j.logger.Error("削除件数の取得に失敗しました",
				slog.String("target", target.name),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("%sの削除件数の取得に失敗: %w", target.name, err)
		}

		total += deleted
		j.logger.Info("クリーンアップ対象を削除しました",
			slog.String("target", target.name),
			slog.Int64("deleted_count", deleted),
		)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("total_deleted", total),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
