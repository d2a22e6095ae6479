package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装。
// 実行されたクエリと引数をすべて記録する。
type mockExecutor struct {
	queries []string
	args    [][]interface{}
	result  sql.Result
	err     error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.queries = append(m.queries, query)
	m.args = append(m.args, args)
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}

	job := NewCleanupJob(mock, newTestLogger(&buf))

	if job.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesAllTargets(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 2}}

	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(mock.queries) != 4 {
		t.Fatalf("実行されたクエリ数 = %d, want 4", len(mock.queries))
	}

	wantTargets := []string{"sessions", "user_games", "library_snapshots", "players"}
	for i, target := range wantTargets {
		if !strings.Contains(mock.queries[i], "DELETE FROM "+target) {
			t.Errorf("queries[%d] = %q, want DELETE FROM %s", i, mock.queries[i], target)
		}
	}

	// グローバルなゲームカタログは削除しない
	for _, q := range mock.queries {
		if strings.Contains(q, "DELETE FROM games") {
			t.Error("gamesテーブルが削除対象に含まれている")
		}
	}
}

func TestCleanupJob_Run_SessionsUseExpiry_CacheUsesRetention(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}

	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 7

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// セッションは期限切れ判定のため引数なし
	if len(mock.args[0]) != 0 {
		t.Errorf("sessions args = %v, want none", mock.args[0])
	}

	// キャッシュ行は保持期間のintervalを引数に取る
	for i := 1; i < len(mock.args); i++ {
		if len(mock.args[i]) != 1 || mock.args[i][0] != "7 days" {
			t.Errorf("args[%d] = %v, want [7 days]", i, mock.args[i])
		}
	}
}

func TestCleanupJob_Run_ReturnsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: errors.New("connection refused")}

	job := NewCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Error("エラーが返されなかった")
	}
}

func TestCleanupJob_Run_NoRows_Succeeds(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}

	job := NewCleanupJob(mock, newTestLogger(&buf))

	// 冪等: 削除対象がなくてもエラーにならない
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}

	if !strings.Contains(buf.String(), "total_deleted") {
		t.Error("完了ログが出力されていない")
	}
}
