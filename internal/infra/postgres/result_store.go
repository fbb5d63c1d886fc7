package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-arena/internal/domain"
)

// OpenBun opens a bun handle over pgdriver.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches"`

	ID         string              `bun:"id,pk"`
	RoomCode   string              `bun:"room_code"`
	RoomName   string              `bun:"room_name"`
	Category   string              `bun:"category"`
	Difficulty string              `bun:"difficulty"`
	WinnerID   string              `bun:"winner_id"`
	Abandoned  bool                `bun:"abandoned"`
	StartedAt  time.Time           `bun:"started_at,nullzero"`
	FinishedAt time.Time           `bun:"finished_at"`
	Summary    domain.MatchSummary `bun:"summary,type:jsonb"`
}

type matchPlayerRow struct {
	bun.BaseModel `bun:"table:match_players"`

	MatchID      string `bun:"match_id,pk"`
	UserID       string `bun:"user_id,pk"`
	DisplayName  string `bun:"display_name"`
	Rank         int    `bun:"rank"`
	Score        int    `bun:"score"`
	CorrectCount int    `bun:"correct_count"`
	BestStreak   int    `bun:"best_streak"`
	AvgLatencyMs int64  `bun:"avg_latency_ms"`
	Status       string `bun:"status"`
}

// PlayerStats is the lifetime record of one user across matches.
type PlayerStats struct {
	bun.BaseModel `bun:"table:player_stats"`

	UserID        string    `bun:"user_id,pk" json:"userId"`
	DisplayName   string    `bun:"display_name" json:"displayName"`
	MatchesPlayed int       `bun:"matches_played" json:"matchesPlayed"`
	Wins          int       `bun:"wins" json:"wins"`
	TotalScore    int64     `bun:"total_score" json:"totalScore"`
	TotalCorrect  int64     `bun:"total_correct" json:"totalCorrect"`
	BestStreak    int       `bun:"best_streak" json:"bestStreak"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updatedAt"`
}

// ResultStore persists finished matches and keeps player stats current.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

// RecordMatchResult implements app.ResultRecorder. Recording the same match
// twice is a no-op so retried deliveries never double count stats.
func (s *ResultStore) RecordMatchResult(ctx context.Context, summary domain.MatchSummary) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		match := &matchRow{
			ID:         summary.MatchID,
			RoomCode:   summary.RoomCode,
			RoomName:   summary.RoomName,
			Category:   summary.Category,
			Difficulty: string(summary.Difficulty),
			WinnerID:   summary.WinnerID,
			Abandoned:  summary.Abandoned,
			StartedAt:  summary.StartedAt,
			FinishedAt: summary.FinishedAt,
			Summary:    summary,
		}
		res, err := tx.NewInsert().Model(match).On("CONFLICT (id) DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil
		}
		if len(summary.Standings) == 0 {
			return nil
		}

		players := make([]matchPlayerRow, 0, len(summary.Standings))
		stats := make([]PlayerStats, 0, len(summary.Standings))
		for _, st := range summary.Standings {
			players = append(players, matchPlayerRow{
				MatchID:      summary.MatchID,
				UserID:       st.UserID,
				DisplayName:  st.DisplayName,
				Rank:         st.Rank,
				Score:        st.Score,
				CorrectCount: st.CorrectCount,
				BestStreak:   st.BestStreak,
				AvgLatencyMs: st.AvgLatencyMs,
				Status:       string(st.Status),
			})
			win := 0
			if st.UserID == summary.WinnerID && !summary.Abandoned {
				win = 1
			}
			stats = append(stats, PlayerStats{
				UserID:        st.UserID,
				DisplayName:   st.DisplayName,
				MatchesPlayed: 1,
				Wins:          win,
				TotalScore:    int64(st.Score),
				TotalCorrect:  int64(st.CorrectCount),
				BestStreak:    st.BestStreak,
				UpdatedAt:     summary.FinishedAt,
			})
		}
		if _, err := tx.NewInsert().Model(&players).Exec(ctx); err != nil {
			return fmt.Errorf("insert match players: %w", err)
		}
		_, err = tx.NewInsert().Model(&stats).
			On("CONFLICT (user_id) DO UPDATE").
			Set("display_name = EXCLUDED.display_name").
			Set("matches_played = player_stats.matches_played + EXCLUDED.matches_played").
			Set("wins = player_stats.wins + EXCLUDED.wins").
			Set("total_score = player_stats.total_score + EXCLUDED.total_score").
			Set("total_correct = player_stats.total_correct + EXCLUDED.total_correct").
			Set("best_streak = GREATEST(player_stats.best_streak, EXCLUDED.best_streak)").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert player stats: %w", err)
		}
		return nil
	})
}

// PlayerStats returns the lifetime stats for userID.
func (s *ResultStore) PlayerStats(ctx context.Context, userID string) (PlayerStats, error) {
	var stats PlayerStats
	err := s.db.NewSelect().Model(&stats).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return PlayerStats{}, fmt.Errorf("load player stats: %w", err)
	}
	return stats, nil
}

// RecentMatches returns the latest finished matches, newest first.
func (s *ResultStore) RecentMatches(ctx context.Context, limit int) ([]domain.MatchSummary, error) {
	var rows []matchRow
	err := s.db.NewSelect().Model(&rows).OrderExpr("finished_at DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recent matches: %w", err)
	}
	out := make([]domain.MatchSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Summary)
	}
	return out, nil
}
