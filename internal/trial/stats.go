package trial

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/trialman/internal/model"
)

// recentTrialsLimit は統計に含める最近の治験の件数。
const recentTrialsLimit = 5

// StatsReader は統計集計に必要な読み取り専用のリポジトリ操作。
type StatsReader interface {
	CountByStatus(ctx context.Context, ownerID string) ([]model.StatusCount, error)
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]model.RecentTrial, error)
	ListDurationDaysByOwner(ctx context.Context, ownerID string) ([]float64, error)
}

// Aggregator はユーザー単位の治験統計を呼び出しごとに計算する。
// 状態を持たず、キャッシュもしない。
type Aggregator struct {
	reader StatsReader
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(reader StatsReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Stats はステータス別件数、最近の治験5件、期間の記述統計を返す。
// 各クエリは並行に実行されるため、同時の作成・削除と競合した場合に
// 件数と一覧が一致しないことがある。Totalはステータス別件数の合計とする。
func (a *Aggregator) Stats(ctx context.Context, userID string) (*model.TrialStats, error) {
	var (
		counts    []model.StatusCount
		recent    []model.RecentTrial
		durations []float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = a.reader.CountByStatus(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = a.reader.ListRecentByOwner(gctx, userID, recentTrialsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		durations, err = a.reader.ListDurationDaysByOwner(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate trial stats: %w", err)
	}

	result := &model.TrialStats{Recent: recent}
	if result.Recent == nil {
		result.Recent = []model.RecentTrial{}
	}

	for _, c := range counts {
		switch c.Status {
		case model.TrialStatusPlanned:
			result.Planned += c.Count
		case model.TrialStatusOngoing:
			result.Ongoing += c.Count
		case model.TrialStatusCompleted:
			result.Completed += c.Count
		}
	}
	result.Total = result.Planned + result.Ongoing + result.Completed
	result.Duration = summarizeDurations(durations)

	return result, nil
}

// summarizeDurations は期間（日数）の平均と中央値を計算する。空の場合はゼロ値を返す。
func summarizeDurations(days []float64) model.DurationStats {
	if len(days) == 0 {
		return model.DurationStats{}
	}
	data := stats.Float64Data(days)
	mean, err := data.Mean()
	if err != nil {
		return model.DurationStats{}
	}
	median, err := data.Median()
	if err != nil {
		return model.DurationStats{}
	}
	return model.DurationStats{
		MeanDays:   mean,
		MedianDays: median,
	}
}
