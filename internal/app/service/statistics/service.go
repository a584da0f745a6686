package statistics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sokopay/paygate/internal/models"
)

type StatisticType string

const (
	// Daily counts and volume
	StatisticTypeDailyTransactionCount StatisticType = "daily_transaction_count"
	StatisticTypeDailyVolume           StatisticType = "daily_volume"

	// Outcome quality
	StatisticTypeStatusBreakdown StatisticType = "status_breakdown"
	StatisticTypeSuccessRate     StatisticType = "success_rate"
)

type PaymentStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type PaymentStatisticRequest struct {
	// Inclusive day bounds, "2006-01-02".
	StartDate string                      `json:"start_date"`
	EndDate   string                      `json:"end_date"`
	DataItems []*PaymentStatisticDataItem `json:"data_items"`
}

type DailyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type PaymentStatisticResponse struct {
	Items map[StatisticType]any `json:"items"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) GetDailyPaymentStatistic(ctx context.Context, req *PaymentStatisticRequest) (*PaymentStatisticResponse, error) {
	if req == nil || len(req.DataItems) == 0 {
		return nil, fmt.Errorf("no data items requested")
	}
	start, end, err := parseDayRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	res := &PaymentStatisticResponse{Items: map[StatisticType]any{}}
	for _, item := range req.DataItems {
		switch item.ID {
		case StatisticTypeDailyTransactionCount:
			points, err := s.dailyAggregate(ctx, start, end, "COUNT(*)")
			if err != nil {
				return nil, err
			}
			res.Items[item.ID] = points
		case StatisticTypeDailyVolume:
			points, err := s.dailyAggregate(ctx, start, end, "COALESCE(SUM(amount), 0)")
			if err != nil {
				return nil, err
			}
			res.Items[item.ID] = points
		case StatisticTypeStatusBreakdown:
			breakdown, err := s.statusBreakdown(ctx, start, end)
			if err != nil {
				return nil, err
			}
			res.Items[item.ID] = breakdown
		case StatisticTypeSuccessRate:
			rate, err := s.successRate(ctx, start, end)
			if err != nil {
				return nil, err
			}
			res.Items[item.ID] = rate
		default:
			return nil, fmt.Errorf("unsupported statistic type: %s", item.ID)
		}
	}
	return res, nil
}

func (s *Service) dailyAggregate(ctx context.Context, start, end time.Time, agg string) ([]*DailyPoint, error) {
	var rows []struct {
		Day   string
		Value float64
	}
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("DATE(created_at) AS day, "+agg+" AS value").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("day").Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}

	points := make([]*DailyPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, &DailyPoint{Date: r.Day, Value: r.Value})
	}
	return points, nil
}

func (s *Service) statusBreakdown(ctx context.Context, start, end time.Time) (map[models.TransactionStatus]int64, error) {
	var rows []struct {
		Status models.TransactionStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to break down statuses: %w", err)
	}

	out := map[models.TransactionStatus]int64{}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// successRate is SUCCESS over all terminal transactions in range; PENDING
// rows are still undecided and excluded.
func (s *Service) successRate(ctx context.Context, start, end time.Time) (float64, error) {
	breakdown, err := s.statusBreakdown(ctx, start, end)
	if err != nil {
		return 0, err
	}
	var terminal, success int64
	for status, n := range breakdown {
		if status == models.TransactionStatusPending {
			continue
		}
		terminal += n
		if status == models.TransactionStatusSuccess {
			success = n
		}
	}
	if terminal == 0 {
		return 0, nil
	}
	return float64(success) / float64(terminal), nil
}

func parseDayRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date before start_date")
	}
	return start, end.AddDate(0, 0, 1), nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
