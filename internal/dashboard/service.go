package dashboard

import (
	"context"
	"time"

	"github.com/vincentbui21/SmartJuiceSystem/internal/activity"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

// litersPerBox converts packed boxes into juice volume for the overview.
const litersPerBox = 8

// Summary is the staff overview.
type Summary struct {
	Orders        map[string]int64 `json:"orders"`
	Customers     int64            `json:"customers"`
	BoxesTotal    int64            `json:"boxesTotal"`
	BoxesOnShelf  int64            `json:"boxesOnShelf"`
	Pallets       int64            `json:"pallets"`
	Shelves       int64            `json:"shelves"`
	BoxesToday    int64            `json:"boxesToday"`
	LitersToday   int64            `json:"litersToday"`
	LitersAllTime int64            `json:"litersAllTime"`
}

// DailyTotal is one day of production volume.
type DailyTotal struct {
	Day    string `json:"day"`
	Boxes  int64  `json:"boxes"`
	Liters int64  `json:"liters"`
}

// Service assembles dashboard views.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	DailyTotals(ctx context.Context, days int) ([]DailyTotal, error)
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEvent, error)
}

type service struct {
	repo Repository
	feed activity.Repository
}

// NewService wires the dashboard aggregates.
func NewService(repo Repository, feed activity.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dashboard repository required")
	}
	if feed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dashboard activity feed required")
	}
	return &service{repo: repo, feed: feed}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.repo.OrderCountsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	orderCounts := make(map[string]int64, len(counts))
	for status, total := range counts {
		if status == enums.OrderStatusDeleted {
			continue
		}
		orderCounts[status.String()] = total
	}

	customers, err := s.repo.CustomerCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	boxes, err := s.repo.BoxCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count boxes")
	}
	shelved, err := s.repo.ShelvedBoxCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count shelved boxes")
	}
	pallets, shelves, err := s.repo.ContainerCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count containers")
	}

	midnight := startOfDay(time.Now())
	boxesToday, err := s.repo.BoxesPackedSince(ctx, midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's boxes")
	}

	return &Summary{
		Orders:        orderCounts,
		Customers:     customers,
		BoxesTotal:    boxes,
		BoxesOnShelf:  shelved,
		Pallets:       pallets,
		Shelves:       shelves,
		BoxesToday:    boxesToday,
		LitersToday:   boxesToday * litersPerBox,
		LitersAllTime: boxes * litersPerBox,
	}, nil
}

func (s *service) DailyTotals(ctx context.Context, days int) ([]DailyTotal, error) {
	if days <= 0 {
		days = 7
	}
	since := startOfDay(time.Now().AddDate(0, 0, -(days - 1)))
	rows, err := s.repo.DailyBoxCounts(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "daily box counts")
	}

	totals := make([]DailyTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, DailyTotal{Day: row.Day, Boxes: row.Boxes, Liters: row.Boxes * litersPerBox})
	}
	return totals, nil
}

func (s *service) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	events, err := s.feed.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}
	return events, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
