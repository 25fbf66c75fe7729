package overview

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
)

type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// MaxTrendRange caps the span a single trends query may cover.
const MaxTrendRange = 366 * 24 * time.Hour

// DefaultTrendRange is used when the caller gives no lower bound.
const DefaultTrendRange = 30 * 24 * time.Hour

func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(s) {
	case "":
		return BucketDay, true
	case BucketDay, BucketWeek, BucketMonth:
		return Bucket(s), true
	}
	return "", false
}

// TrendQuery selects [From, To) grouped by Bucket. Zero times fall back to defaults.
type TrendQuery struct {
	Bucket Bucket
	From   time.Time
	To     time.Time
}

type TrendPoint struct {
	Start               time.Time       `json:"start"`
	Gross               decimal.Decimal `json:"gross"`
	Commission          decimal.Decimal `json:"commission"`
	Net                 decimal.Decimal `json:"net"`
	Earnings            int64           `json:"earnings"`
	SubscriptionRevenue decimal.Decimal `json:"subscription_revenue"`
	Subscriptions       int64           `json:"subscriptions"`
}

type Trends struct {
	Bucket Bucket        `json:"bucket"`
	From   time.Time     `json:"from"`
	To     time.Time     `json:"to"`
	Points []*TrendPoint `json:"points"`
}

// Trends buckets ledger and subscription income over the requested range.
// Every bucket in range is present, empty ones with zero values.
func (s *Service) Trends(ctx context.Context, q TrendQuery) (*Trends, error) {
	if q.Bucket == "" {
		q.Bucket = BucketDay
	}
	if _, ok := ParseBucket(string(q.Bucket)); !ok {
		return nil, apperr.Validation("bucket must be one of day, week, month")
	}
	if q.To.IsZero() {
		q.To = s.now()
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-DefaultTrendRange)
	}
	q.From, q.To = q.From.UTC(), q.To.UTC()
	if !q.From.Before(q.To) {
		return nil, apperr.Validation("from must be before to")
	}
	if q.To.Sub(q.From) > MaxTrendRange {
		return nil, apperr.Validation("range must not exceed 366 days")
	}

	earnings, err := s.repo.EarningsBetween(ctx, q.From, q.To)
	if err != nil {
		return nil, err
	}
	commissions, err := s.repo.AdminCommissionsBetween(ctx, q.From, q.To)
	if err != nil {
		return nil, err
	}

	var points []*TrendPoint
	index := make(map[time.Time]*TrendPoint)
	for start := bucketStart(q.From, q.Bucket); start.Before(q.To); start = nextBucket(start, q.Bucket) {
		p := &TrendPoint{
			Start:               start,
			Gross:               decimal.Zero,
			Commission:          decimal.Zero,
			Net:                 decimal.Zero,
			SubscriptionRevenue: decimal.Zero,
		}
		points = append(points, p)
		index[start] = p
	}

	for _, e := range earnings {
		p, ok := index[bucketStart(e.CreditedAt, q.Bucket)]
		if !ok {
			continue
		}
		p.Gross = p.Gross.Add(e.GrossAmount)
		p.Commission = p.Commission.Add(e.CommissionAmount)
		p.Net = p.Net.Add(e.NetAmount)
		p.Earnings++
	}
	for _, c := range commissions {
		p, ok := index[bucketStart(c.CreatedAt, q.Bucket)]
		if !ok {
			continue
		}
		p.SubscriptionRevenue = p.SubscriptionRevenue.Add(c.Amount)
		p.Subscriptions++
	}

	return &Trends{Bucket: q.Bucket, From: q.From, To: q.To, Points: points}, nil
}

// bucketStart truncates t to the start of its bucket in UTC. Weeks start on Monday.
func bucketStart(t time.Time, b Bucket) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch b {
	case BucketWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func nextBucket(start time.Time, b Bucket) time.Time {
	switch b {
	case BucketWeek:
		return start.AddDate(0, 0, 7)
	case BucketMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
