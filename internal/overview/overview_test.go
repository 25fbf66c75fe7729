package overview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/repository"
	"github.com/carelink/carewallet/internal/repository/repotest"
	"github.com/carelink/carewallet/pkg/logger"
	"github.com/carelink/carewallet/pkg/pagination"
)

var day = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC) // a Monday

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type seeder struct {
	t  *testing.T
	db *repository.DB
}

func (s seeder) earning(role models.Role, providerID, gross string, at time.Time) {
	s.t.Helper()
	g := d(gross)
	commission := g.Mul(d("0.10")).Round(2)
	_, _, err := s.db.InsertEarning(context.Background(), &models.EarningEntry{
		ID:               uuid.NewString(),
		ProviderRole:     role,
		ProviderID:       providerID,
		PatientID:        "pat-1",
		BookingKind:      models.BookingAppointment,
		BookingID:        uuid.NewString(),
		GrossAmount:      g,
		CommissionRate:   d("0.10"),
		CommissionAmount: commission,
		NetAmount:        g.Sub(commission),
		Currency:         "INR",
		CreditedAt:       at,
		CreatedAt:        at,
	})
	if err != nil {
		s.t.Fatalf("insert earning: %v", err)
	}
}

func (s seeder) withdrawal(role models.Role, providerID, amount string, status models.WithdrawalStatus) {
	s.t.Helper()
	err := s.db.CreateWithdrawal(context.Background(), &models.WithdrawalRequest{
		ID:            uuid.NewString(),
		ProviderRole:  role,
		ProviderID:    providerID,
		Amount:        d(amount),
		Currency:      "INR",
		PayoutMethod:  models.PayoutMethod{Type: models.PayoutUPI, Details: map[string]string{"upiId": "p@bank"}},
		Status:        status,
		StatusHistory: []models.StatusChange{{Status: status}},
		CreatedAt:     day,
		UpdatedAt:     day,
	}, func(*models.Balance) error { return nil })
	if err != nil {
		s.t.Fatalf("create withdrawal: %v", err)
	}
}

func (s seeder) subscriptionIncome(amount string, at time.Time) {
	s.t.Helper()
	err := s.db.Conn.Create(&models.AdminCommissionEntry{
		ID:             uuid.NewString(),
		Amount:         d(amount),
		Currency:       "INR",
		Role:           models.RoleDoctor,
		SubscriberID:   "doc-1",
		SubscriptionID: uuid.NewString(),
		PaymentID:      uuid.NewString(),
		OrderID:        "order_1",
		CreatedAt:      at,
	}).Error
	if err != nil {
		s.t.Fatalf("create commission: %v", err)
	}
}

func newService(t *testing.T) (*Service, seeder) {
	t.Helper()
	db := repotest.New(t)
	svc := NewService(db, logger.NewNop())
	svc.now = func() time.Time { return day.AddDate(0, 0, 10) }
	return svc, seeder{t: t, db: db}
}

func TestOverviewTotals(t *testing.T) {
	svc, seed := newService(t)
	seed.earning(models.RoleDoctor, "doc-1", "1000", day)
	seed.earning(models.RoleDoctor, "doc-1", "500", day)
	seed.earning(models.RoleLaboratory, "lab-1", "200", day)
	seed.withdrawal(models.RoleDoctor, "doc-1", "300", models.WithdrawalPaid)
	seed.withdrawal(models.RoleDoctor, "doc-1", "100", models.WithdrawalPending)
	seed.withdrawal(models.RoleDoctor, "doc-1", "50", models.WithdrawalRejected)
	seed.subscriptionIncome("299", day)

	got, err := svc.Overview(context.Background(), nil, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	totals := got.Totals
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"gross", totals.TotalGross, "1700"},
		{"commission", totals.TotalCommission, "170"},
		{"net", totals.TotalNet, "1530"},
		{"withdrawn", totals.TotalWithdrawn, "300"},
		{"pending", totals.TotalPending, "100"},
		{"available", totals.TotalAvailable, "1130"},
		{"subscription revenue", totals.SubscriptionRevenue, "299"},
		{"platform income", totals.PlatformIncome, "469"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if totals.Providers != 2 || totals.EarningEntries != 3 || totals.SubscriptionPayments != 1 {
		t.Errorf("unexpected counts: %+v", totals)
	}
	if r := totals.Withdrawals[models.WithdrawalRejected]; r.Count != 1 || !r.Amount.Equal(d("50")) {
		t.Errorf("rejected total = %+v", r)
	}
	if a := totals.Withdrawals[models.WithdrawalApproved]; a.Count != 0 || !a.Amount.IsZero() {
		t.Errorf("approved total = %+v", a)
	}

	if got.Total != 2 || len(got.Providers) != 2 {
		t.Fatalf("providers = %d/%d", len(got.Providers), got.Total)
	}
	doc := got.Providers[0]
	if doc.ProviderRole != models.RoleDoctor || !doc.Available.Equal(d("950")) {
		t.Errorf("doctor summary = %+v", doc)
	}
}

func TestOverviewRoleFilterAndPaging(t *testing.T) {
	svc, seed := newService(t)
	seed.earning(models.RoleDoctor, "doc-1", "100", day)
	seed.earning(models.RoleDoctor, "doc-2", "100", day)
	seed.earning(models.RoleDoctor, "doc-3", "100", day)
	seed.earning(models.RolePharmacy, "ph-1", "100", day)

	role := models.RoleDoctor
	got, err := svc.Overview(context.Background(), &role, pagination.Params{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if got.Total != 3 || len(got.Providers) != 2 || got.Providers[0].ProviderID != "doc-2" {
		t.Fatalf("unexpected page: total=%d providers=%+v", got.Total, got.Providers)
	}
	if !got.Totals.TotalGross.Equal(d("300")) {
		t.Fatalf("filtered gross = %s", got.Totals.TotalGross)
	}

	got, err = svc.Overview(context.Background(), &role, pagination.Params{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(got.Providers) != 0 {
		t.Fatalf("expected empty page, got %d", len(got.Providers))
	}
}

func TestOverviewEmptyPlatform(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.Overview(context.Background(), nil, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !got.Totals.TotalNet.IsZero() || !got.Totals.PlatformIncome.IsZero() || got.Total != 0 {
		t.Fatalf("expected zero totals, got %+v", got.Totals)
	}
}

func TestDailyTrends(t *testing.T) {
	svc, seed := newService(t)
	seed.earning(models.RoleDoctor, "doc-1", "100", day)
	seed.earning(models.RoleDoctor, "doc-1", "50", day.Add(3*time.Hour))
	seed.earning(models.RoleDoctor, "doc-1", "70", day.AddDate(0, 0, 2))
	seed.earning(models.RoleDoctor, "doc-1", "999", day.AddDate(0, 0, 5))
	seed.subscriptionIncome("299", day.AddDate(0, 0, 1))

	from := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	got, err := svc.Trends(context.Background(), TrendQuery{Bucket: BucketDay, From: from, To: from.AddDate(0, 0, 3)})
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(got.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(got.Points))
	}
	if p := got.Points[0]; !p.Gross.Equal(d("150")) || p.Earnings != 2 || !p.Net.Equal(d("135")) {
		t.Errorf("day 1 = %+v", p)
	}
	if p := got.Points[1]; !p.Gross.IsZero() || !p.SubscriptionRevenue.Equal(d("299")) || p.Subscriptions != 1 {
		t.Errorf("day 2 = %+v", p)
	}
	if p := got.Points[2]; !p.Gross.Equal(d("70")) {
		t.Errorf("day 3 = %+v", p)
	}
}

func TestWeeklyAndMonthlyBuckets(t *testing.T) {
	sunday := time.Date(2024, 5, 12, 23, 0, 0, 0, time.UTC)
	if got := bucketStart(sunday, BucketWeek); !got.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week of sunday = %s", got)
	}
	if got := bucketStart(sunday, BucketMonth); !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month of sunday = %s", got)
	}

	svc, seed := newService(t)
	seed.earning(models.RoleDoctor, "doc-1", "10", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC))
	seed.earning(models.RoleDoctor, "doc-1", "20", time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC))

	got, err := svc.Trends(context.Background(), TrendQuery{
		Bucket: BucketMonth,
		From:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(got.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(got.Points))
	}
	if !got.Points[0].Gross.Equal(d("10")) || !got.Points[1].Gross.IsZero() || !got.Points[2].Gross.Equal(d("20")) {
		t.Fatalf("unexpected monthly points: %+v %+v %+v", got.Points[0], got.Points[1], got.Points[2])
	}
}

func TestTrendsValidation(t *testing.T) {
	svc, _ := newService(t)
	cases := []struct {
		name string
		q    TrendQuery
	}{
		{"unknown bucket", TrendQuery{Bucket: "hour"}},
		{"inverted range", TrendQuery{From: day, To: day.Add(-time.Hour)}},
		{"range too long", TrendQuery{From: day.AddDate(-2, 0, 0), To: day}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Trends(context.Background(), c.q)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTrendsDefaultRange(t *testing.T) {
	svc, _ := newService(t)
	got, err := svc.Trends(context.Background(), TrendQuery{})
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if got.Bucket != BucketDay || got.To.Sub(got.From) != DefaultTrendRange {
		t.Fatalf("unexpected defaults: %s %s..%s", got.Bucket, got.From, got.To)
	}
	if len(got.Points) != 31 {
		t.Fatalf("points = %d, want 31", len(got.Points))
	}
}
