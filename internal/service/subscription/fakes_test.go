package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"mattepass-service/internal/domain/plan"
	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/pkg/lock"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

func (f *fakeTx) LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error { return nil }

type fakeStore struct {
	subs     []*subscription.Subscription
	payments []*subscription.Payment
	plans    map[int64]*plan.Plan
	failID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{plans: map[int64]*plan.Plan{
		1: {ID: 1, Name: "Basic", Price: decimal.RequireFromString("29.90"), ItemAQuantity: 1, ItemBQuantity: 2},
	}}
}

func (s *fakeStore) CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.Subscription) error {
	for _, existing := range s.subs {
		if existing.UserID == sub.UserID && existing.IsActive() && sub.IsActive() {
			return xerrors.ErrActiveSubscriptionExists
		}
	}
	sub.ID = int64(len(s.subs) + 1)
	s.subs = append(s.subs, sub)
	return nil
}

func (s *fakeStore) FindActiveByUserWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error) {
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.IsActive() {
			return sub, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeStore) FindActiveViewByUser(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error) {
	sub, err := s.FindActiveByUserWithTx(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	p := s.plans[sub.PlanID]
	return &subscription.ActiveSubscriptionView{
		ID: sub.ID, PlanID: p.ID, PlanName: p.Name,
		ItemAQuantity: p.ItemAQuantity, ItemBQuantity: p.ItemBQuantity,
		StartDate: sub.StartDate, EndDate: sub.EndDate, AutoRenew: sub.AutoRenew, Status: sub.Status,
	}, nil
}

func (s *fakeStore) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.Subscription, error) {
	if id == s.failID {
		return nil, errors.New("connection reset")
	}
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeStore) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status subscription.SubscriptionStatus, autoRenew bool) error {
	sub, err := s.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	sub.Status = status
	sub.AutoRenew = autoRenew
	return nil
}

func (s *fakeStore) UpdateAutoRenewWithTx(ctx context.Context, tx pgx.Tx, id int64, autoRenew bool) error {
	sub, err := s.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	sub.AutoRenew = autoRenew
	return nil
}

func (s *fakeStore) ExtendWithTx(ctx context.Context, tx pgx.Tx, id int64, endDate time.Time) error {
	sub, err := s.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	sub.EndDate = endDate
	return nil
}

func (s *fakeStore) ListDue(ctx context.Context, now time.Time, limit int) ([]subscription.Subscription, error) {
	var out []subscription.Subscription
	for _, sub := range s.subs {
		if sub.IsActive() && !sub.EndDate.After(now) && len(out) < limit {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*plan.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

// payments is the payment side of the store.
type payments struct{ s *fakeStore }

func (p payments) CreateWithTx(ctx context.Context, tx pgx.Tx, pay *subscription.Payment) error {
	pay.ID = int64(len(p.s.payments) + 1)
	p.s.payments = append(p.s.payments, pay)
	return nil
}

func (p payments) LatestMethodWithTx(ctx context.Context, tx pgx.Tx, subscriptionID int64) (subscription.PaymentMethod, error) {
	for i := len(p.s.payments) - 1; i >= 0; i-- {
		if p.s.payments[i].SubscriptionID == subscriptionID {
			return p.s.payments[i].PaymentMethod, nil
		}
	}
	return "", xerrors.ErrNotFound
}

func (p payments) ListHistoryByUser(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error) {
	out := []subscription.PaymentHistoryEntry{}
	for i := len(p.s.payments) - 1; i >= 0; i-- {
		pay := p.s.payments[i]
		if pay.UserID == userID {
			out = append(out, subscription.PaymentHistoryEntry{ID: pay.ID, Amount: pay.Amount, PaymentMethod: pay.PaymentMethod, TransactionID: pay.TransactionID})
		}
	}
	return out, nil
}

type fakeLocker struct {
	held     bool
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	if l.held {
		return nil, lock.ErrNotAcquired
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, nil
}
