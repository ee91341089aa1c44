package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/domain/dailycode"
	"mattepass-service/internal/domain/plan"
	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/domain/subscription"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

var errLockNotHeld = errors.New("lock not held by transaction")

// fakeTx runs transactions concurrently. Row and advisory locks are per-key
// mutexes a transaction holds until it ends, as in the store.
type fakeTx struct {
	mu    sync.Mutex
	locks []int64
	keys  map[string]*sync.Mutex
}

// txHandle is the pgx.Tx handed to a transaction body. Only the lock set is real.
type txHandle struct {
	pgx.Tx
	held map[string]*sync.Mutex
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	h := &txHandle{held: map[string]*sync.Mutex{}}
	defer func() {
		for _, m := range h.held {
			m.Unlock()
		}
	}()
	return fn(h)
}

func (f *fakeTx) LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error {
	f.mu.Lock()
	f.locks = append(f.locks, key)
	f.mu.Unlock()
	return f.acquire(tx, advisoryKey(key))
}

func (f *fakeTx) acquire(tx pgx.Tx, key string) error {
	h, ok := tx.(*txHandle)
	if !ok {
		return fmt.Errorf("lock %s outside a transaction", key)
	}
	if _, held := h.held[key]; held {
		return nil
	}

	f.mu.Lock()
	if f.keys == nil {
		f.keys = map[string]*sync.Mutex{}
	}
	m, ok := f.keys[key]
	if !ok {
		m = &sync.Mutex{}
		f.keys[key] = m
	}
	f.mu.Unlock()

	m.Lock()
	h.held[key] = m
	return nil
}

func holds(tx pgx.Tx, key string) bool {
	h, ok := tx.(*txHandle)
	if !ok {
		return false
	}
	_, held := h.held[key]
	return held
}

func advisoryKey(key int64) string { return fmt.Sprintf("advisory:%d", key) }

func codeRowKey(id int64) string { return fmt.Sprintf("daily_codes:%d", id) }

type fakeStore struct {
	mu  sync.Mutex
	txs *fakeTx

	users       map[int64]*auth.User
	plans       map[int64]*plan.Plan
	subs        map[int64]*subscription.Subscription
	codes       []*dailycode.DailyCode
	redemptions []redemption.Redemption

	// raceOnce makes the next code insert lose to a concurrent writer.
	raceOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]*auth.User{},
		plans: map[int64]*plan.Plan{},
		subs:  map[int64]*subscription.Subscription{},
	}
}

func (s *fakeStore) addPlan(id int64, a, b int) *plan.Plan {
	p := &plan.Plan{ID: id, Name: "Plan", ItemAQuantity: a, ItemBQuantity: b}
	s.plans[id] = p
	return p
}

func (s *fakeStore) subscribe(userID, planID int64) {
	s.users[userID] = &auth.User{ID: userID, Username: "client", Role: auth.RoleClient}
	s.subs[userID] = &subscription.Subscription{ID: userID, UserID: userID, PlanID: planID, Status: subscription.StatusActive}
}

func (s *fakeStore) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) FindActiveByUserWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok || !sub.IsActive() {
		return nil, xerrors.ErrNotFound
	}
	return sub, nil
}

func (s *fakeStore) FindByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) FindByUserAndDayWithTx(ctx context.Context, tx pgx.Tx, userID int64, day time.Time) (*dailycode.DailyCode, error) {
	if !holds(tx, advisoryKey(userID)) {
		return nil, fmt.Errorf("daily code lookup for user %d: %w", userID, errLockNotHeld)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.UserID == userID && c.ValidDay.Equal(day) {
			return c, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeStore) CreateWithTx(ctx context.Context, tx pgx.Tx, code *dailycode.DailyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raceOnce {
		s.raceOnce = false
		winner := *code
		winner.ID = int64(len(s.codes) + 1)
		winner.Token = "winner-token"
		s.codes = append(s.codes, &winner)
		return xerrors.ErrDuplicateCodeRace
	}
	for _, c := range s.codes {
		if c.UserID == code.UserID && c.ValidDay.Equal(code.ValidDay) {
			return xerrors.ErrDuplicateCodeRace
		}
	}
	code.ID = int64(len(s.codes) + 1)
	s.codes = append(s.codes, code)
	return nil
}

func (s *fakeStore) FindByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*dailycode.DailyCode, error) {
	s.mu.Lock()
	var found *dailycode.DailyCode
	for _, c := range s.codes {
		if c.Token == token {
			found = c
		}
	}
	s.mu.Unlock()

	if found == nil {
		return nil, xerrors.ErrNotFound
	}
	if err := s.txs.acquire(tx, codeRowKey(found.ID)); err != nil {
		return nil, err
	}
	return found, nil
}

// ledger is the redemption side of the store. It is a separate type because
// CreateWithTx is already taken by the daily code side.
type ledger struct{ s *fakeStore }

func (l ledger) CreateWithTx(ctx context.Context, tx pgx.Tx, r *redemption.Redemption) error {
	if !holds(tx, codeRowKey(r.DailyCodeID)) {
		return fmt.Errorf("redemption on code %d: %w", r.DailyCodeID, errLockNotHeld)
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	r.ID = int64(len(l.s.redemptions) + 1)
	l.s.redemptions = append(l.s.redemptions, *r)
	return nil
}

func (l ledger) SumByCodeWithTx(ctx context.Context, tx pgx.Tx, codeID int64) (redemption.Tally, error) {
	return l.SumByCode(ctx, codeID)
}

func (l ledger) SumByCode(ctx context.Context, codeID int64) (redemption.Tally, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var records []redemption.Redemption
	for _, r := range l.s.redemptions {
		if r.DailyCodeID == codeID {
			records = append(records, r)
		}
	}
	return redemption.Sum(records), nil
}

func (s *fakeStore) redemptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redemptions)
}
