package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"mattepass-service/internal/domain/redemption"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	clientID = int64(10)
	vendorID = int64(20)
)

type harness struct {
	store      *fakeStore
	tx         *fakeTx
	issuer     *Issuer
	accountant *Accountant
}

func newHarness(t *testing.T, itemA, itemB int) *harness {
	t.Helper()
	store := newFakeStore()
	store.addPlan(1, itemA, itemB)
	store.subscribe(clientID, 1)

	tx := &fakeTx{}
	store.txs = tx
	led := ledger{s: store}
	logger := zap.NewNop()
	return &harness{
		store:      store,
		tx:         tx,
		issuer:     NewIssuer(tx, store, store, store, led, logger),
		accountant: NewAccountant(tx, store, store, store, store, led, logger),
	}
}

func (h *harness) redeem(token string, a, b int, now time.Time) (*redemption.Result, error) {
	return h.accountant.Redeem(context.Background(), RedeemCommand{Token: token, ItemA: a, ItemB: b, VendorID: vendorID, Now: now})
}

func day(d, hour int) time.Time {
	return time.Date(2025, time.March, d, hour, 0, 0, 0, time.UTC)
}

func TestDailyScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)
	assert.True(t, code.Created)
	assert.Equal(t, 5, code.ItemA.Remaining)
	assert.Equal(t, 10, code.ItemB.Remaining)
	assert.Equal(t, day(4, 0), code.ValidUntil)

	res, err := h.redeem(code.Code, 3, 4, day(3, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemA.Remaining)
	assert.Equal(t, 6, res.ItemB.Remaining)
	assert.Equal(t, "client", res.Username)

	_, err = h.redeem(code.Code, 3, 0, day(3, 11))
	var insufficient *xerrors.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, redemption.ItemA, insufficient.Item)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 1, h.store.redemptionCount(), "a rejected redeem writes nothing")

	again, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 12))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, code.Code, again.Code)
	assert.Equal(t, 2, again.ItemA.Remaining)
	assert.Equal(t, 6, again.ItemB.Remaining)

	res, err = h.redeem(code.Code, 2, 6, day(3, 13))
	require.NoError(t, err)
	assert.Zero(t, res.ItemA.Remaining)
	assert.Zero(t, res.ItemB.Remaining)

	_, err = h.issuer.IssueOrGet(ctx, clientID, day(3, 14))
	var exhausted *xerrors.QuotaExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, xerrors.QuotaExhaustedError{ItemARedeemed: 5, ItemATotal: 5, ItemBRedeemed: 10, ItemBTotal: 10}, *exhausted)

	next, err := h.issuer.IssueOrGet(ctx, clientID, day(4, 8))
	require.NoError(t, err)
	assert.True(t, next.Created)
	assert.NotEqual(t, code.Code, next.Code)
	assert.Equal(t, 5, next.ItemA.Remaining)
	assert.Equal(t, 10, next.ItemB.Remaining)
}

func TestBalanceEqualsSumOfHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	for _, q := range [][2]int{{1, 0}, {0, 3}, {2, 2}} {
		_, err := h.redeem(code.Code, q[0], q[1], day(3, 10))
		require.NoError(t, err)
	}

	tally, err := h.accountant.ComputeBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, redemption.Tally{ItemA: 3, ItemB: 5}, tally)
}

func TestConcurrentRedeemNeverOverRedeems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3, 0)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.redeem(code.Code, 2, 0, day(3, 10))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case xerrors.Is(err, xerrors.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	tally, err := h.accountant.ComputeBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.ItemA)
}

func TestConcurrentIssueYieldsOneCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	created := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
			if assert.NoError(t, err) {
				tokens[i] = res.Code
				created[i] = res.Created
			}
		}(i)
	}
	wg.Wait()

	var createdCount int
	for i := range tokens {
		assert.Equal(t, tokens[0], tokens[i])
		if created[i] {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
	assert.Len(t, h.store.codes, 1)
}

func TestIssueRetriesAfterCreationRace(t *testing.T) {
	h := newHarness(t, 5, 10)
	h.store.raceOnce = true

	res, err := h.issuer.IssueOrGet(context.Background(), clientID, day(3, 9))
	require.NoError(t, err)
	assert.Equal(t, "winner-token", res.Code)
	assert.False(t, res.Created)
	assert.Len(t, h.store.codes, 1)
}

func TestIssueTakesUserLock(t *testing.T) {
	h := newHarness(t, 5, 10)

	_, err := h.issuer.IssueOrGet(context.Background(), clientID, day(3, 9))
	require.NoError(t, err)
	assert.Equal(t, []int64{clientID}, h.tx.locks)
}

func TestIssueWithoutSubscription(t *testing.T) {
	h := newHarness(t, 5, 10)

	_, err := h.issuer.IssueOrGet(context.Background(), 999, day(3, 9))
	assert.ErrorIs(t, err, xerrors.ErrNoActiveSubscription)
}

func TestRedeemRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		a, b  int
		now   time.Time
		want  error
	}{
		{"negative quantity", code.Code, -1, 2, day(3, 10), xerrors.ErrInvalidInput},
		{"unknown token", "nope", 1, 0, day(3, 10), xerrors.ErrInvalidCode},
		{"unknown token with empty request", "nope", 0, 0, day(3, 10), xerrors.ErrInvalidCode},
		{"after midnight", code.Code, 1, 0, day(4, 0).Add(time.Second), xerrors.ErrCodeExpired},
		{"item b over allowance", code.Code, 0, 11, day(3, 10), xerrors.ErrInsufficientBalance},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.redeem(tc.token, tc.a, tc.b, tc.now)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, h.store.redemptionCount())
}

func TestRedeemAtExactMidnightIsStillValid(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	_, err = h.redeem(code.Code, 1, 0, day(4, 0))
	assert.NoError(t, err)
}

func TestRedeemAfterSubscriptionEnds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	h.store.subs[clientID].Status = "cancelled"
	_, err = h.redeem(code.Code, 1, 0, day(3, 10))
	assert.ErrorIs(t, err, xerrors.ErrNoActiveSubscription)
}

func TestRedeemNothingIsRecorded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	res, err := h.redeem(code.Code, 0, 0, day(3, 10))
	require.NoError(t, err)
	assert.Equal(t, 5, res.ItemA.Remaining)
	assert.Equal(t, 10, res.ItemB.Remaining)
	assert.Equal(t, 1, h.store.redemptionCount())

	_, err = h.redeem(code.Code, 0, 0, day(4, 0).Add(time.Second))
	assert.ErrorIs(t, err, xerrors.ErrCodeExpired)
}

func TestRedeemWaitsForCodeRowLock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, 10)

	code, err := h.issuer.IssueOrGet(ctx, clientID, day(3, 9))
	require.NoError(t, err)

	locked := make(chan struct{})
	release := make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- h.tx.WithTx(ctx, func(tx pgx.Tx) error {
			_, err := h.store.FindByTokenForUpdate(ctx, tx, code.Code)
			close(locked)
			<-release
			return err
		})
	}()
	<-locked

	done := make(chan error, 1)
	go func() {
		_, err := h.redeem(code.Code, 1, 0, day(3, 10))
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("redeem finished while another transaction held the code row: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Zero(t, h.store.redemptionCount())

	close(release)
	require.NoError(t, <-holder)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.store.redemptionCount())
}

func TestLedgerRefusesUnlockedWrites(t *testing.T) {
	h := newHarness(t, 5, 10)
	err := h.tx.WithTx(context.Background(), func(tx pgx.Tx) error {
		return ledger{s: h.store}.CreateWithTx(context.Background(), tx, &redemption.Redemption{DailyCodeID: 1, ItemAQuantity: 1})
	})
	assert.ErrorIs(t, err, errLockNotHeld)
}
