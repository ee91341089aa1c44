package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mattepass-service/internal/domain/subscription"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type serviceStub struct {
	subscribeErr error
	autoRenew    *bool
	gotReq       *subscription.SubscribeRequest
}

func (s *serviceStub) Subscribe(ctx context.Context, userID int64, req *subscription.SubscribeRequest) (*subscription.SubscribeResult, error) {
	s.gotReq = req
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	return &subscription.SubscribeResult{Subscription: &subscription.Subscription{UserID: userID, PlanID: req.PlanID}}, nil
}

func (s *serviceStub) Cancel(ctx context.Context, userID int64) error {
	return xerrors.ErrNoActiveSubscription
}

func (s *serviceStub) SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) error {
	s.autoRenew = &autoRenew
	return nil
}

func (s *serviceStub) GetActive(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error) {
	return nil, xerrors.ErrNoActiveSubscription
}

func (s *serviceStub) PaymentHistory(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error) {
	return []subscription.PaymentHistoryEntry{}, nil
}

func newRouter(svc *serviceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSubscriptionHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", int64(3)) })
	r.POST("/subscriptions", h.Subscribe)
	r.GET("/subscriptions/active", h.GetActive)
	r.POST("/subscriptions/cancel", h.Cancel)
	r.PUT("/subscriptions/auto-renew", h.SetAutoRenew)
	r.GET("/subscriptions/payments", h.Payments)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribe(t *testing.T) {
	svc := &serviceStub{}
	r := newRouter(svc)

	w := serve(r, http.MethodPost, "/subscriptions", `{"plan_id":1,"payment_method":"pix"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, subscription.PaymentMethodPix, svc.gotReq.PaymentMethod)

	w = serve(r, http.MethodPost, "/subscriptions", `{"plan_id":1,"payment_method":"boleto"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.subscribeErr = xerrors.ErrActiveSubscriptionExists
	w = serve(r, http.MethodPost, "/subscriptions", `{"plan_id":1,"payment_method":"card"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAutoRenewRequiresExplicitValue(t *testing.T) {
	svc := &serviceStub{}
	r := newRouter(svc)

	w := serve(r, http.MethodPut, "/subscriptions/auto-renew", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.autoRenew)

	w = serve(r, http.MethodPut, "/subscriptions/auto-renew", `{"auto_renew":false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	if assert.NotNil(t, svc.autoRenew) {
		assert.False(t, *svc.autoRenew)
	}
}

func TestErrorMapping(t *testing.T) {
	r := newRouter(&serviceStub{})

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/subscriptions/active", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/subscriptions/cancel", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/subscriptions/payments", "").Code)
}
