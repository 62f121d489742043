package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v74"

	"cashier-backend/events"
	"cashier-backend/tasks"
)

type handlerFixture struct {
	store    *fakeStore
	provider *fakeProvider
	router   *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	provider := &fakeProvider{}
	dispatcher := tasks.NewDispatcher(1, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	reconciler := NewReconciler(store, provider)
	reconciler.now = func() time.Time { return testNow }
	lifecycle := NewLifecycle(store, provider, events.NewBus(), dispatcher, &fakeAddonLifecycle{}, NewAddonCatalog(), nil, KindUser)
	lifecycle.now = func() time.Time { return testNow }

	r := gin.New()
	NewHandler(reconciler, lifecycle).RegisterRoutes(r)
	return &handlerFixture{store: store, provider: provider, router: r}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestOverviewEndpointNullSubscription(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()

	w := f.do(t, http.MethodGet, "/accounts/1/billing", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Subscription *json.RawMessage `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Subscription)
}

func TestOverviewEndpointBrief(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	f.store.subs[1] = testLocalSub()
	f.provider.subscription = testRemoteSub()

	w := f.do(t, http.MethodGet, "/accounts/1/billing?brief=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Subscription map[string]interface{} `json:"subscription"`
		Cards        []interface{}          `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(900), resp.Subscription["plan_amount"])
	assert.Equal(t, true, resp.Subscription["active"])
	assert.Empty(t, resp.Cards)
	assert.Equal(t, 0, f.provider.listCalls)
}

func TestOverviewEndpointUnknownAccount(t *testing.T) {
	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/accounts/5/billing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverviewEndpointBadID(t *testing.T) {
	f := newHandlerFixture(t)
	w := f.do(t, http.MethodGet, "/accounts/abc/billing", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	f.store.subs[1] = testLocalSub()
	f.provider.cancelResult = &stripe.Subscription{ID: "sub_1", Status: stripe.SubscriptionStatusCanceled}

	w := f.do(t, http.MethodPost, "/accounts/1/subscription/cancel", map[string]interface{}{"now": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.provider.cancelCalls, 1)
	assert.True(t, f.provider.cancelCalls[0].immediate)
}

func TestCancelEndpointDefaultsToPeriodEnd(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	f.store.subs[1] = testLocalSub()
	f.provider.cancelResult = &stripe.Subscription{ID: "sub_1", CancelAtPeriodEnd: true, CurrentPeriodEnd: testNow.AddDate(0, 0, 20).Unix()}

	w := f.do(t, http.MethodPost, "/accounts/1/subscription/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.provider.cancelCalls, 1)
	assert.False(t, f.provider.cancelCalls[0].immediate)
}

func TestSwapEndpointRequiresPlan(t *testing.T) {
	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/accounts/1/subscription/swap", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResumeEndpointTerminated(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	sub := testLocalSub()
	ends := testNow.AddDate(0, 0, -1)
	sub.EndsAt = &ends
	f.store.subs[1] = sub

	w := f.do(t, http.MethodPost, "/accounts/1/subscription/resume", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderFailureMapsToBadGateway(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	f.store.subs[1] = testLocalSub()
	f.provider.subErr = ErrProviderLookup

	w := f.do(t, http.MethodGet, "/accounts/1/billing", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAddonCancelUnregisteredPlanMapsToConflict(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()
	f.store.addons[1] = map[int]*AddonSubscription{
		7: {ID: 7, AccountID: 1, ProviderPlan: "plan_unknown"},
	}

	w := f.do(t, http.MethodPost, "/accounts/1/addons/7/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddonCancelUnknownAddon(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.accounts[1] = testAccount()

	w := f.do(t, http.MethodPost, "/accounts/1/addons/99/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefundEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/charges/ch_1/refund", map[string]interface{}{"amount": 500, "notes": "double billed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.provider.refundCalls, 1)
	assert.Equal(t, int64(500), f.provider.refundCalls[0].amount)
	assert.Equal(t, map[string]string{"notes": "double billed"}, f.provider.refundCalls[0].metadata)
}

func TestRefundEndpointNegativeAmount(t *testing.T) {
	f := newHandlerFixture(t)
	w := f.do(t, http.MethodPost, "/charges/ch_1/refund", map[string]interface{}{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.provider.refundCalls)
}
