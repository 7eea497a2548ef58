// README: End-to-end API tests over the gin router with an in-memory session service.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"

	"riderhub/internal/config"
	"riderhub/internal/events"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/session"
	"riderhub/internal/types"
)

type memAudit struct {
	mu     sync.Mutex
	events []session.AuditEvent
}

func (m *memAudit) Append(_ context.Context, e session.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAudit) ListByOrder(_ context.Context, orderID types.ID) ([]session.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []session.AuditEvent
	for _, e := range m.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type testAPI struct {
	router *gin.Engine
	pool   *offer.Pool
	pub    *events.Recorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	pool := offer.NewPool()
	pub := &events.Recorder{}
	svc := session.NewService(pool, session.Options{
		Publisher: pub,
		Audit:     &memAudit{},
		Log:       log,
		Delivery:  config.DeliveryConfig{CodeLength: 4, UrgentBonus: 10, Currency: "INR"},
	})
	r := NewRouter(ServerDeps{
		Sessions: svc,
		Pool:     pool,
		Offers:   config.OffersConfig{HighPayMin: 80, NearbyMaxKm: 3, UrgentWithin: 60},
		Currency: "INR",
		Log:      log,
	})
	return &testAPI{router: r, pool: pool, pub: pub}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) seed(t *testing.T, id string, earning int64, timeRemaining int) {
	t.Helper()
	err := a.pool.Insert(offer.Offer{
		ID:               types.ID(id),
		MerchantName:     "KFC",
		PickupAddress:    "Sector 18",
		DropoffAddress:   "Sector 27",
		EstimatedEarning: types.Money{Amount: earning, Currency: "INR"},
		DistanceKm:       2,
		EstimatedMinutes: 15,
		TimeRemaining:    timeRemaining,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (a *testAPI) customerCode(t *testing.T) string {
	t.Helper()
	evs := a.pub.OfType(events.TypeDeliveryAccepted)
	if len(evs) == 0 {
		t.Fatal("no accepted event")
	}
	raw, _ := json.Marshal(evs[len(evs)-1].Data)
	var payload struct {
		CustomerCode string `json:"customer_code"`
	}
	_ = json.Unmarshal(raw, &payload)
	return payload.CustomerCode
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestDeliveryFlowOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "o1", 65, 120)

	if w := a.do(t, http.MethodPost, "/api/drivers/d1/offers/o1/accept", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while offline, got %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/online", nil); w.Code != http.StatusOK {
		t.Fatalf("online: %d", w.Code)
	}

	list := decode[struct {
		Offers []offer.Offer `json:"offers"`
	}](t, a.do(t, http.MethodGet, "/api/drivers/d1/offers?filter=all&sort=earning", nil))
	if len(list.Offers) != 1 || list.Offers[0].ID != "o1" {
		t.Fatalf("unexpected offers: %+v", list.Offers)
	}

	w := a.do(t, http.MethodPost, "/api/drivers/d1/offers/o1/accept", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}
	accepted := decode[map[string]any](t, w)
	if _, ok := accepted["code"]; ok {
		t.Fatal("customer code leaked to driver")
	}
	if _, ok := accepted["customer_code"]; ok {
		t.Fatal("customer code leaked to driver")
	}
	if a.customerCode(t) == "" {
		t.Fatal("accepted event carries no customer code")
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d2/offers/o1/accept", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for claimed offer, got %d", w.Code)
	}

	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/arrive_pickup", nil); w.Code != http.StatusOK {
		t.Fatalf("arrive pickup: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/confirm_pickup", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without pickup photo, got %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/photos", map[string]string{"kind": "pickup", "ref": "photo://p"}); w.Code != http.StatusOK {
		t.Fatalf("photo: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/confirm_pickup", nil); w.Code != http.StatusOK {
		t.Fatalf("confirm pickup: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/confirm_pickup", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated pickup, got %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/arrive_dropoff", nil); w.Code != http.StatusOK {
		t.Fatalf("arrive dropoff: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/complete", map[string]any{"code": "0000"}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for wrong code, got %d", w.Code)
	}

	w = a.do(t, http.MethodPost, "/api/drivers/d1/delivery/complete", map[string]any{
		"code":            a.customerCode(t),
		"photo_ref":       "photo://door",
		"customer_rating": 4,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	res := decode[session.Result](t, w)
	if res.Record.Total.Amount != 65 {
		t.Fatalf("expected total 65, got %d", res.Record.Total.Amount)
	}

	if w := a.do(t, http.MethodGet, "/api/drivers/d1/delivery", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after completion, got %d", w.Code)
	}

	sum := decode[struct {
		TotalEarnings int64 `json:"total_earnings"`
		Deliveries    int   `json:"deliveries"`
	}](t, a.do(t, http.MethodGet, "/api/drivers/d1/earnings?period=week", nil))
	if sum.TotalEarnings != 65 || sum.Deliveries != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	hist := decode[struct {
		Records []json.RawMessage `json:"records"`
	}](t, a.do(t, http.MethodGet, "/api/drivers/d1/earnings/history?limit=5", nil))
	if len(hist.Records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(hist.Records))
	}
}

func TestInProgressConflict(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "o1", 65, 120)
	a.seed(t, "o2", 90, 120)
	a.do(t, http.MethodPost, "/api/drivers/d1/online", nil)
	a.do(t, http.MethodPost, "/api/drivers/d1/offers/o1/accept", nil)
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/offers/o2/accept", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/cancel", map[string]string{"reason": "vehicle issue"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/offers/o2/accept", nil); w.Code != http.StatusOK {
		t.Fatalf("accept after cancel: %d", w.Code)
	}
}

func TestBadInput(t *testing.T) {
	a := newTestAPI(t)
	tests := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodGet, "/api/drivers/d1/offers?filter=cheap", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/drivers/d1/offers?sort=color", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/drivers/d1/earnings?period=year", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/drivers/d1/earnings/history?limit=ten", nil, http.StatusBadRequest},
		{http.MethodPost, "/api/drivers/d1/delivery/complete", map[string]any{}, http.StatusBadRequest},
		{http.MethodPost, "/api/drivers/d1/delivery/photos", map[string]any{"kind": "selfie"}, http.StatusBadRequest},
		{http.MethodGet, "/api/drivers/d!1/delivery", nil, http.StatusBadRequest},
		{http.MethodPost, "/api/drivers/d1/offers/o1/decline", nil, http.StatusOK},
	}
	for _, tc := range tests {
		if w := a.do(t, tc.method, tc.path, tc.body); w.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, w.Code)
		}
	}
}

func TestCreateOffer(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]any{
		"merchant_name":     "Subway",
		"pickup_address":    "Sector 18",
		"dropoff_address":   "Sector 44",
		"estimated_earning": map[string]any{"amount": 85},
		"distance_km":       1.2,
		"estimated_minutes": 12,
		"time_remaining":    60,
	}
	w := a.do(t, http.MethodPost, "/api/offers", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if a.pool.Len() != 1 {
		t.Fatalf("expected 1 offer in pool, got %d", a.pool.Len())
	}
	got := a.pool.Snapshot()[0]
	if got.EstimatedEarning.Currency != "INR" || got.Priority != offer.PriorityMedium {
		t.Fatalf("expected defaults applied, got %+v", got)
	}

	body["id"] = string(got.ID)
	body["estimated_earning"] = map[string]any{"amount": 500}
	w = a.do(t, http.MethodPost, "/api/offers", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", w.Code)
	}
	if dup := decode[map[string]any](t, w); dup["offer_id"] != string(got.ID) {
		t.Fatalf("expected offer_id %s, got %v", got.ID, dup["offer_id"])
	}
	if a.pool.Len() != 1 || a.pool.Snapshot()[0].EstimatedEarning.Amount != 85 {
		t.Fatalf("duplicate must leave the pool unchanged, got %+v", a.pool.Snapshot())
	}
	body["id"] = "fresh"
	body["time_remaining"] = 0
	if w := a.do(t, http.MethodPost, "/api/offers", body); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for expired offer, got %d", w.Code)
	}
}

func TestLiveOffers(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "o1", 65, 120)
	a.seed(t, "o2", 90, 30)

	live := decode[struct {
		Offers []offer.Offer `json:"offers"`
		Count  int           `json:"count"`
	}](t, a.do(t, http.MethodGet, "/api/offers/live", nil))
	if live.Count != 2 || live.Offers[0].ID != "o1" || live.Offers[1].ID != "o2" {
		t.Fatalf("unexpected live offers: %+v", live)
	}

	a.pool.Remove("o1", offer.RemovedDeclined)
	live = decode[struct {
		Offers []offer.Offer `json:"offers"`
		Count  int           `json:"count"`
	}](t, a.do(t, http.MethodGet, "/api/offers/live", nil))
	if live.Count != 1 || live.Offers[0].ID != "o2" {
		t.Fatalf("expected only o2 after removal, got %+v", live)
	}
}

func TestDeliveryTimeline(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "o1", 65, 120)
	a.do(t, http.MethodPost, "/api/drivers/d1/online", nil)
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/offers/o1/accept", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}
	if w := a.do(t, http.MethodPost, "/api/drivers/d1/delivery/arrive_pickup", nil); w.Code != http.StatusOK {
		t.Fatalf("arrive pickup: %d %s", w.Code, w.Body.String())
	}

	w := a.do(t, http.MethodGet, "/api/drivers/d1/deliveries/o1/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("timeline: %d %s", w.Code, w.Body.String())
	}
	got := decode[struct {
		Events []session.AuditEvent `json:"events"`
	}](t, w)
	if len(got.Events) == 0 || got.Events[len(got.Events)-1].ToStatus != "at_pickup" {
		t.Fatalf("expected timeline ending at at_pickup, got %+v", got.Events)
	}

	if w := a.do(t, http.MethodGet, "/api/drivers/d2/deliveries/o1/events", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another driver's delivery, got %d", w.Code)
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := NewServer("127.0.0.1:0", ServerDeps{
		Sessions: session.NewService(offer.NewPool(), session.Options{}),
		Pool:     offer.NewPool(),
		Log:      log,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}
