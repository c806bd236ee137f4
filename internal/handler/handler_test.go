package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mymess-backend/internal/config"
	"github.com/iliyamo/mymess-backend/internal/handler"
	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository/memory"
	"github.com/iliyamo/mymess-backend/internal/router"
	"github.com/iliyamo/mymess-backend/internal/service"
)

const (
	testSecret = "handler-test-secret"
	userEmail  = "a@user.test"
	ownerEmail = "owner@mess.test"
)

func intPtr(v int) *int { return &v }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	ids := memory.NewIdentityStore()
	ids.PutUser(model.User{Email: userEmail, Name: "Asha"})
	ids.PutUser(model.User{Email: "b@user.test", Name: "Ravi"})
	ids.PutMess(model.Mess{ID: "m1", Email: ownerEmail, MessName: "Green Mess", PricePerMeal: intPtr(100), SubscriptionPlan: intPtr(30)})

	notes := memory.NewNotificationStore()
	notifier := service.NewNotifier(service.NewInboxSink(notes, ids), time.Second, nil)
	slots := service.NewSlotService(memory.NewSlotStore(), nil, notifier, service.SlotOptions{Capacity: 2})
	ledger := service.NewLedgerService(memory.NewPaymentStore(), ids, nil)

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Slots:         handler.NewSlotHandler(slots),
		Payments:      handler.NewPaymentHandler(ledger),
		Notifications: handler.NewNotificationHandler(service.NewInbox(notes)),
		JWTSecret:     testSecret,
		Cache:         config.CacheConfig{},
	})
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func bookBody(user string) string {
	return `{"userEmail":"` + user + `","userName":"Asha","messId":"m1","messEmail":"` + ownerEmail +
		`","messName":"Green Mess","date":"2025-03-10","timeSlot":"7:00 AM - 8:00 AM","amount":45.5}`
}

func book(t *testing.T, e *echo.Echo, user string) map[string]any {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/slot/book", bookBody(user))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /slot/book = %d %s", rec.Code, rec.Body)
	}
	return decode[map[string]any](t, rec)
}

func TestSlotLifecycle(t *testing.T) {
	e := newServer(t)
	res := book(t, e, userEmail)
	id := res["id"].(string)
	if res["status"] != "PENDING" || res["paid"] != false || res["date"] != "2025-03-10" || res["amount"] != 45.5 {
		t.Fatalf("booked = %v", res)
	}

	steps := []struct {
		method, path string
		want         int
		status       string
	}{
		{http.MethodPut, "/slot/confirm/" + id + "?paymentId=pay123", http.StatusConflict, ""},
		{http.MethodPut, "/slot/approve/" + id, http.StatusOK, "APPROVED"},
		{http.MethodPut, "/slot/confirm/" + id, http.StatusBadRequest, ""},
		{http.MethodPut, "/slot/confirm/" + id + "?paymentId=pay123", http.StatusOK, "CONFIRMED"},
		{http.MethodPut, "/slot/confirm/" + id + "?paymentId=pay123", http.StatusConflict, ""},
		{http.MethodPut, "/slot/cancel/" + id, http.StatusConflict, ""},
		{http.MethodPut, "/slot/complete/" + id, http.StatusOK, "COMPLETED"},
		{http.MethodPut, "/slot/approve/missing", http.StatusNotFound, ""},
	}
	for _, s := range steps {
		rec := do(t, e, s.method, s.path, "")
		if rec.Code != s.want {
			t.Fatalf("%s %s = %d %s, want %d", s.method, s.path, rec.Code, rec.Body, s.want)
		}
		if s.status == "" {
			if _, ok := decode[map[string]any](t, rec)["error"]; !ok {
				t.Fatalf("%s %s: error body missing: %s", s.method, s.path, rec.Body)
			}
			continue
		}
		if got := decode[map[string]any](t, rec)["status"]; got != s.status {
			t.Fatalf("%s %s status = %v, want %s", s.method, s.path, got, s.status)
		}
	}

	got := decode[map[string]any](t, do(t, e, http.MethodGet, "/slot/"+id, ""))
	if got["paymentId"] != "pay123" || got["paid"] != true || got["completedAt"] == nil {
		t.Fatalf("GET /slot/:id = %v", got)
	}
}

func TestBookRejectsBadInput(t *testing.T) {
	e := newServer(t)
	bodies := []string{
		`{"userEmail":"a@user.test"}`,
		strings.Replace(bookBody(userEmail), "2025-03-10", "10/03/2025", 1),
		`not json`,
	}
	for _, b := range bodies {
		if rec := do(t, e, http.MethodPost, "/slot/book", b); rec.Code != http.StatusBadRequest {
			t.Errorf("POST /slot/book %q = %d, want 400", b, rec.Code)
		}
	}
}

func TestGetMissingSlot(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/slot/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["error"]; msg != "Booking slot not found with id: nope" {
		t.Fatalf("error = %q", msg)
	}
}

func TestCancelActor(t *testing.T) {
	ownerToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": ownerEmail, "role": "OWNER"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name      string
		query     string
		headers   []string
		wantBy    string
		recipient string
	}{
		{"default user", "", nil, "USER", ownerEmail},
		{"query owner", "?by=owner", nil, "OWNER", userEmail},
		{"token owner", "", []string{"Authorization", "Bearer " + ownerToken}, "OWNER", userEmail},
		{"query wins over token", "?by=USER", []string{"Authorization", "Bearer " + ownerToken}, "USER", ownerEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(t)
			id := book(t, e, userEmail)["id"].(string)
			rec := do(t, e, http.MethodPut, "/slot/cancel/"+id+tt.query, "", tt.headers...)
			if rec.Code != http.StatusOK {
				t.Fatalf("cancel = %d %s", rec.Code, rec.Body)
			}
			if by := decode[map[string]any](t, rec)["cancelledBy"]; by != tt.wantBy {
				t.Fatalf("cancelledBy = %v, want %s", by, tt.wantBy)
			}
			inbox := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+tt.recipient, ""))
			if len(inbox) == 0 || inbox[0]["type"] != model.NotifyBookingCancelled {
				t.Fatalf("%s inbox = %v", tt.recipient, inbox)
			}
		})
	}

	e := newServer(t)
	id := book(t, e, userEmail)["id"].(string)
	if rec := do(t, e, http.MethodPut, "/slot/cancel/"+id, "", "Authorization", "Bearer forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token = %d, want 401", rec.Code)
	}
}

func TestCheckAvailabilityAndCapacity(t *testing.T) {
	e := newServer(t)
	const check = "/slot/check-availability?date=2025-03-10&timeSlot=7:00%20AM%20-%208:00%20AM&messEmail=owner@mess.test"

	if rec := do(t, e, http.MethodGet, check, ""); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "true" {
		t.Fatalf("empty slot = %d %s", rec.Code, rec.Body)
	}
	for _, u := range []string{"a@user.test", "b@user.test"} {
		id := book(t, e, u)["id"].(string)
		if rec := do(t, e, http.MethodPut, "/slot/approve/"+id, ""); rec.Code != http.StatusOK {
			t.Fatalf("approve = %d", rec.Code)
		}
	}
	if rec := do(t, e, http.MethodGet, check, ""); strings.TrimSpace(rec.Body.String()) != "false" {
		t.Fatalf("full slot = %s", rec.Body)
	}
	if rec := do(t, e, http.MethodPost, "/slot/book", bookBody("c@user.test")); rec.Code != http.StatusConflict {
		t.Fatalf("booking a full slot = %d, want 409", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/slot/check-availability?date=2025-03-10", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing params = %d, want 400", rec.Code)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	e := newServer(t)
	id := book(t, e, userEmail)["id"].(string)

	rec := do(t, e, http.MethodPut, "/slot/"+id, `{"timeSlot":"1:00 PM - 2:00 PM"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body)
	}
	got := decode[map[string]any](t, rec)
	if got["timeSlot"] != "1:00 PM - 2:00 PM" || got["date"] != "2025-03-10" || got["status"] != "PENDING" {
		t.Fatalf("updated = %v", got)
	}
	if rec := do(t, e, http.MethodPut, "/slot/"+id, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty update = %d, want 400", rec.Code)
	}

	rec = do(t, e, http.MethodDelete, "/slot/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["success"] != true || body["message"] != "Booking slot deleted successfully" || body["payload"] != id {
		t.Fatalf("delete body = %v", body)
	}
	if rec := do(t, e, http.MethodDelete, "/slot/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
}

func TestListsAndPagination(t *testing.T) {
	e := newServer(t)
	for _, u := range []string{"a@user.test", "b@user.test", "c@user.test"} {
		book(t, e, u)
	}

	all := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/slot/mess/"+ownerEmail, ""))
	if len(all) != 3 {
		t.Fatalf("list = %d, want 3", len(all))
	}
	page := decode[handler.Page[map[string]any]](t, do(t, e, http.MethodGet, "/slot/mess/"+ownerEmail+"?page=1&size=2", ""))
	if len(page.Content) != 1 || page.TotalElements != 3 || page.TotalPages != 2 || !page.Last || page.Page != 1 {
		t.Fatalf("page = %+v", page)
	}
	if rec := do(t, e, http.MethodGet, "/slot/mess/"+ownerEmail+"?page=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative page = %d, want 400", rec.Code)
	}

	pending := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/slot/pending/mess/"+ownerEmail, ""))
	byDate := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/slot/date/2025-03-10/mess/"+ownerEmail, ""))
	byUser := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/slot/user/b@user.test/status/pending", ""))
	if len(pending) != 3 || len(byDate) != 3 || len(byUser) != 1 {
		t.Fatalf("pending=%d byDate=%d byUser=%d", len(pending), len(byDate), len(byUser))
	}
	if rec := do(t, e, http.MethodGet, "/slot/user/b@user.test/status/bogus", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter = %d, want 400", rec.Code)
	}
}

func TestPaymentEndpoints(t *testing.T) {
	e := newServer(t)

	rec := do(t, e, http.MethodPost, "/payment/record?userEmail=a@user.test&ownerEmail=owner@mess.test&messId=m1&amountPaid=300&remainingDues=200&paymentMethod=UPI", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("record = %d %s", rec.Code, rec.Body)
	}
	entry := decode[map[string]any](t, rec)
	if entry["totalDues"] != 500.0 || entry["status"] != "COMPLETED" || entry["paymentMethod"] != "UPI" {
		t.Fatalf("entry = %v", entry)
	}

	pending := decode[map[string]any](t, do(t, e, http.MethodGet, "/payment/pending/user/a@user.test/mess/m1", ""))
	if pending["pendingDues"] != 200.0 || pending["messId"] != "m1" || pending["userEmail"] != userEmail {
		t.Fatalf("pending = %v", pending)
	}
	fallback := decode[map[string]any](t, do(t, e, http.MethodGet, "/payment/pending/user/b@user.test/mess/m1", ""))
	if fallback["pendingDues"] != 3000.0 {
		t.Fatalf("fallback pending = %v", fallback)
	}
	total := decode[map[string]any](t, do(t, e, http.MethodGet, "/payment/total-pending/mess/m1", ""))
	if total["totalPendingDues"] != 200.0 {
		t.Fatalf("total = %v", total)
	}

	rec = do(t, e, http.MethodPost, "/payment/record?userEmail=ghost@user.test&ownerEmail=owner@mess.test&messId=m1&amountPaid=1&remainingDues=1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unknown user = %d, want 500", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["error"]; msg != "Error recording payment: User or Mess not found" {
		t.Fatalf("error = %q", msg)
	}
	if rec := do(t, e, http.MethodPost, "/payment/record?userEmail=a@user.test&ownerEmail=owner@mess.test&messId=m1&amountPaid=abc&remainingDues=1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed amount = %d, want 400", rec.Code)
	}

	list := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/payment/user/a@user.test", ""))
	if len(list) != 1 || list[0]["userName"] != "Asha" || list[0]["messName"] != "Green Mess" {
		t.Fatalf("user payments = %v", list)
	}
	today := time.Now().UTC().Format(model.DateLayout)
	ranged := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/payment/date-range?startDate="+today+"&endDate="+today, ""))
	if len(ranged) != 1 {
		t.Fatalf("date range = %v", ranged)
	}
	if rec := do(t, e, http.MethodGet, "/payment/date-range?startDate=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad range = %d, want 400", rec.Code)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	e := newServer(t)
	book(t, e, userEmail)
	book(t, e, "b@user.test")

	inbox := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+ownerEmail, ""))
	if len(inbox) != 2 || inbox[0]["senderName"] != "Ravi" || inbox[0]["read"] != false {
		t.Fatalf("owner inbox = %v", inbox)
	}
	count := decode[map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+ownerEmail+"/unread/count", ""))
	if count["unreadCount"] != 2.0 {
		t.Fatalf("count = %v", count)
	}

	id := inbox[0]["id"].(string)
	if rec := do(t, e, http.MethodPut, "/api/notifications/"+id+"/read?userEmail="+userEmail, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("mark read by stranger = %d, want 404", rec.Code)
	}
	if rec := do(t, e, http.MethodPut, "/api/notifications/"+id+"/read", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("mark read without user = %d, want 400", rec.Code)
	}
	rec := do(t, e, http.MethodPut, "/api/notifications/"+id+"/read?userEmail="+ownerEmail, "")
	if rec.Code != http.StatusOK || decode[map[string]any](t, rec)["read"] != true {
		t.Fatalf("mark read = %d %s", rec.Code, rec.Body)
	}
	unread := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+ownerEmail+"/unread", ""))
	if len(unread) != 1 {
		t.Fatalf("unread = %v", unread)
	}
	all := decode[map[string]any](t, do(t, e, http.MethodPut, "/api/notifications/user/"+ownerEmail+"/mark-all-read", ""))
	if all["updated"] != 1.0 {
		t.Fatalf("mark all = %v", all)
	}
}

func TestNotificationDelete(t *testing.T) {
	e := newServer(t)
	book(t, e, userEmail)
	book(t, e, "b@user.test")

	inbox := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+ownerEmail, ""))
	if len(inbox) != 2 {
		t.Fatalf("owner inbox = %v", inbox)
	}
	id := inbox[0]["id"].(string)

	if rec := do(t, e, http.MethodDelete, "/api/notifications/"+id, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete without user = %d, want 400", rec.Code)
	}
	if rec := do(t, e, http.MethodDelete, "/api/notifications/"+id+"?userEmail="+userEmail, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete by stranger = %d, want 404", rec.Code)
	}
	rec := do(t, e, http.MethodDelete, "/api/notifications/"+id+"?userEmail="+ownerEmail, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body)
	}
	if body := decode[map[string]any](t, rec); body["success"] != true || body["payload"] != id {
		t.Fatalf("delete body = %v", body)
	}

	all := decode[map[string]any](t, do(t, e, http.MethodDelete, "/api/notifications/user/"+ownerEmail, ""))
	if all["deleted"] != 1.0 {
		t.Fatalf("delete all = %v", all)
	}
	left := decode[[]map[string]any](t, do(t, e, http.MethodGet, "/api/notifications/user/"+ownerEmail, ""))
	if len(left) != 0 {
		t.Fatalf("owner inbox after delete all = %v", left)
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	double := func(i int) int { return i * 2 }
	tests := []struct {
		page, size int
		want       []int
		last       bool
	}{
		{0, 2, []int{2, 4}, false},
		{2, 2, []int{10}, true},
		{5, 2, []int{}, true},
		{0, 0, []int{2, 4, 6, 8, 10}, true},
	}
	for _, tt := range tests {
		p := handler.Paginate(items, tt.page, tt.size, double)
		if len(p.Content) != len(tt.want) || p.Last != tt.last || p.TotalElements != 5 {
			t.Errorf("Paginate(%d,%d) = %+v", tt.page, tt.size, p)
			continue
		}
		for i := range tt.want {
			if p.Content[i] != tt.want[i] {
				t.Errorf("Paginate(%d,%d) content = %v, want %v", tt.page, tt.size, p.Content, tt.want)
				break
			}
		}
	}
}
