package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cateradmin/api/internal/auth"
	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/gateway"
	"github.com/cateradmin/api/internal/rank"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Helpers ---

func testScheme() config.Scheme {
	s, _ := config.FindScheme(config.DefaultSchemes(), "food_packages")
	return s
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *gateway.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, gateway.NewClient(srv.URL+"/", "", 2*time.Second)
}

// --- List tests ---

func TestList_Envelope(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/food_packages/list.php" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"message":"ok","data":[
			{"id":12,"name":"Mini Thali","price":"149.50","position":"2","superfast":true,"cp_type":"combo","meal_time":"lunch","veg_non_veg":"veg"},
			{"id":"13","name":"Paneer Box","price":199,"position":1,"superfast":1,"cp_type":"combo","meal_time":"lunch","veg_non_veg":"veg"}
		]}`))
	})

	items, err := client.List(context.Background(), testScheme())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "12" || first.Rank != 2 {
		t.Errorf("first item: got id=%q rank=%d", first.ID, first.Rank)
	}
	if first.Attributes["superfast"] != "1" || first.Attributes["meal_time"] != "lunch" {
		t.Errorf("attributes: got %v", first.Attributes)
	}
	display, ok := first.Payload.(gateway.Display)
	if !ok {
		t.Fatalf("payload: got %T", first.Payload)
	}
	if display.Name != "Mini Thali" || !display.Price.Equal(decimal.RequireFromString("149.5")) {
		t.Errorf("display: got %+v", display)
	}

	scheme := testScheme().Partitioning()
	if scheme.KeyOf(items[0].Attributes) != scheme.KeyOf(items[1].Attributes) {
		t.Error("bool true and number 1 should land in the same partition")
	}
}

func TestList_BareArrayAndNulls(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"position":null,"superfast":null,"price":""}]`))
	})

	items, err := client.List(context.Background(), testScheme())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Rank != 0 {
		t.Errorf("rank: got %d, want 0", items[0].Rank)
	}
	if items[0].Attributes["superfast"] != "" {
		t.Errorf("null attribute: got %q, want empty", items[0].Attributes["superfast"])
	}
}

func TestList_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":   {http.StatusInternalServerError, `{"success":false,"message":"db down"}`},
		"rejected":       {http.StatusOK, `{"success":false,"message":"not allowed"}`},
		"missing id":     {http.StatusOK, `[{"position":1}]`},
		"bad position":   {http.StatusOK, `[{"id":1,"position":"first"}]`},
		"nested field":   {http.StatusOK, `[{"id":1,"superfast":{"a":1}}]`},
		"fractional pos": {http.StatusOK, `[{"id":1,"position":1.5}]`},
		"empty response": {http.StatusOK, ``},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := client.List(context.Background(), testScheme())
			if !errors.Is(err, gateway.ErrList) {
				t.Fatalf("expected ErrList, got %v", err)
			}
		})
	}
}

func TestList_UnreadablePriceKeepsRecord(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"position":1,"price":"149"},{"id":2,"position":2,"price":"Rs. 199/-"}]`))
	})

	items, err := client.List(context.Background(), testScheme())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if p := items[0].Payload.(gateway.Display).Price; !p.Equal(decimal.RequireFromString("149")) {
		t.Errorf("item 1 price: got %s", p)
	}
	if p := items[1].Payload.(gateway.Display).Price; !p.IsZero() {
		t.Errorf("item 2 price: got %s, want 0", p)
	}
	if items[1].Rank != 2 {
		t.Errorf("item 2 rank: got %d", items[1].Rank)
	}
}

func TestList_WholeFloatPositions(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"position":2.0},{"id":2,"position":"1.00"}]`))
	})

	items, err := client.List(context.Background(), testScheme())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].Rank != 2 || items[1].Rank != 1 {
		t.Errorf("ranks: got %d and %d", items[0].Rank, items[1].Rank)
	}
}

func TestParsePosition(t *testing.T) {
	valid := map[string]int{"3": 3, "3.0": 3, "12.000": 12, "-1": -1}
	for in, want := range valid {
		got, err := gateway.ParsePosition(in)
		if err != nil || got != want {
			t.Errorf("ParsePosition(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"2.5", "first", ""} {
		if _, err := gateway.ParsePosition(in); err == nil {
			t.Errorf("ParsePosition(%q): expected error", in)
		}
	}
}

// --- Persist tests ---

func TestPersist_SendsPositionsAndToken(t *testing.T) {
	sessionID := uuid.New()
	var got []map[string]any

	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/food_packages/update_positions.php" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := auth.ValidateToken("api-secret", token)
		if err != nil {
			t.Errorf("token: %v", err)
		} else if claims.SessionID != sessionID || claims.Scheme != "food_packages" {
			t.Errorf("claims: got %+v", claims)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"success":true,"message":"Positions updated"}`))
	})
	client := gateway.NewClient(srv.URL, "api-secret", time.Second)

	items := []rank.Item{
		{ID: "12", Rank: 1, Attributes: rank.Attributes{"superfast": "1", "meal_time": "lunch"},
			Payload: gateway.Display{RawID: json.RawMessage(`12`)}},
		{ID: "x-9", Rank: 2, Attributes: rank.Attributes{"superfast": "1", "meal_time": rank.Unset}},
	}
	ctx := auth.WithSessionID(context.Background(), sessionID)
	if err := client.Persist(ctx, testScheme(), items); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["id"] != float64(12) || got[0]["position"] != float64(1) {
		t.Errorf("record 0: got %v", got[0])
	}
	if got[1]["id"] != "x-9" || got[1]["position"] != float64(2) {
		t.Errorf("record 1: got %v", got[1])
	}
	if _, ok := got[1]["meal_time"]; ok {
		t.Errorf("unset attribute sent: %v", got[1])
	}
}

func TestPersist_Rejected(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"position conflict"}`))
	})

	err := client.Persist(context.Background(), testScheme(), nil)
	if !errors.Is(err, gateway.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	var perr *gateway.PersistError
	if !errors.As(err, &perr) || perr.Message != "position conflict" {
		t.Errorf("persist error: got %+v", perr)
	}
}

func TestPersist_ServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := client.Persist(context.Background(), testScheme(), nil)
	var perr *gateway.PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if perr.Status != http.StatusBadGateway {
		t.Errorf("status: got %d", perr.Status)
	}
}

func TestPersist_NetworkError(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := client.Persist(context.Background(), testScheme(), nil)
	if !errors.Is(err, gateway.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
}

func TestPersist_EmptyOrPlainBodyIsSuccess(t *testing.T) {
	for _, body := range []string{"", "OK"} {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		if err := client.Persist(context.Background(), testScheme(), nil); err != nil {
			t.Errorf("body %q: unexpected error %v", body, err)
		}
	}
}

func TestPersist_SchemeWithoutPath(t *testing.T) {
	client := gateway.NewClient("http://127.0.0.1:1", "", time.Second)
	scheme := config.Scheme{Name: "db_only", IDField: "id", PositionField: "position"}

	if err := client.Persist(context.Background(), scheme, nil); !errors.Is(err, gateway.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
}
