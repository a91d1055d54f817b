package strapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neomercado/api/internal/domain"
	cms "github.com/neomercado/api/internal/platform/strapi"
	"github.com/neomercado/api/internal/repositories"
)

func newOrderRepo(t *testing.T, handler http.HandlerFunc) *OrderRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := cms.NewClient(cms.ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	repo, err := NewOrderRepository(client)
	if err != nil {
		t.Fatalf("NewOrderRepository: %v", err)
	}
	return repo
}

func TestOrderRepositoryInsertAssignsDocumentID(t *testing.T) {
	repo := newOrderRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var envelope struct {
			Data map[string]any `json:"data"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &envelope); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if envelope.Data["code"] != "NM-1" || envelope.Data["externalPaymentId"] != "pay_1" {
			t.Fatalf("unexpected payload %v", envelope.Data)
		}
		io.WriteString(w, `{"data":{"id":77,"attributes":{"code":"NM-1"}}}`)
	})

	order := domain.Order{
		Code:              "NM-1",
		ExternalPaymentID: "pay_1",
		Customer:          domain.Customer{Name: "Ana", Email: "ana@example.com"},
		Status:            domain.OrderStatusPending,
	}
	if err := repo.Insert(context.Background(), &order); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if order.ID != "77" {
		t.Fatalf("expected id 77, got %q", order.ID)
	}
}

func TestOrderRepositoryFindByExternalPaymentID(t *testing.T) {
	repo := newOrderRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filters[externalPaymentId][$eq]"); got != "pay_1" {
			t.Fatalf("expected payment id filter, got %q", got)
		}
		if got := r.URL.Query().Get("pagination[pageSize]"); got != "1" {
			t.Fatalf("expected page size 1, got %q", got)
		}
		io.WriteString(w, `{"data":[{"id":5,"attributes":{"code":"NM-1","externalPaymentId":"pay_1","status":"pending"}}]}`)
	})

	order, err := repo.FindByExternalPaymentID(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("FindByExternalPaymentID: %v", err)
	}
	if order.ID != "5" || order.Code != "NM-1" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestOrderRepositoryFindByCodeNotFound(t *testing.T) {
	repo := newOrderRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"data":[]}`)
	})

	if _, err := repo.FindByCode(context.Background(), "NM-NOPE"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepositoryUpdateStatusTransition(t *testing.T) {
	var updatePayload map[string]any

	repo := newOrderRepo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"data":{"id":5,"attributes":{"code":"NM-1","status":"pending"}}}`)
		case http.MethodPut:
			var envelope struct {
				Data map[string]any `json:"data"`
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &envelope); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			updatePayload = envelope.Data
			io.WriteString(w, `{"data":{"id":5,"attributes":{"code":"NM-1","status":"paid"}}}`)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})

	updated, changed, err := repo.UpdateStatus(context.Background(), "5", domain.OrderStatusPaid, nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !changed || updated.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid transition, got changed=%v status=%q", changed, updated.Status)
	}
	if updatePayload["status"] != "paid" {
		t.Fatalf("unexpected update payload %v", updatePayload)
	}
}

func TestOrderRepositoryUpdateStatusSameStatusSkipsWrite(t *testing.T) {
	repo := newOrderRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected read only, got %s", r.Method)
		}
		io.WriteString(w, `{"data":{"id":5,"attributes":{"code":"NM-1","status":"paid"}}}`)
	})

	_, changed, err := repo.UpdateStatus(context.Background(), "5", domain.OrderStatusPaid, nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if changed {
		t.Fatal("expected same-status update to skip the write")
	}
}

func TestOrderRepositoryUpdateStatusRejectsTerminalRegression(t *testing.T) {
	repo := newOrderRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected read only, got %s", r.Method)
		}
		io.WriteString(w, `{"data":{"id":5,"attributes":{"code":"NM-1","status":"canceled"}}}`)
	})

	_, changed, err := repo.UpdateStatus(context.Background(), "5", domain.OrderStatusPaid, nil)
	if !repositories.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if changed {
		t.Fatal("expected no change on rejected transition")
	}
}

func TestOrderRepositoryUpdateStatusInvalidID(t *testing.T) {
	repo := newOrderRepo(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("unexpected request for invalid id")
	})

	if _, _, err := repo.UpdateStatus(context.Background(), "abc", domain.OrderStatusPaid, nil); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found for invalid id, got %v", err)
	}
}
