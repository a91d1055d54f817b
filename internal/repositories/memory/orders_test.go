package memory

import (
	"context"
	"testing"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

func seedOrder(t *testing.T, repo *OrderRepository, order domain.Order) domain.Order {
	t.Helper()
	if err := repo.Insert(context.Background(), &order); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return order
}

func TestOrderRepositoryInsertAssignsID(t *testing.T) {
	repo := NewOrderRepository()

	first := seedOrder(t, repo, domain.Order{Code: "NM-1"})
	second := seedOrder(t, repo, domain.Order{Code: "NM-2"})

	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %q and %q", first.ID, second.ID)
	}
}

func TestOrderRepositoryFindByCode(t *testing.T) {
	repo := NewOrderRepository()
	seedOrder(t, repo, domain.Order{Code: "NM-1", Status: domain.OrderStatusPending})

	order, err := repo.FindByCode(context.Background(), "NM-1")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if order.Code != "NM-1" {
		t.Fatalf("unexpected order %+v", order)
	}

	_, err = repo.FindByCode(context.Background(), "NM-NOPE")
	if !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepositoryFindByExternalPaymentID(t *testing.T) {
	repo := NewOrderRepository()
	seedOrder(t, repo, domain.Order{Code: "NM-1", ExternalPaymentID: "pay_1"})
	seedOrder(t, repo, domain.Order{Code: "NM-2"})

	order, err := repo.FindByExternalPaymentID(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("FindByExternalPaymentID: %v", err)
	}
	if order.Code != "NM-1" {
		t.Fatalf("unexpected order %+v", order)
	}

	// An empty external id never matches, even when stored orders have none.
	if _, err := repo.FindByExternalPaymentID(context.Background(), ""); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}
}

func TestOrderRepositoryUpdateStatus(t *testing.T) {
	repo := NewOrderRepository()
	order := seedOrder(t, repo, domain.Order{Code: "NM-1", Status: domain.OrderStatusPending})

	paidAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	updated, changed, err := repo.UpdateStatus(context.Background(), order.ID, domain.OrderStatusPaid, &paidAt)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !changed {
		t.Fatal("expected transition to report changed")
	}
	if updated.Status != domain.OrderStatusPaid || updated.PaidAt == nil {
		t.Fatalf("unexpected order %+v", updated)
	}
}

func TestOrderRepositoryUpdateStatusSameStatusIsNoop(t *testing.T) {
	repo := NewOrderRepository()
	order := seedOrder(t, repo, domain.Order{Code: "NM-1", Status: domain.OrderStatusPaid})

	updated, changed, err := repo.UpdateStatus(context.Background(), order.ID, domain.OrderStatusPaid, nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if changed {
		t.Fatal("expected same-status update to be a noop")
	}
	if updated.Status != domain.OrderStatusPaid {
		t.Fatalf("unexpected order %+v", updated)
	}
}

func TestOrderRepositoryUpdateStatusRejectsIllegalTransition(t *testing.T) {
	repo := NewOrderRepository()
	order := seedOrder(t, repo, domain.Order{Code: "NM-1", Status: domain.OrderStatusPaid})

	_, changed, err := repo.UpdateStatus(context.Background(), order.ID, domain.OrderStatusCanceled, nil)
	if !repositories.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if changed {
		t.Fatal("expected no change on rejected transition")
	}
}

func TestOrderRepositoryUpdateStatusUnknownID(t *testing.T) {
	repo := NewOrderRepository()

	_, _, err := repo.UpdateStatus(context.Background(), "999", domain.OrderStatusPaid, nil)
	if !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepositoryReturnsCopies(t *testing.T) {
	repo := NewOrderRepository()
	seedOrder(t, repo, domain.Order{
		Code:   "NM-1",
		Items:  []domain.OrderItem{{ProductID: 1, Quantity: 1}},
		Status: domain.OrderStatusPending,
	})

	first, err := repo.FindByCode(context.Background(), "NM-1")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	first.Items[0].Quantity = 99

	second, err := repo.FindByCode(context.Background(), "NM-1")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if second.Items[0].Quantity != 1 {
		t.Fatal("expected stored order isolated from caller mutation")
	}
}
