package database

import (
	"context"
	"errors"
	"testing"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestActivation(t *testing.T, service *Service, id string) *models.Activation {
	activation, err := service.CreateActivation(context.Background(), models.Activation{
		Id:      id,
		UserId:  "user1",
		Service: "tg",
		Country: "6",
		Phone:   "6281234567890",
		Price:   decimal.RequireFromString("0.35"),
	})
	if err != nil {
		t.Fatalf("CreateActivation failed: %v", err)
	}
	return activation
}

func TestCreateActivation_DefaultsToWaiting(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	activation := createTestActivation(t, service, "1001")

	if activation.Status != models.ActivationWaiting {
		t.Errorf("Expected status waiting, got %s", activation.Status)
	}
	if activation.SmsCode != nil || activation.SmsText != nil {
		t.Errorf("Expected no code or text on a new activation")
	}
	if !activation.Price.Equal(decimal.RequireFromString("0.35")) {
		t.Errorf("Expected price 0.35, got %s", activation.Price.String())
	}
}

func TestGetActivation_ScopedToUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	createTestActivation(t, service, "1001")

	_, err := service.GetActivation(context.Background(), "someone-else", "1001")
	if !errors.Is(err, store.ErrActivationNotFound) {
		t.Errorf("Expected ErrActivationNotFound, got %v", err)
	}
}

func TestUpdateActivationStatus_Completed(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestActivation(t, service, "1001")

	code := "123456"
	updated, err := service.UpdateActivationStatus(ctx, "user1", "1001", store.StatusUpdate{
		Status:  models.ActivationCompleted,
		SmsCode: &code,
	})
	if err != nil {
		t.Fatalf("UpdateActivationStatus failed: %v", err)
	}
	if updated.Status != models.ActivationCompleted {
		t.Errorf("Expected status completed, got %s", updated.Status)
	}
	if updated.SmsCode == nil || *updated.SmsCode != code {
		t.Errorf("Expected code %s, got %v", code, updated.SmsCode)
	}
	if updated.SmsText != nil {
		t.Errorf("Expected no text, got %s", *updated.SmsText)
	}
}

func TestUpdateActivationStatus_FinalStateIsSticky(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestActivation(t, service, "1001")

	if _, err := service.UpdateActivationStatus(ctx, "user1", "1001", store.StatusUpdate{
		Status: models.ActivationCancelled,
	}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	code := "999999"
	current, err := service.UpdateActivationStatus(ctx, "user1", "1001", store.StatusUpdate{
		Status:  models.ActivationCompleted,
		SmsCode: &code,
	})
	if !errors.Is(err, store.ErrActivationFinal) {
		t.Fatalf("Expected ErrActivationFinal, got %v", err)
	}
	if current == nil || current.Status != models.ActivationCancelled {
		t.Errorf("Expected stored status to remain cancelled, got %+v", current)
	}
	if current != nil && current.SmsCode != nil {
		t.Errorf("Expected no code on a cancelled activation")
	}
}

func TestListActivationsByStatus(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestActivation(t, service, "1001")
	createTestActivation(t, service, "1002")
	createTestActivation(t, service, "1003")

	if _, err := service.UpdateActivationStatus(ctx, "user1", "1002", store.StatusUpdate{
		Status: models.ActivationCancelled,
	}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	waiting, err := service.ListActivationsByStatus(ctx, models.ActivationWaiting, 10)
	if err != nil {
		t.Fatalf("ListActivationsByStatus failed: %v", err)
	}
	if len(waiting) != 2 {
		t.Fatalf("Expected 2 waiting activations, got %d", len(waiting))
	}

	all, err := service.ListUserActivations(ctx, "user1")
	if err != nil {
		t.Fatalf("ListUserActivations failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 activations for user1, got %d", len(all))
	}
}
