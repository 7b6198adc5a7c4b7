package store

import (
	"context"
	"testing"
	"time"

	"ratedesk/internal/model"
	"ratedesk/internal/rates"
)

func TestMemorySettingsLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	s, err := m.GetSettings(ctx, "c1", model.CategoryTractor)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s != rates.DefaultSettings(model.CategoryTractor) {
		t.Fatalf("unstored settings should be category defaults")
	}

	margin := 0.30
	s, err = m.UpdateSettings(ctx, "c1", model.CategoryTractor, model.SettingsPatch{TargetProfitMargin: &margin})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if s.TargetProfitMargin != 0.30 {
		t.Fatalf("patched margin = %.2f; want 0.30", s.TargetProfitMargin)
	}
	// Unpatched fields keep their defaults.
	if s.FactoringRate != rates.DefaultSettings(model.CategoryTractor).FactoringRate {
		t.Fatalf("factoring rate changed by unrelated patch")
	}

	// Other carriers and categories are untouched.
	s2, _ := m.GetSettings(ctx, "c2", model.CategoryTractor)
	if s2.TargetProfitMargin == 0.30 {
		t.Fatalf("settings leaked across carriers")
	}
	s3, _ := m.GetSettings(ctx, "c1", model.CategoryBoxTruck)
	if s3.TargetProfitMargin == 0.30 {
		t.Fatalf("settings leaked across categories")
	}

	s, err = m.ResetSettings(ctx, "c1", model.CategoryTractor)
	if err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	if s != rates.DefaultSettings(model.CategoryTractor) {
		t.Fatalf("reset should restore defaults")
	}
}

func TestMemoryVehicles(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v, err := m.CreateVehicle(ctx, "c1", model.VehicleRecord{Name: "unit 12", Profile: model.VehicleProfile{Category: model.CategoryReefer, MPG: 6.0}})
	if err != nil || v.ID == "" {
		t.Fatalf("CreateVehicle: %v id=%q", err, v.ID)
	}
	got, err := m.GetVehicle(ctx, "c1", v.ID)
	if err != nil || got.Profile.Category != model.CategoryReefer {
		t.Fatalf("GetVehicle: %v %+v", err, got)
	}
	if _, err := m.GetVehicle(ctx, "c2", v.ID); err != ErrNotFound {
		t.Fatalf("cross-carrier read = %v; want ErrNotFound", err)
	}
	if err := m.DeleteVehicle(ctx, "c1", v.ID); err != nil {
		t.Fatalf("DeleteVehicle: %v", err)
	}
	if err := m.DeleteVehicle(ctx, "c1", v.ID); err != ErrNotFound {
		t.Fatalf("double delete = %v; want ErrNotFound", err)
	}
}

func TestMemoryQuotePaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.SaveQuote(ctx, model.SavedQuote{CarrierID: "c1", CreatedAt: time.Now()}); err != nil {
			t.Fatalf("SaveQuote: %v", err)
		}
	}

	page1, next, err := m.ListQuotes(ctx, "c1", "", 2)
	if err != nil || len(page1) != 2 || next == "" {
		t.Fatalf("page1: %v len=%d next=%q", err, len(page1), next)
	}
	page2, next2, err := m.ListQuotes(ctx, "c1", next, 2)
	if err != nil || len(page2) != 2 {
		t.Fatalf("page2: %v len=%d", err, len(page2))
	}
	if page2[0].ID == page1[0].ID || page2[0].ID == page1[1].ID {
		t.Fatalf("pages overlap")
	}
	page3, next3, err := m.ListQuotes(ctx, "c1", next2, 2)
	if err != nil || len(page3) != 1 || next3 != "" {
		t.Fatalf("page3: %v len=%d next=%q", err, len(page3), next3)
	}

	if _, err := m.GetQuote(ctx, "c2", page1[0].ID); err != ErrNotFound {
		t.Fatalf("cross-carrier quote read = %v; want ErrNotFound", err)
	}
}

func TestMemorySubscriptionsAndDeliveries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{CarrierID: "c1", URL: "https://example.com/hook", Events: []string{"quote.created"}, Secret: "s"})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	subs, _ := m.GetSubscriptionsForEvent(ctx, "c1", "quote.created")
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Fatalf("event match: %+v", subs)
	}
	if subs, _ := m.GetSubscriptionsForEvent(ctx, "c1", "settings.updated"); len(subs) != 0 {
		t.Fatalf("unexpected match for unsubscribed event")
	}

	id, err := m.EnqueueWebhook(ctx, "c1", sub.ID, "quote.created", sub.URL, "s", []byte(`{}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due deliveries: %+v", due)
	}

	// Retry pushes the next attempt into the future.
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "503", 503, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	if due, _ := m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("retried delivery should not be due yet")
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	items, _, _ := m.ListWebhookDeliveries(ctx, "c1", "delivered", "", 10)
	if len(items) != 1 || items[0]["attempts"].(int) != 2 {
		t.Fatalf("delivered listing: %+v", items)
	}

	if err := m.DeleteSubscription(ctx, "c1", sub.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if err := m.DeleteSubscription(ctx, "c1", sub.ID); err != ErrNotFound {
		t.Fatalf("double delete = %v; want ErrNotFound", err)
	}
}
