package inbox

import (
	"context"
	"testing"

	"tenderhub/internal/kvstore"
)

func seedWatch(t *testing.T, facade *kvstore.Facade, email, tenderID, title, lastNotified string) {
	t.Helper()
	facade.SetItem(context.Background(), "companyTenderStates_"+email,
		`{"`+tenderID+`":{"tenderId":"`+tenderID+`","title":"`+title+`","lastNotifiedStatus":"`+lastNotified+`"}}`)
}

func seedRecent(t *testing.T, facade *kvstore.Facade, key, tenderID, status string) {
	t.Helper()
	facade.SetItem(context.Background(), key,
		`[{"id":"`+tenderID+`","title":"whatever","status":"`+status+`"}]`)
}

func TestMonitorNotifiesOnStatusChange(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	seedWatch(t, facade, "vendor@acme.com", "tender-1", "Road Works", "published")
	seedRecent(t, facade, "works_recentTenders", "tender-1", "closed")

	NewMonitor(facade, svc).CheckOnce(ctx)

	messages, err := svc.Messages(ctx, "vendor@acme.com")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Type != "tender_status" {
		t.Errorf("expected tender_status message, got %s", messages[0].Type)
	}
	if messages[0].Metadata["newStatus"] != "closed" {
		t.Errorf("expected newStatus closed, got %s", messages[0].Metadata["newStatus"])
	}
}

func TestMonitorIdempotent(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	seedWatch(t, facade, "vendor@acme.com", "tender-1", "Road Works", "published")
	seedRecent(t, facade, "works_recentTenders", "tender-1", "closed")

	monitor := NewMonitor(facade, svc)
	monitor.CheckOnce(ctx)
	monitor.CheckOnce(ctx)

	messages, _ := svc.Messages(ctx, "vendor@acme.com")
	if len(messages) != 1 {
		t.Fatalf("repeat check must not duplicate: got %d messages", len(messages))
	}
}

func TestMonitorNoChangeNoMessage(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	seedWatch(t, facade, "vendor@acme.com", "tender-1", "Road Works", "published")
	seedRecent(t, facade, "works_recentTenders", "tender-1", "published")

	NewMonitor(facade, svc).CheckOnce(ctx)

	messages, _ := svc.Messages(ctx, "vendor@acme.com")
	if len(messages) != 0 {
		t.Fatalf("unchanged status must not notify: got %d messages", len(messages))
	}
}

func TestMonitorAwardedIsUrgent(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	seedWatch(t, facade, "vendor@acme.com", "tender-1", "Road Works", "evaluated")
	seedRecent(t, facade, "works_recentTenders", "tender-1", "awarded")

	NewMonitor(facade, svc).CheckOnce(ctx)

	messages, _ := svc.Messages(ctx, "vendor@acme.com")
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Category != CategoryUrgent {
		t.Errorf("awarded status must be urgent, got %s", messages[0].Category)
	}
}

func TestMonitorSkipsCorruptRecords(t *testing.T) {
	svc, facade := newTestService(t)
	ctx := context.Background()

	facade.SetItem(ctx, "companyTenderStates_bad@acme.com", "{broken")
	seedWatch(t, facade, "good@acme.com", "tender-1", "Road Works", "published")
	seedRecent(t, facade, "works_recentTenders", "tender-1", "closed")

	NewMonitor(facade, svc).CheckOnce(ctx)

	messages, _ := svc.Messages(ctx, "good@acme.com")
	if len(messages) != 1 {
		t.Fatalf("healthy record must still be processed: got %d messages", len(messages))
	}
}
