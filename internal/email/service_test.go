package email

import (
	"strings"
	"testing"
)

func TestIsConfigured(t *testing.T) {
	if NewService(Config{}).IsConfigured() {
		t.Error("empty config must not report configured")
	}
	svc := NewService(Config{Host: "smtp.local", Port: "587", From: "noreply@tenderhub.gov"})
	if !svc.IsConfigured() {
		t.Error("complete config must report configured")
	}
}

func TestUnconfiguredSendFails(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendEmail([]string{"a@b.c"}, "s", "b"); err == nil {
		t.Error("expected error from unconfigured send")
	}
	if err := svc.SendHTMLEmail([]string{"a@b.c"}, "s", "<p>b</p>"); err == nil {
		t.Error("expected error from unconfigured html send")
	}
}

func TestNotificationTemplateRenders(t *testing.T) {
	var out strings.Builder
	err := notificationTemplate.Execute(&out, struct {
		Title   string
		Body    string
		Actions []struct{ Label, URL string }
	}{
		Title: "Tender Awarded",
		Body:  "Your bid won.",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out.String(), "Tender Awarded") {
		t.Error("rendered email missing title")
	}
}
