package dashboard

import (
	"context"
	"testing"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/contract"
	"notary-service/internal/domain/notification"
	"notary-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type fakeStats struct {
	failRegions bool
}

func (f fakeStats) ActiveUsersByRole(ctx context.Context, roleName string) (int64, postgres.Status) {
	return 3, postgres.StatusOK
}
func (f fakeStats) Licenses(ctx context.Context, status string) (int64, postgres.Status) {
	return 7, postgres.StatusOK
}
func (f fakeStats) PendingSubmissions(ctx context.Context) (int64, postgres.Status) {
	return 2, postgres.StatusOK
}
func (f fakeStats) ContractsByNotary(ctx context.Context, notaryID int64, status string) (int64, postgres.Status) {
	if status == "" {
		return 9, postgres.StatusOK
	}
	return 1, postgres.StatusOK
}
func (f fakeStats) Regions(ctx context.Context, table string) (int64, postgres.Status) {
	if f.failRegions {
		return 0, postgres.StatusFailed
	}
	return 4, postgres.StatusOK
}
func (f fakeStats) RecentLogins(ctx context.Context, limit int) ([]postgres.Row, postgres.Status) {
	return []postgres.Row{{"username": "admin", "ip_address": "10.0.0.1", "created_at": "2024-01-01"}}, postgres.StatusOK
}

type fakePerformance struct{ st postgres.Status }

func (f fakePerformance) Performance(ctx context.Context, period string) ([]contract.Performance, postgres.Status) {
	return nil, f.st
}

type fakeAnnouncements struct{}

func (fakeAnnouncements) AnnouncementsFor(ctx context.Context, role auth.Role, limit int) ([]notification.Announcement, postgres.Status) {
	return nil, postgres.StatusFailed
}
func (fakeAnnouncements) UnreadCount(ctx context.Context, userID int64) int64 { return 1 }

func widgetByKey(d *Dashboard, key string) (Widget, bool) {
	for _, w := range d.Widgets {
		if w.Key == key {
			return w, true
		}
	}
	return Widget{}, false
}

func TestAdminDashboardFlagsFailedWidgets(t *testing.T) {
	svc := NewDashboardService(fakeStats{failRegions: true}, fakePerformance{}, fakeAnnouncements{}, zap.NewNop())
	d := svc.Build(context.Background(), &auth.Principal{UserID: 1, Role: auth.RoleAdministrator})

	if w, ok := widgetByKey(d, "notaries"); !ok || w.Value != 3 || w.Error {
		t.Fatalf("unexpected notaries widget %+v", w)
	}
	if w, ok := widgetByKey(d, "villages"); !ok || !w.Error || w.Value != 0 {
		t.Fatalf("failed widget should be empty and flagged, got %+v", w)
	}
	if !d.AnnouncementsError {
		t.Fatal("announcement failure should be flagged")
	}
	if len(d.RecentLogins) != 1 || d.RecentLogins[0].Username != "admin" {
		t.Fatalf("unexpected recent logins %+v", d.RecentLogins)
	}
}

func TestNotaryDashboard(t *testing.T) {
	svc := NewDashboardService(fakeStats{}, fakePerformance{}, fakeAnnouncements{}, zap.NewNop())
	d := svc.Build(context.Background(), &auth.Principal{UserID: 5, Role: auth.RoleNotary})

	if d.Role != "notary" || len(d.Widgets) != 4 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if w, _ := widgetByKey(d, "contracts"); w.Value != 9 {
		t.Fatalf("unexpected contracts widget %+v", w)
	}
	if d.RecentLogins != nil {
		t.Fatal("notaries must not see the access log")
	}
}

func TestSupervisorPerformanceFailure(t *testing.T) {
	svc := NewDashboardService(fakeStats{}, fakePerformance{st: postgres.StatusFailed}, fakeAnnouncements{}, zap.NewNop())
	d := svc.Build(context.Background(), &auth.Principal{UserID: 2, Role: auth.RoleSupervisor})

	if w, ok := widgetByKey(d, "performance"); !ok || !w.Error {
		t.Fatalf("expected flagged performance widget, got %+v", d.Widgets)
	}
}
