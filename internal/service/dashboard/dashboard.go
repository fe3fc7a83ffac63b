// internal/service/dashboard/dashboard.go
package dashboard

import (
	"context"
	"time"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/contract"
	"notary-service/internal/domain/notification"
	"notary-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// Stats answers the counters shown on role home pages.
type Stats interface {
	ActiveUsersByRole(ctx context.Context, roleName string) (int64, postgres.Status)
	Licenses(ctx context.Context, status string) (int64, postgres.Status)
	PendingSubmissions(ctx context.Context) (int64, postgres.Status)
	ContractsByNotary(ctx context.Context, notaryID int64, status string) (int64, postgres.Status)
	Regions(ctx context.Context, table string) (int64, postgres.Status)
	RecentLogins(ctx context.Context, limit int) ([]postgres.Row, postgres.Status)
}

type Performance interface {
	Performance(ctx context.Context, period string) ([]contract.Performance, postgres.Status)
}

type Announcements interface {
	AnnouncementsFor(ctx context.Context, role auth.Role, limit int) ([]notification.Announcement, postgres.Status)
	UnreadCount(ctx context.Context, userID int64) int64
}

// Widget is a single counter. Error marks a widget whose query failed; it
// renders empty instead of failing the page.
type Widget struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value int64  `json:"value"`
	Error bool   `json:"error,omitempty"`
}

type LoginEntry struct {
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	At        string `json:"at"`
}

// Dashboard is the data behind a role home page.
type Dashboard struct {
	Role               string                      `json:"role"`
	FullName           string                      `json:"full_name"`
	Widgets            []Widget                    `json:"widgets"`
	Announcements      []notification.Announcement `json:"announcements"`
	AnnouncementsError bool                        `json:"announcements_error,omitempty"`
	RecentLogins       []LoginEntry                `json:"recent_logins,omitempty"`
	Performance        []contract.Performance      `json:"performance,omitempty"`
	UnreadCount        int64                       `json:"unread_count"`
	GeneratedAt        time.Time                   `json:"generated_at"`
}

type DashboardService struct {
	stats         Stats
	performance   Performance
	announcements Announcements
	logger        *zap.Logger
}

func NewDashboardService(stats Stats, performance Performance, announcements Announcements, logger *zap.Logger) *DashboardService {
	return &DashboardService{stats: stats, performance: performance, announcements: announcements, logger: logger}
}

// Build never fails: each widget carries its own error flag.
func (s *DashboardService) Build(ctx context.Context, p *auth.Principal) *Dashboard {
	d := &Dashboard{
		Role:        p.Role.Slug(),
		FullName:    p.FullName,
		UnreadCount: s.announcements.UnreadCount(ctx, p.UserID),
		GeneratedAt: time.Now(),
	}

	switch p.Role {
	case auth.RoleAdministrator:
		d.Widgets = s.adminWidgets(ctx)
		d.RecentLogins = s.recentLogins(ctx)
	case auth.RoleSupervisor:
		d.Widgets = []Widget{
			label{"notaries", "Active notaries"}.of(s.stats.ActiveUsersByRole(ctx, auth.RoleNameNotary)),
			label{"pending_submissions", "Submissions awaiting review"}.of(s.stats.PendingSubmissions(ctx)),
			label{"active_licenses", "Active licenses"}.of(s.stats.Licenses(ctx, "active")),
		}
		perf, st := s.performance.Performance(ctx, "")
		if st.Failed() {
			d.Widgets = append(d.Widgets, Widget{Key: "performance", Label: "Performance this month", Error: true})
		}
		d.Performance = perf
	case auth.RoleNotary:
		d.Widgets = []Widget{
			label{"contracts", "My contracts"}.of(s.stats.ContractsByNotary(ctx, p.UserID, "")),
			label{"drafts", "Drafts"}.of(s.stats.ContractsByNotary(ctx, p.UserID, string(contract.StatusDraft))),
			label{"approved", "Approved"}.of(s.stats.ContractsByNotary(ctx, p.UserID, string(contract.StatusApproved))),
			label{"rejected", "Rejected"}.of(s.stats.ContractsByNotary(ctx, p.UserID, string(contract.StatusRejected))),
		}
	}

	ann, st := s.announcements.AnnouncementsFor(ctx, p.Role, 5)
	d.Announcements = ann
	d.AnnouncementsError = st.Failed()
	return d
}

func (s *DashboardService) adminWidgets(ctx context.Context) []Widget {
	return []Widget{
		label{"administrators", "Administrators"}.of(s.stats.ActiveUsersByRole(ctx, auth.RoleNameAdministrator)),
		label{"supervisors", "Heads of notary office"}.of(s.stats.ActiveUsersByRole(ctx, auth.RoleNameSupervisor)),
		label{"notaries", "Notaries"}.of(s.stats.ActiveUsersByRole(ctx, auth.RoleNameNotary)),
		label{"licenses", "Licenses"}.of(s.stats.Licenses(ctx, "")),
		label{"suspended_licenses", "Suspended licenses"}.of(s.stats.Licenses(ctx, "suspended")),
		label{"provinces", "Provinces"}.of(s.stats.Regions(ctx, postgres.TableProvinces)),
		label{"districts", "Districts"}.of(s.stats.Regions(ctx, postgres.TableDistricts)),
		label{"villages", "Villages"}.of(s.stats.Regions(ctx, postgres.TableVillages)),
	}
}

func (s *DashboardService) recentLogins(ctx context.Context) []LoginEntry {
	rows, st := s.stats.RecentLogins(ctx, 10)
	if st.Failed() {
		return nil
	}
	out := make([]LoginEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LoginEntry{
			Username:  r.String("username"),
			IPAddress: r.String("ip_address"),
			At:        r.String("created_at"),
		})
	}
	return out
}

type label struct{ key, text string }

func (l label) of(value int64, st postgres.Status) Widget {
	return Widget{Key: l.key, Label: l.text, Value: value, Error: st.Failed()}
}
