package model

// Role is the access-control category of a session.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// Page identifiers. Every navigable console page has one stable id; the
// permission table below is keyed on these.
const (
	PageDashboard       = "dashboard"
	PageThreat          = "threat"
	PageIntelligence    = "intelligence"
	PageRules           = "rules"
	PageLogs            = "logs"
	PageRecommendations = "recommendations"
	PageProfile         = "profile"
	PageUsers           = "users"
	PageSettings        = "settings"
	PageLearning        = "learning"
	PageSyslog          = "syslog"
)

// Permission describes what a role may see and do.
type Permission struct {
	// Pages is the ordered set of page ids the role may open.
	Pages []string
	// ManageRules grants rule add/edit/delete/toggle and recommendation
	// application.
	ManageRules bool
}

// rolePermissions is the canonical role→permission table. Roles absent from
// the table have zero permission.
var rolePermissions = map[Role]Permission{
	RoleAdmin: {
		Pages: []string{
			PageDashboard, PageThreat, PageIntelligence, PageRules, PageLogs,
			PageRecommendations, PageSyslog, PageProfile, PageUsers,
			PageSettings, PageLearning,
		},
		ManageRules: true,
	},
	RoleAnalyst: {
		Pages: []string{
			PageDashboard, PageThreat, PageIntelligence, PageRules, PageLogs,
			PageRecommendations, PageSyslog, PageProfile,
		},
		ManageRules: true,
	},
	RoleUser: {
		Pages: []string{
			PageDashboard, PageThreat, PageIntelligence, PageLogs,
			PageRecommendations, PageProfile,
		},
		ManageRules: false,
	},
	RoleViewer: {
		Pages: []string{
			PageDashboard, PageThreat, PageIntelligence, PageLogs, PageProfile,
		},
		ManageRules: false,
	},
}

// PermissionFor returns the permission profile of role. An unknown role
// yields the zero Permission: no pages, no rule management.
func PermissionFor(role Role) Permission {
	return rolePermissions[role]
}

// Allows reports whether the permission covers the given page id.
func (p Permission) Allows(page string) bool {
	for _, id := range p.Pages {
		if id == page {
			return true
		}
	}
	return false
}
