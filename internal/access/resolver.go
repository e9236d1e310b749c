package access

import "github.com/frahmantamala/expense-tracker/internal"

// Resolver answers admin and area questions over a permission snapshot. It
// holds the default-admin allow-list and nothing else, so every answer is a
// pure function of (email, users).
type Resolver struct {
	defaultAdmins map[string]struct{}
}

func NewResolver(adminEmails []string) *Resolver {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if normalized := internal.NormalizeEmail(email); normalized != "" {
			admins[normalized] = struct{}{}
		}
	}
	return &Resolver{defaultAdmins: admins}
}

// IsDefaultAdmin reports whether email is on the allow-list. Default admins
// hold every right regardless of what the access records say.
func (r *Resolver) IsDefaultAdmin(email string) bool {
	_, ok := r.defaultAdmins[internal.NormalizeEmail(email)]
	return ok
}

func (r *Resolver) HasAdminAccess(email string, users []AccessControlUser) bool {
	if r.IsDefaultAdmin(email) {
		return true
	}
	for i := range users {
		if users[i].Matches(email) && users[i].IsAdmin() {
			return true
		}
	}
	return false
}

// HasAreaAccess ignores the admin/entry tier of the matching record; only the
// area flag counts. No matching record means no access.
func (r *Resolver) HasAreaAccess(email string, area Area, users []AccessControlUser) bool {
	if r.IsDefaultAdmin(email) {
		return true
	}
	for i := range users {
		if users[i].Matches(email) && users[i].AreaOfRights.Has(area) {
			return true
		}
	}
	return false
}

// Rights is the effective permission summary for one e-mail.
type Rights struct {
	Email        string       `json:"email"`
	DefaultAdmin bool         `json:"defaultAdmin"`
	Admin        bool         `json:"admin"`
	Areas        AreaOfRights `json:"areaOfRights"`
}

func (r Rights) CanSeeAll() bool {
	return r.Admin || r.Areas.Any()
}

func (r *Resolver) Rights(email string, users []AccessControlUser) Rights {
	return Rights{
		Email:        internal.NormalizeEmail(email),
		DefaultAdmin: r.IsDefaultAdmin(email),
		Admin:        r.HasAdminAccess(email, users),
		Areas: AreaOfRights{
			Review:   r.HasAreaAccess(email, AreaReview, users),
			Approve:  r.HasAreaAccess(email, AreaApprove, users),
			Accounts: r.HasAreaAccess(email, AreaAccounts, users),
		},
	}
}
