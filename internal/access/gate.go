package access

import (
	"github.com/Kyz7/requestdesk/internal/models"
	"gorm.io/gorm"
)

// HasBusinessAccess reports whether u is an admin, the owner of the business or a
// pivot member of it.
func HasBusinessAccess(db *gorm.DB, u *models.User, businessID uint) bool {
	if u == nil || businessID == 0 {
		return false
	}
	if u.IsAdmin() {
		return true
	}

	var count int64
	db.Model(&models.Business{}).Where("id = ? AND owner_user_id = ?", businessID, u.ID).Count(&count)
	if count > 0 {
		return true
	}
	db.Model(&models.BusinessUser{}).Where("business_id = ? AND user_id = ?", businessID, u.ID).Count(&count)
	return count > 0
}

// CanManageBusiness is the owner-or-admin rule for business mutations.
func CanManageBusiness(u *models.User, b *models.Business) bool {
	if u == nil || b == nil {
		return false
	}
	return u.IsAdmin() || b.OwnerUserID == u.ID
}

func TeamIDs(db *gorm.DB, userID uint) []uint {
	ids := []uint{}
	db.Table(models.TeamUserTable).Where("user_id = ?", userID).Pluck("team_id", &ids)
	return ids
}

func IsTeamMember(db *gorm.DB, userID, teamID uint) bool {
	var count int64
	db.Table(models.TeamUserTable).Where("user_id = ? AND team_id = ?", userID, teamID).Count(&count)
	return count > 0
}

// CanAccessRequest is the gate for reading and mutating a single request and the
// comments and attachments under it. Admins pass. Clients need business access and
// must be the creator. Staff need business access and must be the assignee or a
// member of the assigned team.
func CanAccessRequest(db *gorm.DB, u *models.User, r *models.Request) bool {
	if u == nil || r == nil {
		return false
	}
	switch u.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return r.CreatedBy == u.ID && HasBusinessAccess(db, u, r.BusinessID)
	case models.RoleStaff:
		return HasBusinessAccess(db, u, r.BusinessID) && isAssigned(r, u.ID, TeamIDs(db, u.ID))
	}
	return false
}

// UnauthorizedRequests returns the ids in reqs that u may not modify in a bulk action.
// Staff are held to the same business rule as CanAccessRequest.
func UnauthorizedRequests(db *gorm.DB, u *models.User, reqs []models.Request) []uint {
	denied := []uint{}
	if u == nil {
		for _, r := range reqs {
			denied = append(denied, r.ID)
		}
		return denied
	}

	var teams []uint
	businesses := map[uint]bool{}
	if u.IsStaff() {
		teams = TeamIDs(db, u.ID)
	}
	for _, r := range reqs {
		switch u.Role {
		case models.RoleAdmin:
			continue
		case models.RoleClient:
			if r.CreatedBy == u.ID {
				continue
			}
		case models.RoleStaff:
			allowed, seen := businesses[r.BusinessID]
			if !seen {
				allowed = HasBusinessAccess(db, u, r.BusinessID)
				businesses[r.BusinessID] = allowed
			}
			if allowed && isAssigned(&r, u.ID, teams) {
				continue
			}
		}
		denied = append(denied, r.ID)
	}
	return denied
}

func isAssigned(r *models.Request, userID uint, teams []uint) bool {
	if r.AssignedUserID != nil && *r.AssignedUserID == userID {
		return true
	}
	if r.AssignedTeamID == nil {
		return false
	}
	for _, id := range teams {
		if id == *r.AssignedTeamID {
			return true
		}
	}
	return false
}

// ScopeRequests limits a request query to what u may list: clients see what they
// created, staff see what is assigned to them or their teams.
func ScopeRequests(db *gorm.DB, u *models.User) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch {
		case u == nil:
			return q.Where("1 = 0")
		case u.IsAdmin():
			return q
		case u.IsClient():
			return q.Where("requests.created_by = ?", u.ID)
		case u.IsStaff():
			teams := TeamIDs(db, u.ID)
			if len(teams) == 0 {
				return q.Where("requests.assigned_user_id = ?", u.ID)
			}
			return q.Where("requests.assigned_user_id = ? OR requests.assigned_team_id IN ?", u.ID, teams)
		}
		return q.Where("1 = 0")
	}
}

// ScopeBusinesses limits a business query to owned and member businesses for non-admins.
func ScopeBusinesses(db *gorm.DB, u *models.User) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch {
		case u == nil:
			return q.Where("1 = 0")
		case u.IsAdmin():
			return q
		}
		return q.Where(
			"businesses.owner_user_id = ? OR businesses.id IN (?)",
			u.ID,
			db.Model(&models.BusinessUser{}).Select("business_id").Where("user_id = ?", u.ID),
		)
	}
}
