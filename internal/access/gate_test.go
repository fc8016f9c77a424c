package access_test

import (
	"testing"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	admin    *models.User
	owner    *models.User
	member   *models.User
	outsider *models.User
	staff    *models.User
	// outsideStaff sits on the team but has no pivot row for the business.
	outsideStaff *models.User
	business     *models.Business
	team         *models.Team
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	mk := func(email, role string) *models.User {
		u := &models.User{Name: email, Email: email, Role: role, Status: models.UserStatusActive}
		require.NoError(t, db.Create(u).Error)
		return u
	}

	f := &fixture{
		db:       db,
		admin:    mk("admin@test.io", models.RoleAdmin),
		owner:    mk("owner@test.io", models.RoleClient),
		member:   mk("member@test.io", models.RoleClient),
		outsider: mk("outsider@test.io", models.RoleClient),
		staff:    mk("staff@test.io", models.RoleStaff),

		outsideStaff: mk("outside-staff@test.io", models.RoleStaff),
	}

	f.business = &models.Business{OwnerUserID: f.owner.ID, Name: "Acme"}
	require.NoError(t, db.Create(f.business).Error)
	require.NoError(t, db.Create(&models.BusinessUser{BusinessID: f.business.ID, UserID: f.member.ID}).Error)
	require.NoError(t, db.Create(&models.BusinessUser{BusinessID: f.business.ID, UserID: f.staff.ID}).Error)

	f.team = &models.Team{Name: "Design"}
	require.NoError(t, db.Create(f.team).Error)
	require.NoError(t, db.Model(f.team).Association("Members").Append(f.staff, f.outsideStaff))
	return f
}

func TestHasBusinessAccess(t *testing.T) {
	f := setup(t)

	assert.True(t, access.HasBusinessAccess(f.db, f.admin, f.business.ID))
	assert.True(t, access.HasBusinessAccess(f.db, f.owner, f.business.ID))
	assert.True(t, access.HasBusinessAccess(f.db, f.member, f.business.ID))
	assert.False(t, access.HasBusinessAccess(f.db, f.outsider, f.business.ID))
	assert.True(t, access.HasBusinessAccess(f.db, f.staff, f.business.ID))
	assert.False(t, access.HasBusinessAccess(f.db, f.outsideStaff, f.business.ID))
	assert.False(t, access.HasBusinessAccess(f.db, nil, f.business.ID))

	assert.True(t, access.CanManageBusiness(f.owner, f.business))
	assert.False(t, access.CanManageBusiness(f.member, f.business))
}

func TestCanAccessRequest(t *testing.T) {
	f := setup(t)
	teamID := f.team.ID

	byOwner := &models.Request{ID: 1, BusinessID: f.business.ID, CreatedBy: f.owner.ID}
	routed := &models.Request{ID: 2, BusinessID: f.business.ID, CreatedBy: f.owner.ID, AssignedTeamID: &teamID}
	assigned := &models.Request{ID: 3, BusinessID: f.business.ID, CreatedBy: f.owner.ID, AssignedUserID: &f.staff.ID}

	t.Run("Success - Admin bypasses", func(t *testing.T) {
		assert.True(t, access.CanAccessRequest(f.db, f.admin, byOwner))
	})

	t.Run("Success - Client creator with business access", func(t *testing.T) {
		assert.True(t, access.CanAccessRequest(f.db, f.owner, byOwner))
	})

	t.Run("Error - Member who is not the creator", func(t *testing.T) {
		assert.True(t, access.HasBusinessAccess(f.db, f.member, f.business.ID))
		assert.False(t, access.CanAccessRequest(f.db, f.member, byOwner))
	})

	t.Run("Success - Staff through team or assignment", func(t *testing.T) {
		assert.False(t, access.CanAccessRequest(f.db, f.staff, byOwner))
		assert.True(t, access.CanAccessRequest(f.db, f.staff, routed))
		assert.True(t, access.CanAccessRequest(f.db, f.staff, assigned))
	})

	t.Run("Error - Assigned staff without business access", func(t *testing.T) {
		direct := &models.Request{ID: 4, BusinessID: f.business.ID, CreatedBy: f.owner.ID, AssignedUserID: &f.outsideStaff.ID}
		assert.False(t, access.CanAccessRequest(f.db, f.outsideStaff, routed))
		assert.False(t, access.CanAccessRequest(f.db, f.outsideStaff, direct))
	})
}

func TestUnauthorizedRequests(t *testing.T) {
	f := setup(t)
	teamID := f.team.ID
	reqs := []models.Request{
		{ID: 10, CreatedBy: f.owner.ID, BusinessID: f.business.ID},
		{ID: 11, CreatedBy: f.member.ID, BusinessID: f.business.ID, AssignedTeamID: &teamID},
	}

	assert.Empty(t, access.UnauthorizedRequests(f.db, f.admin, reqs))
	assert.Equal(t, []uint{11}, access.UnauthorizedRequests(f.db, f.owner, reqs))
	assert.Equal(t, []uint{10}, access.UnauthorizedRequests(f.db, f.staff, reqs))
	assert.Equal(t, []uint{10, 11}, access.UnauthorizedRequests(f.db, f.outsideStaff, reqs))
	assert.Equal(t, []uint{10, 11}, access.UnauthorizedRequests(f.db, nil, reqs))
}

func TestScopes(t *testing.T) {
	f := setup(t)
	other := &models.Business{OwnerUserID: f.outsider.ID, Name: "Other"}
	require.NoError(t, f.db.Create(other).Error)

	var names []string
	f.db.Model(&models.Business{}).Scopes(access.ScopeBusinesses(f.db, f.member)).Pluck("name", &names)
	assert.Equal(t, []string{"Acme"}, names)

	names = nil
	f.db.Model(&models.Business{}).Scopes(access.ScopeBusinesses(f.db, f.admin)).Order("id").Pluck("name", &names)
	assert.Equal(t, []string{"Acme", "Other"}, names)

	rt := &models.RequestType{Name: "Design", SLAHours: 24}
	require.NoError(t, f.db.Create(rt).Error)
	teamID := f.team.ID
	require.NoError(t, f.db.Create(&models.Request{RequestTypeID: rt.ID, BusinessID: f.business.ID, CreatedBy: f.owner.ID, Status: models.StatusNew, Priority: models.PriorityMedium}).Error)
	require.NoError(t, f.db.Create(&models.Request{RequestTypeID: rt.ID, BusinessID: f.business.ID, CreatedBy: f.member.ID, AssignedTeamID: &teamID, Status: models.StatusNew, Priority: models.PriorityMedium}).Error)

	count := func(u *models.User) int64 {
		var n int64
		f.db.Model(&models.Request{}).Scopes(access.ScopeRequests(f.db, u)).Count(&n)
		return n
	}
	assert.Equal(t, int64(2), count(f.admin))
	assert.Equal(t, int64(1), count(f.owner))
	assert.Equal(t, int64(1), count(f.staff))
	assert.Equal(t, int64(0), count(f.outsider))
}
