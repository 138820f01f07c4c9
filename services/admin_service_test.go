package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/services"
)

func TestAdminService_SetBanned(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(users, "buyer1", models.RoleBuyer)
	svc := services.NewAdminService(users, testLogger())

	banned, err := svc.SetBanned(context.Background(), "buyer1", true)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)

	unbanned, err := svc.SetBanned(context.Background(), "buyer1", false)
	require.NoError(t, err)
	assert.False(t, unbanned.IsBanned)
}

func TestAdminService_SetBanned_UnknownUser(t *testing.T) {
	svc := services.NewAdminService(newFakeUserRepo(), testLogger())

	_, err := svc.SetBanned(context.Background(), "ghost", true)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.From(err).Code)
}

func TestAdminService_SetBanned_AdminsProtected(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(users, "admin1", models.RoleAdmin)
	svc := services.NewAdminService(users, testLogger())

	_, err := svc.SetBanned(context.Background(), "admin1", true)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperrors.From(err).Code)
}

func TestAdminService_ListUsers(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(users, "buyer1", models.RoleBuyer)
	seedUser(users, "buyer2", models.RoleBuyer)
	seedUser(users, "seller1", models.RoleSeller)
	svc := services.NewAdminService(users, testLogger())

	page, err := svc.ListUsers(context.Background(), models.RoleBuyer, 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)

	all, err := svc.ListUsers(context.Background(), "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)

	_, err = svc.ListUsers(context.Background(), "superuser", 1, 20)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).Code)
}
