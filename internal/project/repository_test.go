package project_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/database/dbtest"
	"github.com/syncup/syncup/internal/project"
)

func TestRepository_CreateUpdateList(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := project.NewRepository(pool)
	ctx := context.Background()
	companyID := dbtest.Company(t, pool, "Acme")

	p := &project.Project{CompanyID: companyID, Name: "Apollo", Description: "moon"}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, project.StatusActive, p.Status)

	err := repo.Create(ctx, &project.Project{CompanyID: companyID, Name: "Apollo"})
	assert.ErrorIs(t, err, project.ErrDuplicateProjectName)

	archived := project.StatusArchived
	updated, err := repo.Update(ctx, companyID, p.ID, project.Update{Status: &archived})
	require.NoError(t, err)
	assert.Equal(t, project.StatusArchived, updated.Status)
	assert.Equal(t, "moon", updated.Description)

	active, err := repo.List(ctx, companyID, project.Filter{Status: project.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRepository_Assignments(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := project.NewRepository(pool)
	ctx := context.Background()
	acme := dbtest.Company(t, pool, "Acme")
	globex := dbtest.Company(t, pool, "Globex")
	projectID := dbtest.Project(t, pool, acme, "Apollo")
	dbtest.Project(t, pool, acme, "Gemini")
	userID := dbtest.User(t, pool, acme, "ana@acme.io", "member")
	outsider := dbtest.User(t, pool, globex, "bo@globex.io", "member")

	require.NoError(t, repo.Assign(ctx, acme, projectID, userID))
	require.NoError(t, repo.Assign(ctx, acme, projectID, userID))
	assert.ErrorIs(t, repo.Assign(ctx, acme, projectID, outsider), project.ErrUserNotFound)
	assert.ErrorIs(t, repo.Assign(ctx, globex, projectID, outsider), project.ErrProjectNotFound)

	members, err := repo.Members(ctx, acme, projectID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, userID, members[0].UserID)

	mine, err := repo.List(ctx, acme, project.Filter{AssignedTo: &userID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Apollo", mine[0].Name)
	assert.Equal(t, 1, mine[0].MemberCount)

	assigned, err := repo.IsAssigned(ctx, projectID, userID)
	require.NoError(t, err)
	assert.True(t, assigned)

	require.NoError(t, repo.Unassign(ctx, acme, projectID, userID))
	assert.ErrorIs(t, repo.Unassign(ctx, acme, projectID, userID), project.ErrUserNotFound)
	assert.ErrorIs(t, repo.Unassign(ctx, acme, projectID, uuid.New()), project.ErrUserNotFound)
}
