package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/repotest"
)

func TestRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.ActivityRepository { return NewRepository() })
}

func TestReturnedActivitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	project := "api"
	created, err := repo.Create(ctx, domain.Activity{Title: "Owned", Project: &project})
	require.NoError(t, err)

	*created.Project = "mutated"
	project = "mutated too"

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "api", *got.Project)
}
