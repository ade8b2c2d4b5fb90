package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricorephp/pricore/internal/config"
	"github.com/pricorephp/pricore/internal/store"
	"github.com/pricorephp/pricore/internal/store/inmemory"
)

func TestResolveRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := inmemory.New()

	repo, err := s.EnsureRepository(ctx, store.EnsureRepositoryParams{
		Org:       "acme",
		Name:      "billing",
		Provider:  "GITHUB",
		SourceURL: "https://github.com/acme/billing.git",
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Repositories: []config.RepositoryConfig{
			{
				Name:         "billing",
				Organization: "acme",
				Provider:     "github",
				URL:          "https://github.com/acme/billing.git",
			},
		},
	}

	tests := []struct {
		name         string
		repositoryID string
		sourceURL    string
		args         []string
		wantErr      bool
	}{
		{
			name: "by org and name",
			args: []string{"acme/billing"},
		},
		{
			name:         "by id",
			repositoryID: repo.ID.String(),
		},
		{
			name:      "by url",
			sourceURL: "https://github.com/acme/billing.git",
		},
		{
			name:    "unknown org and name",
			args:    []string{"acme/unknown"},
			wantErr: true,
		},
		{
			name:         "unknown id",
			repositoryID: uuid.NewString(),
			wantErr:      true,
		},
		{
			name:      "untracked url",
			sourceURL: "https://github.com/acme/other.git",
			wantErr:   true,
		},
		{
			name:    "malformed argument",
			args:    []string{"billing"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveRepository(ctx, s, cfg, tc.repositoryID, tc.sourceURL, tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, repo.ID, got.ID)
		})
	}
}
