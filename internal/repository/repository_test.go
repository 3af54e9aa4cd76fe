package repository

import (
	"testing"

	"github.com/ralt/bulk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkg(version, desc string) *models.Package {
	return &models.Package{Name: "hello", Version: version, Architecture: "amd64", Description: desc}
}

func TestInsertConflictPolicies(t *testing.T) {
	existing := pkg("1.0", "old")
	incoming := pkg("1.0", "new")
	id := existing.Identity()

	tests := []struct {
		name    string
		policy  models.ConflictResolution
		wantErr bool
		stored  bool
		want    string
	}{
		{"error", models.ConflictError, true, false, "old"},
		{"keep", models.ConflictKeep, false, false, "old"},
		{"replace", models.ConflictReplace, false, true, "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Entries
			_, err := e.Insert(existing, models.ConflictError)
			require.NoError(t, err)

			stored, err := e.Insert(incoming, tt.policy)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, models.IsType(err, models.ErrConflict))
				assert.Contains(t, err.Error(), id)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.stored, stored)

			got, ok := e.Get(id)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Description)
			assert.Equal(t, 1, e.Len())
		})
	}
}

func TestPackagesKeepsInsertionOrder(t *testing.T) {
	var e Entries
	for _, v := range []string{"3.0", "1.0", "2.0"} {
		_, err := e.Insert(pkg(v, ""), models.ConflictError)
		require.NoError(t, err)
	}
	_, err := e.Insert(pkg("1.0", "replaced"), models.ConflictReplace)
	require.NoError(t, err)

	var versions []string
	for _, p := range e.Packages() {
		versions = append(versions, p.Version)
	}
	assert.Equal(t, []string{"3.0", "1.0", "2.0"}, versions)
	assert.Equal(t, "replaced", e.Packages()[1].Description)
}
