package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdir/internal/activity"
	"orgdir/internal/store"
	"orgdir/internal/utils"
)

func TestDefaultFixture(t *testing.T) {
	f := Default()
	assert.Len(t, f.Buildings, 3)
	assert.Len(t, f.Organizations, 5)
	assert.Len(t, f.Activities, 2)
}

func TestApplyDefault(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(utils.SQLite, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	sum, err := Apply(ctx, st, Default())
	require.NoError(t, err)
	assert.Equal(t, Summary{Buildings: 3, Activities: 8, Organizations: 5}, sum)

	acts, err := st.ListActivities(ctx)
	require.NoError(t, err)
	h, err := activity.Build(acts)
	require.NoError(t, err)
	var parts int64
	for _, a := range h.Activities() {
		if a.Name == "Parts" {
			parts = a.ID
		}
	}
	assert.Equal(t, 3, h.Level(parts))

	// 重复导入为替换而非追加
	_, err = Apply(ctx, st, Default())
	require.NoError(t, err)
	orgs, err := st.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 5)
}

func TestApplyRejectsFourLevels(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(utils.SQLite, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	f, err := Parse([]byte(`
version: 1
activities:
  - name: A
    children:
      - name: B
        children:
          - name: C
            children:
              - name: D
`))
	require.NoError(t, err)
	_, err = Apply(ctx, st, f)
	var mh *activity.MalformedHierarchyError
	assert.ErrorAs(t, err, &mh)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"version":          "version: 2\n",
		"unknown building": "version: 1\norganizations:\n  - name: X\n    building: nope\n",
		"unknown activity": "version: 1\nbuildings:\n  - {key: b, address: a}\norganizations:\n  - {name: X, building: b, activities: [Ghost]}\n",
		"duplicate name":   "version: 1\nactivities:\n  - name: A\n    children:\n      - name: A\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, f.Organizations, 5)

	p := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(p, []byte("version: 1\nbuildings:\n  - {key: b, address: x, latitude: 1, longitude: 2}\n"), 0o600))
	f, err = Load(p)
	require.NoError(t, err)
	assert.Len(t, f.Buildings, 1)
}
