package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdir/internal/activity"
	"orgdir/internal/directory"
	"orgdir/internal/model"
	"orgdir/internal/seed"
	"orgdir/internal/store"
	"orgdir/internal/utils"
)

func newServer(t *testing.T) (*httptest.Server, map[string]int64) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(utils.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = seed.Apply(ctx, st, seed.Default())
	require.NoError(t, err)

	acts, err := st.ListActivities(ctx)
	require.NoError(t, err)
	byName := make(map[string]int64, len(acts))
	for _, a := range acts {
		byName[a.Name] = a.ID
	}

	svc := directory.NewService(st, directory.Options{})
	srv := httptest.NewServer(BuildRoutes(svc, nil))
	t.Cleanup(srv.Close)
	return srv, byName
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func names(orgs []model.Organization) []string {
	out := make([]string, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, o.Name)
	}
	return out
}

func TestOrganizationsByActivityIncludesDescendants(t *testing.T) {
	srv, acts := newServer(t)
	var orgs []model.Organization
	code := get(t, srv, "/organizations?activity_id="+itoa(acts["Food"]), &orgs)
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []string{"LLC Horns and Hooves", "Meat Trading Co", "Fresh Dairy"}, names(orgs))

	code = get(t, srv, "/organizations?activity_id="+itoa(acts["Automobiles"]), &orgs)
	require.Equal(t, http.StatusOK, code)
	assert.ElementsMatch(t, []string{"Auto Parts Store", "Universal Motors"}, names(orgs))
}

func TestUnknownActivityReturnsEmptyList(t *testing.T) {
	srv, _ := newServer(t)
	var orgs []model.Organization
	code := get(t, srv, "/organizations?activity_id=99999", &orgs)
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, orgs)
	assert.Empty(t, orgs)
}

func TestOrganizationsByNameAndGeo(t *testing.T) {
	srv, _ := newServer(t)
	var orgs []model.Organization
	require.Equal(t, http.StatusOK, get(t, srv, "/organizations?name=horns", &orgs))
	assert.Equal(t, []string{"LLC Horns and Hooves"}, names(orgs))

	require.Equal(t, http.StatusOK, get(t, srv, "/organizations?lat=55.7558&lon=37.6173&radius=100", &orgs))
	assert.ElementsMatch(t, []string{"Meat Trading Co", "Universal Motors"}, names(orgs))

	require.Equal(t, http.StatusOK, get(t, srv, "/organizations?lat_min=55.749&lat_max=55.751&lon_min=37.599&lon_max=37.601", &orgs))
	assert.ElementsMatch(t, []string{"LLC Horns and Hooves", "Fresh Dairy"}, names(orgs))

	// 半径参数不完整时忽略
	require.Equal(t, http.StatusOK, get(t, srv, "/organizations?lat=10&lon=10", &orgs))
	assert.Len(t, orgs, 5)
}

func TestInvalidInputIs400(t *testing.T) {
	srv, _ := newServer(t)
	for _, path := range []string{
		"/organizations?lat=91&lon=0&radius=10",
		"/organizations?lat_min=0&lat_max=1&lon_min=0&lon_max=181",
		"/organizations?building_id=abc",
		"/organizations?lat=x&lon=0&radius=1",
		"/activities?include_tree=maybe",
		"/buildings?lat=0&lon=-200&radius=5",
	} {
		var body map[string]string
		code := get(t, srv, path, &body)
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.NotEmpty(t, body["detail"], path)
	}
}

func TestOrganizationDetail(t *testing.T) {
	srv, _ := newServer(t)
	var all []model.Organization
	require.Equal(t, http.StatusOK, get(t, srv, "/organizations?name=Fresh", &all))
	require.Len(t, all, 1)

	var d model.OrganizationDetail
	require.Equal(t, http.StatusOK, get(t, srv, "/organizations/"+itoa(all[0].ID), &d))
	assert.Equal(t, "Fresh Dairy", d.Name)
	assert.Equal(t, "Moscow, Blukhera St. 32/1", d.Building.Address)
	assert.Equal(t, []string{"4-444-444"}, d.Phones)
	require.Len(t, d.Activities, 1)
	assert.Equal(t, "Dairy Products", d.Activities[0].Name)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/organizations/424242", &body))
	assert.Equal(t, "Organization not found", body["detail"])
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/organizations/abc", &body))
}

func TestActivitiesFlatAndTree(t *testing.T) {
	srv, _ := newServer(t)
	var flat []model.Activity
	require.Equal(t, http.StatusOK, get(t, srv, "/activities", &flat))
	assert.Len(t, flat, 8)

	var tree []activity.TreeNode
	require.Equal(t, http.StatusOK, get(t, srv, "/activities?include_tree=true", &tree))
	require.Len(t, tree, 2)
	assert.Equal(t, "Food", tree[0].Name)
	auto := tree[1]
	assert.Equal(t, "Automobiles", auto.Name)
	require.Len(t, auto.Children, 2)
	cars := auto.Children[1]
	assert.Equal(t, "Cars", cars.Name)
	assert.Len(t, cars.Children, 2)
	assert.Equal(t, 3, cars.Children[0].Level)
}

func TestBuildingsWithGeo(t *testing.T) {
	srv, _ := newServer(t)
	var bs []model.Building
	require.Equal(t, http.StatusOK, get(t, srv, "/buildings", &bs))
	assert.Len(t, bs, 3)
	require.Equal(t, http.StatusOK, get(t, srv, "/buildings?lat=55.7539&lon=37.6208&radius=50", &bs))
	require.Len(t, bs, 1)
	assert.Equal(t, "Moscow, Red Square 1", bs[0].Address)
}

func TestNearbyWithoutLocator(t *testing.T) {
	srv, _ := newServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/organizations/nearby?ip=8.8.8.8", &body))
	assert.Equal(t, "Client location unknown", body["detail"])
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
