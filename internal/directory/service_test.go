package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdir/internal/activity"
	"orgdir/internal/filter"
	"orgdir/internal/geo"
	"orgdir/internal/model"
	"orgdir/internal/store"
)

type fakeReader struct {
	mu    sync.Mutex
	acts  []model.Activity
	bs    []model.Building
	orgs  []model.Organization
	fail  error
	loads int
}

func (f *fakeReader) ListBuildings(context.Context) ([]model.Building, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bs, f.fail
}

func (f *fakeReader) ListActivities(context.Context) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.acts, f.fail
}

func (f *fakeReader) ListOrganizations(context.Context) ([]model.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs, f.fail
}

func (f *fakeReader) GetOrganization(_ context.Context, id int64) (model.OrganizationDetail, error) {
	for _, o := range f.orgs {
		if o.ID == id {
			return model.OrganizationDetail{Organization: o}, nil
		}
	}
	return model.OrganizationDetail{}, store.ErrNotFound
}

func (f *fakeReader) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeReader) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func ptr(v int64) *int64 { return &v }

func newReader() *fakeReader {
	return &fakeReader{
		acts: []model.Activity{
			{ID: 1, Name: "Food"},
			{ID: 2, Name: "Meat Products", ParentID: ptr(1)},
			{ID: 3, Name: "Dairy Products", ParentID: ptr(1)},
			{ID: 4, Name: "Automobiles"},
		},
		bs: []model.Building{
			{ID: 2, Address: "Moscow, Blukhera St. 32/1", Latitude: 55.75, Longitude: 37.60},
			{ID: 1, Address: "Moscow, Lenin St. 1", Latitude: 55.7558, Longitude: 37.6173},
		},
		orgs: []model.Organization{
			{ID: 2, Name: "Meat Trading Co", BuildingID: 2, ActivityIDs: []int64{2}},
			{ID: 1, Name: "LLC Horns and Hooves", BuildingID: 1, ActivityIDs: []int64{2, 3}},
			{ID: 3, Name: "Universal Motors", BuildingID: 1, ActivityIDs: []int64{4}},
		},
	}
}

func TestSearchByActivity(t *testing.T) {
	s := NewService(newReader(), Options{})
	got, err := s.Search(context.Background(), filter.Criteria{ActivityID: ptr(1)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	_, err = s.Search(context.Background(), filter.Criteria{ActivityID: ptr(99)})
	var ua *activity.UnknownActivityError
	assert.ErrorAs(t, err, &ua)
}

func TestSnapshotReusedWithinTTL(t *testing.T) {
	r := newReader()
	s := NewService(r, Options{TTL: time.Hour})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Search(ctx, filter.Criteria{NameSubstring: "co"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.loadCount())

	s.Invalidate(ctx)
	_, err := s.Activities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.loadCount())
}

func TestSnapshotReloadedAfterTTL(t *testing.T) {
	r := newReader()
	s := NewService(r, Options{TTL: time.Millisecond})
	ctx := context.Background()
	_, err := s.Snapshot(ctx)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.loadCount())
}

func TestStaleSnapshotServedWhenReloadFails(t *testing.T) {
	r := newReader()
	s := NewService(r, Options{TTL: time.Millisecond})
	ctx := context.Background()
	first, err := s.Snapshot(ctx)
	require.NoError(t, err)

	r.setFail(errors.New("db down"))
	time.Sleep(5 * time.Millisecond)
	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	fresh := NewService(r, Options{})
	_, err = fresh.Snapshot(ctx)
	assert.EqualError(t, err, "db down")
}

func TestMalformedHierarchySurfaces(t *testing.T) {
	r := newReader()
	r.acts = append(r.acts, model.Activity{ID: 5, Name: "Loop", ParentID: ptr(5)})
	_, err := NewService(r, Options{}).Search(context.Background(), filter.Criteria{})
	var mh *activity.MalformedHierarchyError
	require.ErrorAs(t, err, &mh)
	assert.Equal(t, activity.ReasonCycle, mh.Reason)
}

func TestSearchUsesResultCache(t *testing.T) {
	r := newReader()
	cache := NewLRU(16, time.Minute)
	s := NewService(r, Options{Cache: cache})
	ctx := context.Background()
	c := filter.Criteria{BuildingID: ptr(1)}

	got, err := s.Search(ctx, c)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, cache.Len())

	cached, ok := cache.Get(ctx, c.Key())
	require.True(t, ok)
	assert.Equal(t, got, cached)

	s.Invalidate(ctx)
	assert.Equal(t, 0, cache.Len())
}

func TestInvalidGeoNotCached(t *testing.T) {
	cache := NewLRU(16, time.Minute)
	s := NewService(newReader(), Options{Cache: cache})
	_, err := s.Search(context.Background(), filter.Criteria{Geo: filter.Radius(geo.Point{Lat: 91, Lon: 0}, 10)})
	var ic *geo.InvalidCoordinateError
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, 0, cache.Len())
}

func TestBuildingsAndTree(t *testing.T) {
	s := NewService(newReader(), Options{})
	ctx := context.Background()

	bs, err := s.Buildings(ctx, filter.NoGeo())
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.Equal(t, int64(1), bs[0].ID)

	bs, err = s.Buildings(ctx, filter.Radius(geo.Point{Lat: 55.7558, Lon: 37.6173}, 100))
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, "Moscow, Lenin St. 1", bs[0].Address)

	tree, err := s.ActivityTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Food", tree[0].Name)
	assert.Len(t, tree[0].Children, 2)

	acts, err := s.Activities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, acts[1].Level)
}

func TestOrganizationNotFound(t *testing.T) {
	s := NewService(newReader(), Options{})
	_, err := s.Organization(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	d, err := s.Organization(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Universal Motors", d.Name)
}

func TestConcurrentSearchLoadsOnce(t *testing.T) {
	r := newReader()
	s := NewService(r, Options{TTL: time.Hour})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Search(context.Background(), filter.Criteria{ActivityID: ptr(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.loadCount())
}
