package records_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smilestore/internal/crypto"
	"smilestore/internal/domain"
	"smilestore/internal/services/records"
	"smilestore/internal/store"
)

type recordingSyncer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSyncer) add(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	return true
}

func (r *recordingSyncer) SyncEntity(_ context.Context, t domain.EntityType, id domain.EntityID) bool {
	return r.add("entity " + t.String() + "/" + id.String())
}

func (r *recordingSyncer) SyncIndex(_ context.Context, t domain.EntityType) bool {
	return r.add("index " + t.String())
}

func (r *recordingSyncer) SyncDeletion(_ context.Context, t domain.EntityType, id domain.EntityID) bool {
	return r.add("delete " + t.String() + "/" + id.String())
}

func newService(t *testing.T) (*records.Service, *store.Store, *recordingSyncer) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, err := crypto.NewManager(key)
	require.NoError(t, err)
	s, err := store.New(memfs.New(), m)
	require.NoError(t, err)
	rs := &recordingSyncer{}
	return records.New(s, rs, zerolog.Nop()), s, rs
}

func TestCreate_AllocatesAndStampsID(t *testing.T) {
	svc, st, rs := newService(t)
	ctx := context.Background()

	id, rec, err := svc.Create(ctx, domain.Children, domain.Record{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, domain.EntityID("N001"), id)
	assert.Equal(t, "N001", rec["id"])

	id, _, err = svc.Create(ctx, domain.Children, domain.Record{"name": "Luis"})
	require.NoError(t, err)
	assert.Equal(t, domain.EntityID("N002"), id)

	got, err := st.Load(domain.Children, "N002")
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"name": "Luis", "id": "N002"}, got)

	assert.Equal(t, []string{
		"entity children/N001", "index children",
		"entity children/N002", "index children",
	}, rs.calls)
}

func TestCreate_DoesNotMutateInput(t *testing.T) {
	svc, _, _ := newService(t)
	in := domain.Record{"name": "x"}

	_, _, err := svc.Create(context.Background(), domain.Sponsors, in)
	require.NoError(t, err)
	assert.NotContains(t, in, "id")
}

func TestCreate_UsesTypePrefix(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := map[domain.EntityType]domain.EntityID{
		domain.Sponsors:       "P001",
		domain.Sponsorships:   "AP001",
		domain.Deliveries:     "E001",
		domain.GiftRequests:   "SR001",
		domain.DeliveryPoints: "PE001",
		domain.Events:         "EV001",
		domain.Administrators: "A001",
	}
	for typ, want := range cases {
		id, _, err := svc.Create(ctx, typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, want, id, typ)
	}
}

func TestCreate_InvalidType(t *testing.T) {
	svc, _, rs := newService(t)
	_, _, err := svc.Create(context.Background(), "toys", domain.Record{})
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
	assert.Empty(t, rs.calls)
}

func TestUpdate(t *testing.T) {
	svc, st, rs := newService(t)
	ctx := context.Background()

	err := svc.Update(ctx, domain.Events, "EV001", domain.Record{"title": "x"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, rs.calls)

	require.NoError(t, st.Save(domain.Events, "EV001", domain.Record{"title": "old"}))
	require.NoError(t, svc.Update(ctx, domain.Events, "EV001", domain.Record{"title": "new"}))

	got, err := svc.Get(domain.Events, "EV001")
	require.NoError(t, err)
	assert.Equal(t, "new", got["title"])
	assert.Equal(t, []string{"entity events/EV001", "index events"}, rs.calls)
}

func TestUpdate_StampsID(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, st.Save(domain.Sponsors, "P001", domain.Record{"id": "P001", "name": "old"}))

	in := domain.Record{"name": "new"}
	require.NoError(t, svc.Update(ctx, domain.Sponsors, "P001", in))
	assert.NotContains(t, in, "id")

	got, err := svc.Get(domain.Sponsors, "P001")
	require.NoError(t, err)
	assert.Equal(t, "P001", got["id"])
	assert.Equal(t, "new", got["name"])
}

func TestPut_KeepsExplicitID(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, domain.Children, "N010", domain.Record{"name": "a"}))
	got, err := svc.Get(domain.Children, "N010")
	require.NoError(t, err)
	assert.Equal(t, "N010", got["id"])
}

func TestDelete(t *testing.T) {
	svc, _, rs := newService(t)
	ctx := context.Background()

	id, _, err := svc.Create(ctx, domain.Deliveries, domain.Record{})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, domain.Deliveries, id))

	_, err = svc.Get(domain.Deliveries, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "delete deliveries/E001", rs.calls[len(rs.calls)-1])

	require.ErrorIs(t, svc.Delete(ctx, domain.Deliveries, id), domain.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, n := range []string{"a", "b", "c"} {
		_, _, err := svc.Create(ctx, domain.Children, domain.Record{"name": n})
		require.NoError(t, err)
	}

	listing, err := svc.List(domain.Children)
	require.NoError(t, err)
	require.Len(t, listing.Records, 3)
	assert.Equal(t, "c", listing.Records[2]["name"])
}

func TestNilSyncer(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, err := crypto.NewManager(key)
	require.NoError(t, err)
	s, err := store.New(memfs.New(), m)
	require.NoError(t, err)

	svc := records.New(s, nil, zerolog.Nop())
	_, _, err = svc.Create(context.Background(), domain.Children, domain.Record{})
	require.NoError(t, err)
}
