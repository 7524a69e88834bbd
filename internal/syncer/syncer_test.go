package syncer_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smilestore/internal/crypto"
	"smilestore/internal/domain"
	"smilestore/internal/replication"
	"smilestore/internal/replication/webhdfstest"
	"smilestore/internal/store"
	"smilestore/internal/syncer"
)

type call struct {
	Op     string
	Local  string
	Remote string
}

type fakeReplicator struct {
	mu        sync.Mutex
	available bool
	err       error
	deleteErr error
	calls     []call
}

func (f *fakeReplicator) IsAvailable() bool { return f.available }

func (f *fakeReplicator) ReplicateFrom(_ context.Context, _ billy.Filesystem, local, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"replicate", local, remote})
	return f.err
}

func (f *fakeReplicator) SyncDirectoryFrom(_ context.Context, fs billy.Filesystem, dir, remote string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"syncdir", dir, remote})
	if f.err != nil {
		return 0, f.err
	}
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (f *fakeReplicator) DeleteFile(_ context.Context, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"delete", "", remote})
	return f.deleteErr
}

func (f *fakeReplicator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, err := crypto.NewManager(key)
	require.NoError(t, err)
	s, err := store.New(memfs.New(), m)
	require.NoError(t, err)
	return s
}

func ops(m *syncer.Metrics, op, result string) float64 {
	return testutil.ToFloat64(m.Operations.WithLabelValues(op, result))
}

func TestDisabled_NoReplicatorCalls(t *testing.T) {
	s := newStore(t)
	repl := &fakeReplicator{available: true}
	o := syncer.New(false, s, repl)
	ctx := context.Background()

	assert.False(t, o.Active())
	assert.False(t, o.SyncEntity(ctx, domain.Children, "N001"))
	assert.False(t, o.SyncIndex(ctx, domain.Children))
	assert.Zero(t, o.SyncAllEntities(ctx, domain.Children))
	assert.False(t, o.SyncDeletion(ctx, domain.Children, "N001"))
	assert.Empty(t, o.SyncAll(ctx))

	assert.Empty(t, repl.Calls())
	assert.Equal(t, float64(1), ops(o.Metrics(), "entity", "skipped"))
}

func TestUnavailable_NoReplicatorCalls(t *testing.T) {
	s := newStore(t)
	repl := &fakeReplicator{available: false}
	o := syncer.New(true, s, repl)

	assert.False(t, o.SyncEntity(context.Background(), domain.Children, "N001"))
	assert.Empty(t, repl.Calls())
}

func TestNilReplicator(t *testing.T) {
	o := syncer.New(true, newStore(t), nil)
	assert.False(t, o.Active())
	assert.False(t, o.SyncIndex(context.Background(), domain.Sponsors))
}

func TestSyncEntity(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(domain.Children, "N001", domain.Record{"name": "a"}))
	repl := &fakeReplicator{available: true}
	o := syncer.New(true, s, repl)

	assert.True(t, o.SyncEntity(context.Background(), domain.Children, "N001"))
	assert.Equal(t, []call{{"replicate", "children/N001.blob", "children/N001.blob"}}, repl.Calls())
	assert.Equal(t, float64(1), ops(o.Metrics(), "entity", "ok"))
	assert.Equal(t, float64(1), testutil.ToFloat64(o.Metrics().Files))
}

func TestSyncEntity_FailureIsSwallowed(t *testing.T) {
	s := newStore(t)
	repl := &fakeReplicator{available: true, err: errors.New("boom")}
	o := syncer.New(true, s, repl)

	assert.False(t, o.SyncEntity(context.Background(), domain.Children, "N001"))
	assert.Equal(t, float64(1), ops(o.Metrics(), "entity", "failed"))
	assert.Zero(t, testutil.ToFloat64(o.Metrics().Files))
}

func TestSyncEntity_InvalidType(t *testing.T) {
	repl := &fakeReplicator{available: true}
	o := syncer.New(true, newStore(t), repl)

	assert.False(t, o.SyncEntity(context.Background(), "bogus", "X001"))
	assert.Empty(t, repl.Calls())
}

func TestSyncIndex(t *testing.T) {
	repl := &fakeReplicator{available: true}
	o := syncer.New(true, newStore(t), repl)

	assert.True(t, o.SyncIndex(context.Background(), domain.Sponsorships))
	assert.Equal(t, []call{{"replicate", "sponsorships/index.blob", "sponsorships/index.blob"}}, repl.Calls())
}

func TestSyncAll(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(domain.Children, "N001", domain.Record{}))
	require.NoError(t, s.Save(domain.Children, "N002", domain.Record{}))
	repl := &fakeReplicator{available: true}
	reg := prometheus.NewRegistry()
	o := syncer.New(true, s, repl, syncer.WithMetrics(syncer.NewMetrics(reg)))

	got := o.SyncAll(context.Background())
	require.Len(t, got, len(domain.EntityTypes()))
	assert.Equal(t, 3, got[domain.Children])
	assert.Equal(t, 1, got[domain.Sponsors])
	assert.Equal(t, float64(len(domain.EntityTypes())), ops(o.Metrics(), "all_entities", "ok"))

	n, err := testutil.GatherAndCount(reg, "smilestore_sync_files_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncAll_InactiveReturnsEmpty(t *testing.T) {
	repl := &fakeReplicator{available: false}
	o := syncer.New(true, newStore(t), repl)

	got := o.SyncAll(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, repl.Calls())
}

func TestSyncAllEntities_SkipsLeftoverTempFiles(t *testing.T) {
	fake := webhdfstest.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, err := crypto.NewManager(key)
	require.NoError(t, err)
	fs := memfs.New()
	s, err := store.New(fs, m)
	require.NoError(t, err)
	require.NoError(t, s.Save(domain.Children, "N001", domain.Record{"name": "a"}))
	require.NoError(t, util.WriteFile(fs, "children/N002.blob.tmp-123", []byte("partial"), 0o600))

	repl := replication.New(context.Background(), replication.Config{
		Enabled:     true,
		NamenodeURL: srv.URL,
		Local:       fs,
	})
	o := syncer.New(true, s, repl)

	assert.Equal(t, 2, o.SyncAllEntities(context.Background(), domain.Children))
	assert.Equal(t, []string{
		"/smilelink/data/children/N001.blob",
		"/smilelink/data/children/index.blob",
	}, fake.Paths())
}

func TestSyncDeletion(t *testing.T) {
	repl := &fakeReplicator{available: true}
	o := syncer.New(true, newStore(t), repl)

	assert.True(t, o.SyncDeletion(context.Background(), domain.Events, "EV001"))
	assert.Equal(t, []call{
		{"delete", "", "events/EV001.blob"},
		{"replicate", "events/index.blob", "events/index.blob"},
	}, repl.Calls())
}

func TestSyncDeletion_RemoteAlreadyGone(t *testing.T) {
	repl := &fakeReplicator{available: true, deleteErr: domain.ErrNotFound}
	o := syncer.New(true, newStore(t), repl)

	assert.True(t, o.SyncDeletion(context.Background(), domain.Events, "EV001"))
}

func TestSyncDeletion_RemoteFailure(t *testing.T) {
	repl := &fakeReplicator{available: true, deleteErr: errors.New("namenode down")}
	o := syncer.New(true, newStore(t), repl)

	assert.False(t, o.SyncDeletion(context.Background(), domain.Events, "EV001"))
	assert.Len(t, repl.Calls(), 1)
}

func TestEndToEnd_WebHDFS(t *testing.T) {
	fake := webhdfstest.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newStore(t)
	repl := replication.New(context.Background(), replication.Config{
		Enabled:     true,
		NamenodeURL: srv.URL,
		Root:        "/smilelink/data",
		Factor:      2,
	})
	require.True(t, repl.IsAvailable())
	o := syncer.New(true, s, repl)
	ctx := context.Background()

	require.NoError(t, s.Save(domain.Children, "N001", domain.Record{"name": "a"}))
	assert.True(t, o.SyncEntity(ctx, domain.Children, "N001"))
	assert.True(t, o.SyncIndex(ctx, domain.Children))

	f, ok := fake.File("/smilelink/data/children/N001.blob")
	require.True(t, ok)
	assert.Equal(t, 2, f.Replication)

	var rec domain.Record
	m, err := crypto.NewManager(crypto.Key{})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Decrypt(f.Data, &rec), domain.ErrAuthentication, "remote copy stays encrypted")

	require.NoError(t, s.Delete(domain.Children, "N001"))
	assert.True(t, o.SyncDeletion(ctx, domain.Children, "N001"))
	_, ok = fake.File("/smilelink/data/children/N001.blob")
	assert.False(t, ok)
	_, ok = fake.File("/smilelink/data/children/index.blob")
	assert.True(t, ok)
}
