package store_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smilestore/internal/crypto"
	"smilestore/internal/domain"
	"smilestore/internal/store"
)

func newCipher(t *testing.T) *crypto.Manager {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, err := crypto.NewManager(key)
	require.NoError(t, err)
	return m
}

func newStore(t *testing.T) (*store.Store, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	s, err := store.New(fs, newCipher(t))
	require.NoError(t, err)
	return s, fs
}

func child(name string) domain.Record {
	return domain.Record{"name": name, "age": float64(8), "needs": []any{"Backpack"}}
}

func TestInit_FreshBase(t *testing.T) {
	s, fs := newStore(t)

	for _, typ := range domain.EntityTypes() {
		fi, err := fs.Stat(typ.String())
		require.NoError(t, err, typ)
		assert.True(t, fi.IsDir())

		_, err = fs.Stat(typ.String() + "/index.blob")
		require.NoError(t, err, typ)

		idx, err := s.Index(typ)
		require.NoError(t, err)
		assert.Empty(t, idx)

		listing, err := s.ListAll(typ)
		require.NoError(t, err)
		assert.Empty(t, listing.Records)
		assert.Empty(t, listing.Skipped)
	}
}

func TestInit_KeepsExistingIndex(t *testing.T) {
	fs := memfs.New()
	c := newCipher(t)

	s, err := store.New(fs, c)
	require.NoError(t, err)
	require.NoError(t, s.Save(domain.Children, "N001", child("a")))

	reopened, err := store.New(fs, c)
	require.NoError(t, err)
	idx, err := reopened.Index(domain.Children)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"N001"}, idx)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, fs := newStore(t)

	require.NoError(t, s.Save(domain.Children, "N001", child("Sofía")))

	got, err := s.Load(domain.Children, "N001")
	require.NoError(t, err)
	assert.Equal(t, child("Sofía"), got)

	_, err = fs.Stat("children/N001.blob")
	require.NoError(t, err)
}

func TestSave_TwiceKeepsSingleIndexEntry(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Save(domain.Children, "N001", child("first")))
	require.NoError(t, s.Save(domain.Children, "N001", child("second")))
	require.NoError(t, s.Update(domain.Children, "N001", child("third")))

	idx, err := s.Index(domain.Children)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"N001"}, idx)

	got, err := s.Load(domain.Children, "N001")
	require.NoError(t, err)
	assert.Equal(t, "third", got["name"])
}

func TestLoad_Missing(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Load(domain.Children, "N404")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_Corrupt(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, util.WriteFile(fs, "children/N001.blob", []byte("not a blob"), 0o600))

	_, err := s.Load(domain.Children, "N001")
	require.ErrorIs(t, err, domain.ErrAuthentication)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_WrongKey(t *testing.T) {
	fs := memfs.New()
	a, err := store.New(fs, newCipher(t))
	require.NoError(t, err)
	require.NoError(t, a.Save(domain.Sponsors, "P001", domain.Record{"name": "Juan"}))

	b, err := store.New(fs, newCipher(t))
	require.NoError(t, err)
	_, err = b.Load(domain.Sponsors, "P001")
	require.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(domain.Children, "N001", child("a")))
	require.NoError(t, s.Save(domain.Children, "N002", child("b")))

	require.NoError(t, s.Delete(domain.Children, "N001"))

	_, err := s.Load(domain.Children, "N001")
	require.ErrorIs(t, err, domain.ErrNotFound)

	idx, err := s.Index(domain.Children)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"N002"}, idx)

	ok, err := s.Exists(domain.Children, "N001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_Missing(t *testing.T) {
	s, _ := newStore(t)
	err := s.Delete(domain.Children, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExists_DoesNotDecrypt(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, util.WriteFile(fs, "events/EV001.blob", []byte("garbage"), 0o600))

	ok, err := s.Exists(domain.Events, "EV001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListAll_SkipsBrokenEntries(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, s.Save(domain.Children, "N001", child("a")))
	require.NoError(t, s.Save(domain.Children, "N002", child("b")))
	require.NoError(t, s.Save(domain.Children, "N003", child("c")))

	require.NoError(t, fs.Remove("children/N002.blob"))
	require.NoError(t, util.WriteFile(fs, "children/N003.blob", []byte("{}"), 0o600))

	listing, err := s.ListAll(domain.Children)
	require.NoError(t, err)
	require.Len(t, listing.Records, 1)
	assert.Equal(t, "a", listing.Records[0]["name"])

	require.Len(t, listing.Skipped, 2)
	assert.Equal(t, domain.EntityID("N002"), listing.Skipped[0].ID)
	assert.ErrorIs(t, listing.Skipped[0].Err, domain.ErrNotFound)
	assert.Equal(t, domain.EntityID("N003"), listing.Skipped[1].ID)
	assert.ErrorIs(t, listing.Skipped[1].Err, domain.ErrAuthentication)
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name  string
		index []domain.EntityID
		want  domain.EntityID
	}{
		{"empty", nil, "N001"},
		{"sequential", []domain.EntityID{"N001", "N002"}, "N003"},
		{"non-numeric ignored", []domain.EntityID{"N001", "Nabc"}, "N002"},
		{"only non-numeric", []domain.EntityID{"Nabc"}, "N001"},
		{"gaps use max", []domain.EntityID{"N007", "N002"}, "N008"},
		{"past three digits", []domain.EntityID{"N999"}, "N1000"},
		{"other prefix ignored", []domain.EntityID{"X050", "N001"}, "N002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t)
			for _, id := range tt.index {
				require.NoError(t, s.Save(domain.Children, id, child(id.String())))
			}
			got, err := s.NextID(domain.Children, "N")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextID_ReflectsHistoricalMaximum(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Save(domain.Children, "N001", child("a")))
	require.NoError(t, s.Delete(domain.Children, "N001"))
	require.NoError(t, s.Save(domain.Children, "N002", child("b")))

	got, err := s.NextID(domain.Children, "N")
	require.NoError(t, err)
	assert.Equal(t, domain.EntityID("N003"), got)
}

func TestNextID_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(domain.Sponsorships, "AP001", domain.Record{}))

	const n = 32
	ids := make(chan domain.EntityID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.NextID(domain.Sponsorships, "AP")
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[domain.EntityID]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["AP002"])
	assert.True(t, seen[domain.FormatID("AP", n+1)])
}

func TestSave_ConcurrentSameTypeKeepsEveryIndexEntry(t *testing.T) {
	s, _ := newStore(t)

	const n = 24
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.FormatID("E", uint64(i))
			assert.NoError(t, s.Save(domain.Deliveries, id, domain.Record{"n": float64(i)}))
		}(i)
	}
	wg.Wait()

	idx, err := s.Index(domain.Deliveries)
	require.NoError(t, err)
	assert.Len(t, idx, n)
}

func TestInvalidEntityType(t *testing.T) {
	s, _ := newStore(t)
	bad := domain.EntityType("ninos")

	require.ErrorIs(t, s.Save(bad, "N001", child("a")), domain.ErrInvalidEntityType)
	_, err := s.Load(bad, "N001")
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
	_, err = s.ListAll(bad)
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
	require.ErrorIs(t, s.Delete(bad, "N001"), domain.ErrInvalidEntityType)
	_, err = s.Exists(bad, "N001")
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
	_, err = s.NextID(bad, "N")
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
}

func TestInvalidEntityID(t *testing.T) {
	s, _ := newStore(t)
	for _, id := range []domain.EntityID{"", "../escape", "a/b", "index"} {
		err := s.Save(domain.Children, id, child("a"))
		assert.ErrorIs(t, err, domain.ErrInvalidEntityID, "id %q", id)
	}
}

func TestSave_CorruptIndexFailsBeforeWriting(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, util.WriteFile(fs, "children/index.blob", []byte("junk"), 0o600))

	err := s.Save(domain.Children, "N001", child("a"))
	require.ErrorIs(t, err, domain.ErrAuthentication)

	ok, err := s.Exists(domain.Children, "N001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReindex_RepairsDrift(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, s.Save(domain.Children, "N002", child("b")))
	require.NoError(t, s.Save(domain.Children, "N001", child("a")))
	require.NoError(t, s.Save(domain.Children, "N003", child("c")))

	// Drift: one indexed file vanished, and the index itself got clobbered.
	require.NoError(t, fs.Remove("children/N003.blob"))
	require.NoError(t, util.WriteFile(fs, "children/index.blob", []byte("junk"), 0o600))

	idx, err := s.Reindex(domain.Children)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"N001", "N002"}, idx)

	listing, err := s.ListAll(domain.Children)
	require.NoError(t, err)
	assert.Len(t, listing.Records, 2)
	assert.Empty(t, listing.Skipped)
}

func TestReindex_KeepsExistingOrder(t *testing.T) {
	s, fs := newStore(t)
	require.NoError(t, s.Save(domain.Events, "EV002", domain.Record{}))
	require.NoError(t, s.Save(domain.Events, "EV001", domain.Record{}))

	// A blob written behind the store's back.
	data, err := util.ReadFile(fs, "events/EV001.blob")
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, "events/EV000.blob", data, 0o600))

	idx, err := s.Reindex(domain.Events)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"EV002", "EV001", "EV000"}, idx)
}

func TestPaths(t *testing.T) {
	s, _ := newStore(t)

	p, err := s.EntityPath(domain.DeliveryPoints, "PE004")
	require.NoError(t, err)
	assert.Equal(t, "delivery-points/PE004.blob", p)

	p, err = s.IndexPath(domain.GiftRequests)
	require.NoError(t, err)
	assert.Equal(t, "gift-requests/index.blob", p)

	_, err = s.TypeDir("nope")
	require.ErrorIs(t, err, domain.ErrInvalidEntityType)
}

func TestOSFilesystem_WithFileLocks(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(osfs.New(dir), newCipher(t))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		id, err := s.NextID(domain.Administrators, "A")
		require.NoError(t, err)
		require.NoError(t, s.Save(domain.Administrators, id, domain.Record{"user": fmt.Sprintf("admin%d", i)}))
	}

	idx, err := s.Index(domain.Administrators)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{"A001", "A002", "A003"}, idx)

	got, err := s.Load(domain.Administrators, "A002")
	require.NoError(t, err)
	assert.Equal(t, "admin2", got["user"])
}
