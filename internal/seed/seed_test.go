package seed

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moments/internal/models"
	"moments/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_IsValidDataset(t *testing.T) {
	ds, err := Builtin()
	require.NoError(t, err)

	assert.Len(t, ds.Users, 4)
	assert.Len(t, ds.Moments, 10)
	assert.Len(t, ds.RSVPs, 4)
	assert.Len(t, ds.Follows, 4)

	snap, err := store.Load(ds, store.LoadOptions{})
	require.NoError(t, err)

	cafe, ok := snap.UserByUsername("oddfellowscafe")
	require.True(t, ok)
	assert.True(t, cafe.IsBusinessAccount)

	m, ok := snap.Moment("moment1")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 19, 0, 0, 0, time.UTC), m.Date.UTC())
	assert.Equal(t, models.MomentStatusUpcoming, m.Status)
}

func TestBuiltin_ReturnsIndependentCopies(t *testing.T) {
	a, err := Builtin()
	require.NoError(t, err)
	a.Users[0].Name = "changed"

	b, err := Builtin()
	require.NoError(t, err)
	assert.Equal(t, "Kabir Kapur", b.Users[0].Name)
}

func TestExportThenDecode_PreservesDataset(t *testing.T) {
	ds, err := Builtin()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, ds))

	back, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, back.Moments, len(ds.Moments))
	assert.Equal(t, ds.Moments[6].Title, back.Moments[6].Title)
	assert.True(t, ds.RSVPs[3].CreatedAt.Equal(back.RSVPs[3].CreatedAt))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "seed.yml")
	require.NoError(t, os.WriteFile(good, []byte(`
users:
  - id: a
    username: alice
    name: Alice
  - id: b
    username: bob
    name: Bob
follows:
  - id: f1
    follower_id: a
    followed_id: b
    created_at: 2024-02-01T08:00:00Z
`), 0o600))

	ds, err := LoadFile(good)
	require.NoError(t, err)
	assert.Len(t, ds.Users, 2)
	assert.Len(t, ds.Follows, 1)
	assert.Empty(t, ds.Moments)

	typo := filepath.Join(dir, "typo.yml")
	require.NoError(t, os.WriteFile(typo, []byte("users:\n  - id: a\n    usename: alice\n"), 0o600))
	_, err = LoadFile(typo)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestDecode_EmptyDocument(t *testing.T) {
	ds, err := Decode(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, ds.Users)
}

func TestGenerate_SatisfiesInvariants(t *testing.T) {
	opts := DefaultGenerateOptions
	opts.Seed = 42
	opts.Now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ds := Generate(opts)
	assert.Len(t, ds.Users, opts.Users)
	assert.NotEmpty(t, ds.Moments)
	assert.NotEmpty(t, ds.RSVPs)
	assert.NotEmpty(t, ds.Follows)

	_, err := store.Load(ds, store.LoadOptions{})
	require.NoError(t, err)

	businesses := 0
	for _, u := range ds.Users {
		if u.IsBusinessAccount {
			businesses++
		}
	}
	assert.Equal(t, 5, businesses)

	for _, m := range ds.Moments {
		assert.False(t, m.CreatedAt.After(opts.Now), "moment %s created in the future", m.ID)
		if m.Status == models.MomentStatusPast {
			assert.True(t, m.Date.Before(opts.Now))
		} else {
			assert.True(t, m.Date.After(opts.Now))
		}
	}
}

func TestGenerate_IsDeterministicForSeed(t *testing.T) {
	opts := DefaultGenerateOptions
	opts.Seed = 7
	opts.Now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Generate(opts)
	b := Generate(opts)
	assert.Equal(t, a, b)
}

func TestGenerate_NoUsers(t *testing.T) {
	ds := Generate(GenerateOptions{})
	assert.Empty(t, ds.Users)
	assert.Empty(t, ds.Moments)
}

func TestGenerator_OverridesApplyLast(t *testing.T) {
	g := NewGenerator(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	host := g.BuildUser(func(u *models.User) { u.Username = "host" })
	assert.Equal(t, "host", host.Username)

	m := g.BuildMoment(host, func(m *models.Moment) { m.MaxCapacity = 3 })
	assert.Equal(t, host.ID, m.HostID)
	assert.Equal(t, 3, m.MaxCapacity)

	guest := g.BuildUser()
	r := g.BuildRSVP(guest, m, func(r *models.RSVP) { r.Status = models.RSVPStatusMaybe })
	assert.Equal(t, models.RSVPStatusMaybe, r.Status)
	assert.NotEqual(t, host.ID, guest.ID)
}
