package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
)

func TestSourceCRUD(t *testing.T) {
	src := New()
	ctx := context.Background()

	id, err := src.Create(ctx, contacts.Record{FullName: "Ada Lovelace"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, src.Len())

	records, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ResourceID)

	require.NoError(t, src.Update(ctx, id, contacts.Record{FullName: "Ada King"}))
	rec, ok := src.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Ada King", rec.FullName)

	require.NoError(t, src.Delete(ctx, id))
	assert.Equal(t, 0, src.Len())
}

func TestSourceMissingResource(t *testing.T) {
	src := New()
	ctx := context.Background()

	err := src.Update(ctx, "nope", contacts.Record{})
	require.Error(t, err)
	assert.True(t, contacts.IsPermanent(err))

	err = src.Delete(ctx, "nope")
	require.Error(t, err)
	assert.True(t, contacts.IsPermanent(err))
}

func TestSourceFailureInjection(t *testing.T) {
	src := New()
	ctx := context.Background()
	boom := contacts.Transient("list", errors.New("boom"))

	src.FailWith("list", boom)
	_, err := src.List(ctx)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, src.Calls("list"))

	src.FailWith("list", nil)
	_, err = src.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, src.Calls("list"))
}

func TestSourcePerResourceFailureInjection(t *testing.T) {
	src := New()
	ctx := context.Background()
	boom := contacts.Permanent("update", errors.New("boom"))

	bad := src.Seed(contacts.Record{FullName: "Grace Hopper"})
	good := src.Seed(contacts.Record{FullName: "Ada Lovelace"})

	src.FailResourceWith("update", bad, boom)
	assert.Equal(t, boom, src.Update(ctx, bad, contacts.Record{FullName: "Grace Hopper"}))
	assert.NoError(t, src.Update(ctx, good, contacts.Record{FullName: "Ada King"}))

	src.FailResourceWith("update", bad, nil)
	assert.NoError(t, src.Update(ctx, bad, contacts.Record{FullName: "Grace Hopper"}))
}

func TestSourceSeed(t *testing.T) {
	src := New()

	id := src.Seed(contacts.Record{ResourceID: "fixed", FullName: "Grace Hopper"})
	assert.Equal(t, "fixed", id)

	generated := src.Seed(contacts.Record{FullName: "Alan Turing"})
	assert.NotEmpty(t, generated)
	assert.Equal(t, 2, src.Len())
}
