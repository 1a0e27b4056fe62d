package printers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/db"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

func newTestStore(t *testing.T) *printers.Store {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return printers.NewStore(database)
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, &printers.Printer{
		ID:      "kitchen",
		Name:    "Kitchen Printer",
		Address: "192.168.1.50",
	})
	require.NoError(t, err)

	p, err := store.Get(ctx, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen Printer", p.Name)
	assert.Equal(t, "192.168.1.50", p.Address)

	// Omitted physical parameters come from the defaults.
	assert.Equal(t, printers.TypeEpson, p.Type)
	assert.Equal(t, printers.ConnectionNetwork, p.ConnectionType)
	assert.Equal(t, 80, p.WidthMM)
	assert.Equal(t, 48, p.CharPerLine)
	assert.Equal(t, "PC852_LATIN2", p.CharacterSet)
	assert.Equal(t, 5*time.Second, p.Timeout)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, printers.ErrNotFound)
}

func TestSaveUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &printers.Printer{
		ID:      "bar",
		Name:    "Bar",
		Address: "10.0.0.1",
	}))
	require.NoError(t, store.Save(ctx, &printers.Printer{
		ID:          "bar",
		Name:        "Bar Counter",
		Address:     "10.0.0.2",
		CharPerLine: 32,
	}))

	p, err := store.Get(ctx, "bar")
	require.NoError(t, err)
	assert.Equal(t, "Bar Counter", p.Name)
	assert.Equal(t, "10.0.0.2", p.Address)
	assert.Equal(t, 32, p.CharPerLine)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReplaceAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &printers.Printer{
		ID: "old", Name: "Old", Address: "10.0.0.1",
	}))

	err := store.ReplaceAll(ctx, []*printers.Printer{
		{ID: "a", Name: "Alpha", Address: "10.0.0.2"},
		{ID: "b", Name: "Beta", Address: "10.0.0.3", ConnectionType: printers.ConnectionUSB},
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, printers.ErrNotFound)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Beta", list[1].Name)
	assert.Equal(t, printers.ConnectionUSB, list[1].ConnectionType)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &printers.Printer{
		ID: "p1", Name: "P1", Address: "10.0.0.1",
	}))

	require.NoError(t, store.Delete(ctx, "p1"))
	assert.ErrorIs(t, store.Delete(ctx, "p1"), printers.ErrNotFound)
}

func TestListOrderedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &printers.Printer{ID: "z", Name: "Zeta", Address: "a"}))
	require.NoError(t, store.Save(ctx, &printers.Printer{ID: "a", Name: "Alpha", Address: "b"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Zeta", list[1].Name)
}
