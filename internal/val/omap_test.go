package val_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/kjq/internal/val"
)

func TestOrderedMapInsertGetDelete(t *testing.T) {
	m := val.NewOrderedMap()
	k := val.NewString("k")
	_, ok := m.Get(k)
	assert.False(t, ok)

	m.Insert(k, val.NewNumber(1))
	v, ok := m.Get(k)
	require.True(t, ok)
	assert.Equal(t, float64(1), v.Num())

	assert.True(t, m.Delete(k))
	_, ok = m.Get(k)
	assert.False(t, ok)
	assert.False(t, m.Delete(k))
}

func TestOrderedMapOverwritePreservesPosition(t *testing.T) {
	m := val.NewOrderedMap()
	m.Insert(val.NewString("a"), val.NewNumber(1))
	m.Insert(val.NewString("b"), val.NewNumber(2))
	m.Insert(val.NewString("a"), val.NewNumber(99))

	keys := m.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "a", keys[0].Str())
	assert.Equal(t, "b", keys[1].Str())

	got, _ := m.Get(val.NewString("a"))
	assert.Equal(t, float64(99), got.Num())
}

func TestOrderedMapArbitraryKeys(t *testing.T) {
	m := val.NewOrderedMap()
	listKey := val.NewList([]*val.Val{val.NewNumber(1), val.NewNumber(2)})
	m.Insert(listKey, val.NewString("pair"))

	sameKey := val.NewList([]*val.Val{val.NewNumber(1), val.NewNumber(2)})
	v, ok := m.Get(sameKey)
	require.True(t, ok)
	assert.Equal(t, "pair", v.Str())
}

func TestOrderedMapItemsAndValues(t *testing.T) {
	m := val.NewOrderedMap()
	m.Insert(val.NewString("x"), val.NewNumber(1))
	m.Insert(val.NewString("y"), val.NewNumber(2))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "x", items[0][0].Str())
	assert.Equal(t, float64(2), items[1][1].Num())

	vals := m.Values()
	assert.Equal(t, float64(1), vals[0].Num())
}

func TestOrderedMapClone(t *testing.T) {
	m := val.NewOrderedMap()
	m.Insert(val.NewString("a"), val.NewNumber(1))
	c := m.Clone()
	c.Insert(val.NewString("b"), val.NewNumber(2))

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, c.Len())
}
