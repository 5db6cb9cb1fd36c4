package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keys interns by content so that two calls with the same string return
// Values that compare equal under Value.Equal's pointer-identity semantics
// — exactly how the VM's own interned strings behave as table keys.
var keys = map[string]*String{}

func key(s string) Value {
	if str, ok := keys[s]; ok {
		return Obj(&str.Object)
	}
	str := &String{Chars: s, Hash: fnv1a32(s)}
	keys[s] = str
	return Obj(&str.Object)
}

func TestTableSetGet(t *testing.T) {
	var tbl Table
	a := key("a")

	isNew := tbl.Set(a, Number(1))
	assert.True(t, isNew)
	v, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, Number(1), v)

	isNew = tbl.Set(a, Number(2))
	assert.False(t, isNew)
	v, ok = tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, Number(2), v)
	assert.Equal(t, 1, tbl.Len())
}

func TestTableGetMissing(t *testing.T) {
	var tbl Table
	_, ok := tbl.Get(key("missing"))
	assert.False(t, ok)
}

func TestTableDeleteLeavesTombstoneProbeChainIntact(t *testing.T) {
	var tbl Table
	a, b, c := key("a"), key("b"), key("c")
	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))
	tbl.Set(c, Number(3))

	assert.True(t, tbl.Delete(b))
	assert.False(t, tbl.Delete(b)) // already gone

	// a and c must still be reachable despite b's tombstone sitting on a
	// probe chain between them (or anywhere in the table).
	v, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, Number(1), v)

	v, ok = tbl.Get(c)
	require.True(t, ok)
	assert.Equal(t, Number(3), v)

	assert.Equal(t, 2, tbl.Len())
}

func TestTableGrowsAndRehashesDroppingTombstones(t *testing.T) {
	var tbl Table
	// 24 inserts fill a 32-slot table exactly to its 0.75 load cap.
	for i := 0; i < 24; i++ {
		tbl.Set(key(string(rune('a'+i))), Number(float64(i)))
	}
	// tombstones still count against the load cap
	for i := 0; i < 10; i++ {
		tbl.Delete(key(string(rune('a' + i))))
	}
	// force growth/rehash
	tbl.Set(key("trigger-growth"), Number(999))

	assert.Equal(t, 15, tbl.Len())
	for i := 10; i < 24; i++ {
		v, ok := tbl.Get(key(string(rune('a' + i))))
		require.True(t, ok, "key %d should survive rehash", i)
		assert.Equal(t, Number(float64(i)), v)
	}
}

func TestFindString(t *testing.T) {
	var strings Table
	s := &String{Chars: "hello", Hash: fnv1a32("hello")}
	strings.Set(Obj(&s.Object), Null)

	found, ok := strings.FindString("hello", fnv1a32("hello"))
	require.True(t, ok)
	assert.Same(t, s, found)

	_, ok = strings.FindString("goodbye", fnv1a32("goodbye"))
	assert.False(t, ok)
}

func TestAddAll(t *testing.T) {
	var src, dst Table
	src.Set(key("a"), Number(1))
	src.Set(key("b"), Number(2))

	dst.AddAll(&src)
	assert.Equal(t, 2, dst.Len())
	v, ok := dst.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, Number(1), v)
}
