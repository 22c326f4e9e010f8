package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDropsBlankRows(t *testing.T) {
	rows := []Row{
		{"a": 1.0, "b": "x"},
		{"a": nil, "b": ""},
		{},
		{"a": 2.0, "b": nil},
	}
	ds, err := New("sales.csv", []string{"a", "b"}, rows)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, ds.Shape())
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
}

func TestNewNoRowsHasNoColumns(t *testing.T) {
	ds, err := New("empty.csv", []string{"a", "b"}, []Row{{"a": "", "b": nil}})
	require.NoError(t, err)
	assert.Empty(t, ds.Columns)
	assert.Equal(t, [2]int{0, 0}, ds.Shape())
}

func TestNewRequiresName(t *testing.T) {
	_, err := New("  ", nil, nil)
	require.Error(t, err)
}

func TestToNumber(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{12.5, 12.5, true},
		{7, 7, true},
		{true, 1, true},
		{false, 0, true},
		{" 42 ", 42, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{ts, float64(ts.UnixMilli()), true},
	}
	for _, c := range cases {
		got, ok := ToNumber(c.in)
		assert.Equal(t, c.ok, ok, "ToNumber(%v)", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "ToNumber(%v)", c.in)
		}
	}
}

func TestFormatAndTypeTag(t *testing.T) {
	assert.Equal(t, "null", Format(nil))
	assert.Equal(t, "3.5", Format(3.5))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "north", Format("north"))

	assert.Equal(t, "number", TypeTag(1.0))
	assert.Equal(t, "boolean", TypeTag(false))
	assert.Equal(t, "date", TypeTag(time.Now()))
	assert.Equal(t, "string", TypeTag("1.0"))
}

func TestSetOrderAndReplace(t *testing.T) {
	a, _ := New("a.csv", []string{"x"}, []Row{{"x": 1.0}})
	b, _ := New("b.csv", []string{"x"}, []Row{{"x": 2.0}})
	a2, _ := New("a.csv", []string{"x"}, []Row{{"x": 3.0}, {"x": 4.0}})

	s := NewSet(a, b)
	s.Add(a2)
	assert.Equal(t, []string{"a.csv", "b.csv"}, s.Names())
	got, ok := s.Lookup("a.csv")
	require.True(t, ok)
	assert.Equal(t, 2, got.Shape()[0])

	assert.True(t, s.Remove("a.csv"))
	assert.False(t, s.Remove("a.csv"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"b.csv"}, s.Names())
}
