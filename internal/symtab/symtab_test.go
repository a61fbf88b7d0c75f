package symtab

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_AssignsDenseSlots(t *testing.T) {
	st := New()
	a := st.Lookup("a", Defined, true)
	b := st.Lookup("b", Used, true)
	r := st.Lookup("s", RegionData|Defined, true)

	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, r)
	assert.Equal(t, 0, a.Ref)
	assert.Equal(t, 1, b.Ref)
	assert.Equal(t, 2, r.Ref)
	assert.Equal(t, 3, st.Size())
}

func TestLookup_NamespacesAreIndependent(t *testing.T) {
	st := New()
	u := st.Lookup("s", Defined, true)
	r := st.Lookup("s", RegionData, true)

	assert.NotSame(t, u, r)
	assert.Same(t, u, st.Find("s", 0))
	assert.Same(t, r, st.Find("s", RegionData))
}

func TestLookup_AddsFlagsToExisting(t *testing.T) {
	st := New()
	st.Lookup("a", Defined, true)
	l := st.Lookup("a", Used, false)

	require.NotNil(t, l)
	assert.Equal(t, Defined|Used, l.Flags)
}

func TestLookup_NoCreate(t *testing.T) {
	st := New()
	assert.Nil(t, st.Lookup("missing", Used, false))
	assert.Equal(t, 0, st.Size())
}

func TestThisLabel(t *testing.T) {
	st := New()
	l := st.Lookup(ThisName, Used, false)

	require.NotNil(t, l)
	assert.True(t, l.IsThis())
	assert.Equal(t, ThisRef, l.Ref)
	assert.Equal(t, 0, st.Size(), "this label must not consume a slot")
	assert.Empty(t, st.Labels(0))
	assert.Nil(t, st.Find(ThisName, RegionData))
}

func TestReservedNamesAreSpecial(t *testing.T) {
	st := New()
	for _, name := range []string{"match", "matchend", "target", "keyword"} {
		l := st.Lookup(name, 0, true)
		assert.NotZero(t, l.Flags&Special, name)
	}
	assert.Zero(t, st.Lookup("other", 0, true).Flags&Special)
}

func TestLabels_FiltersByFlags(t *testing.T) {
	st := New()
	st.Lookup("open", RegionData|Defined|Used, true)
	st.Lookup("half", RegionData|Defined, true)
	st.Lookup("user", Defined|Used, true)

	got := st.Labels(RegionData | Defined | Used)
	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].Name)
}

func TestCheckLabels(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(st *SymbolTable)
		wantOK bool
		warns  []string
	}{
		{"consistent", func(st *SymbolTable) { st.Lookup("a", Defined|Used, true) }, true, nil},
		{"unused", func(st *SymbolTable) { st.Lookup("a", Defined, true) }, false, []string{"defined but not used"}},
		{"undefined", func(st *SymbolTable) { st.Lookup("a", Used, true) }, false, []string{"used but not defined"}},
		{"special skipped", func(st *SymbolTable) { st.Lookup("target", Defined, true) }, true, nil},
		{"rdat skipped", func(st *SymbolTable) { st.Lookup("s", RegionData, true) }, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			st := New()
			tt.setup(st)
			assert.Equal(t, tt.wantOK, st.CheckLabels(logger))
			for _, w := range tt.warns {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestRefTab_GetThisAlwaysCurrent(t *testing.T) {
	st := New()
	st.Lookup("a", Defined, true)
	rt := NewRefTab(st)
	require.NoError(t, rt.Set(0, 17))

	assert.Equal(t, 42, rt.Get(ThisRef, 42))
	assert.Equal(t, 7, (*RefTab)(nil).Get(ThisRef, 7))
}

func TestRefTab_NilTable(t *testing.T) {
	var rt *RefTab
	assert.Equal(t, -1, rt.Get(0, 5))
	assert.NoError(t, rt.Set(0, 5))
	assert.Equal(t, 0, rt.Len())
}

func TestRefTab_SetOutOfRange(t *testing.T) {
	st := New()
	st.Lookup("a", Defined, true)
	rt := NewRefTab(st)

	assert.ErrorIs(t, rt.Set(1, 3), ErrRefTabIndex)
	assert.ErrorIs(t, rt.Set(-2, 3), ErrRefTabIndex)
	assert.Equal(t, -1, rt.Get(0, 0), "failed set must not corrupt other slots")
}

func TestRefTab_DupAndReset(t *testing.T) {
	st := New()
	st.Lookup("a", Defined, true)
	st.Lookup("b", Defined, true)
	src := NewRefTab(st)
	dst := NewRefTab(st)
	require.NoError(t, src.Set(1, 9))

	require.NoError(t, src.Dup(dst))
	assert.Equal(t, 9, dst.Get(1, 0))

	require.NoError(t, src.Set(1, 10))
	assert.Equal(t, 9, dst.Get(1, 0), "copies must not alias")

	dst.Reset()
	assert.Equal(t, -1, dst.Get(1, 0))
}

func TestRefTab_DupSizeMismatch(t *testing.T) {
	small := New()
	small.Lookup("a", Defined, true)
	big := New()
	big.Lookup("a", Defined, true)
	big.Lookup("b", Defined, true)

	err := NewRefTab(small).Dup(NewRefTab(big))
	assert.ErrorIs(t, err, ErrRefTabSize)
}
