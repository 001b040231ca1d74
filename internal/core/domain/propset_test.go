package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertySet_Declare(t *testing.T) {
	t.Parallel()

	t.Run("records declarations in order", func(t *testing.T) {
		t.Parallel()

		ps := NewPropertySet()
		require.NoError(t, ps.Declare("cflags", StringListType{}, PropOptions{Inherit: true}))
		require.NoError(t, ps.Declare("outname", StringType{}, PropOptions{}))

		assert.Equal(t, []string{"cflags", "outname"}, ps.Names())

		prop, err := ps.Lookup("cflags")
		require.NoError(t, err)
		assert.True(t, prop.Options.Inherit)
	})

	t.Run("redeclaring with the same type is a no-op", func(t *testing.T) {
		t.Parallel()

		ps := NewPropertySet()
		require.NoError(t, ps.Declare("cflags", StringListType{}, PropOptions{Inherit: true}))
		require.NoError(t, ps.Declare("cflags", StringListType{}, PropOptions{}))

		// The first declaration's options stay in effect.
		prop, err := ps.Lookup("cflags")
		require.NoError(t, err)
		assert.True(t, prop.Options.Inherit)
		assert.Equal(t, []string{"cflags"}, ps.Names())
	})

	t.Run("conflicting type fails", func(t *testing.T) {
		t.Parallel()

		ps := NewPropertySet()
		require.NoError(t, ps.Declare("cflags", StringListType{}, PropOptions{}))

		err := ps.Declare("cflags", StringType{}, PropOptions{})
		assert.ErrorIs(t, err, ErrDuplicateProperty)
	})

	t.Run("lookup of an undeclared name fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewPropertySet().Lookup("nope")
		assert.ErrorIs(t, err, ErrNoSuchProperty)
	})
}

func TestProperties(t *testing.T) {
	t.Parallel()

	newProps := func(t *testing.T) *Properties {
		t.Helper()
		ps := NewPropertySet()
		require.NoError(t, ps.Declare("cflags", StringListType{}, PropOptions{}))
		require.NoError(t, ps.Declare("outname", StringType{}, PropOptions{}))
		return NewProperties(ps, "test@main")
	}

	t.Run("set coerces and get reads back", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		require.NoError(t, p.Set("cflags", "-O2"))

		v, err := p.Get("cflags")
		require.NoError(t, err)
		assert.Equal(t, []string{"-O2"}, v)
		assert.True(t, p.IsSet("cflags"))
	})

	t.Run("unset properties read as the type default", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		assert.False(t, p.IsSet("outname"))

		v, err := p.Get("outname")
		require.NoError(t, err)
		assert.Equal(t, "", v)
	})

	t.Run("append joins with the stored value", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		require.NoError(t, p.Set("cflags", []string{"-O2", "-g"}))
		require.NoError(t, p.Append("cflags", []string{"-g", "-Wall"}))

		v, err := p.Get("cflags")
		require.NoError(t, err)
		assert.Equal(t, []string{"-O2", "-g", "-Wall"}, v)
	})

	t.Run("append on an unset property behaves like set", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		require.NoError(t, p.Append("cflags", "-Wall"))

		v, err := p.Get("cflags")
		require.NoError(t, err)
		assert.Equal(t, []string{"-Wall"}, v)
	})

	t.Run("undeclared name fails", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		assert.ErrorIs(t, p.Set("nope", "x"), ErrNoSuchProperty)
		_, err := p.Get("nope")
		assert.ErrorIs(t, err, ErrNoSuchProperty)
	})

	t.Run("value that does not fit fails", func(t *testing.T) {
		t.Parallel()

		p := newProps(t)
		assert.ErrorIs(t, p.Set("outname", 42), ErrPropertyType)
	})
}
