package weave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/provider"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/testutil"
)

func unitBytes(u *ir.Unit) []byte {
	return ir.MustEncodeUnit(u)
}

func TestOpen_LinksAndLoads(t *testing.T) {
	early := testutil.NewPass("t:early", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	late := testutil.NewPass("t:late", testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))

	s, err := Open(Options{
		Providers: []provider.Provider{provider.Static{Src: "static", Passes: []pass.Pass{late, early}}},
		Source:    source.Map{"com/ex/A": unitBytes(&ir.Unit{Name: "com/ex/A"})},
		Logger:    testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	assert.True(t, s.Graph.Linked())
	assert.Empty(t, s.Issues)
	assert.Equal(t, []ir.Name{"t:early", pass.MarkerName, "t:late"}, s.Graph.Names())

	u, err := s.Loader.Load("com/ex/A")
	require.NoError(t, err)
	assert.Equal(t, "simple_rewrite", u.Attrs["t:early"])
	assert.Equal(t, "simple_rewrite", u.Attrs["t:late"])
	assert.Equal(t, []ir.Name{"t:early", "t:late"}, s.Trail().Applied("com/ex/A"))
}

func TestOpen_CollectsIssues(t *testing.T) {
	ok := testutil.NewPass("t:ok")
	s, err := Open(Options{
		Providers: []provider.Provider{
			provider.Func{Src: "broken", Fn: func(func(pass.Pass)) error { return errors.New("boom") }},
			provider.Static{Src: "static", Passes: []pass.Pass{ok}},
		},
		Source: source.Map{},
		Logger: testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	require.Len(t, s.Issues, 1)
	assert.Equal(t, "broken", s.Issues[0].Source)
	_, found := s.Graph.Lookup("t:ok")
	assert.True(t, found)
}

func TestOpen_GraphErrors(t *testing.T) {
	a := testutil.NewPass("t:a", testutil.After("t:b"))
	b := testutil.NewPass("t:b", testutil.After("t:a"))
	_, err := Open(Options{
		Providers: []provider.Provider{provider.Static{Src: "static", Passes: []pass.Pass{a, b}}},
		Source:    source.Map{},
		Logger:    testutil.DiscardLogger(),
	})
	require.Error(t, err)
	var ce *pass.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, pass.ErrCodeOrderCycle, ce.Code)
}

func TestOpen_LinkErrors(t *testing.T) {
	bad := testutil.NewPass("t:bad", testutil.LinkFunc(func(pass.LinkContext) error { return errors.New("nope") }))
	_, err := Open(Options{
		Providers: []provider.Provider{provider.Static{Src: "static", Passes: []pass.Pass{bad}}},
		Source:    source.Map{},
		Logger:    testutil.DiscardLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINK_FAILED")
}

func TestSession_Partial(t *testing.T) {
	early := testutil.NewPass("t:early", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	late := testutil.NewPass("t:late", testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	s, err := Open(Options{
		Providers: []provider.Provider{provider.Static{Src: "static", Passes: []pass.Pass{early, late}}},
		Source:    source.Map{"com/ex/A": unitBytes(&ir.Unit{Name: "com/ex/A"})},
		Logger:    testutil.DiscardLogger(),
	})
	require.NoError(t, err)

	res, err := s.Partial("com/ex/A", s.Runner.StopAtMarker())
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{"t:early", pass.MarkerName}, res.Selected)

	u, err := ir.DecodeUnit(res.Bytes)
	require.NoError(t, err)
	assert.Contains(t, u.Attrs, "t:early")
	assert.NotContains(t, u.Attrs, "t:late")
	assert.Empty(t, s.Loader.Defined(), "partial results are not definitions")

	_, err = s.Partial("com/ex/Missing", "")
	assert.ErrorIs(t, err, source.ErrNotFound)
}
