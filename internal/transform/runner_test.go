package transform

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/testutil"
)

func newRunner(t *testing.T, passes ...pass.Pass) *Runner {
	t.Helper()
	return NewRunner(testutil.MustGraph(passes...), WithLogger(testutil.DiscardLogger()))
}

func unitBytes(u *ir.Unit) []byte {
	return ir.MustEncodeUnit(u)
}

func TestTransform_NotLinked(t *testing.T) {
	g, err := pass.Build(nil, pass.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	_, err = NewRunner(g).Transform(Request{Unit: "X"})
	assert.True(t, pass.IsNotLinked(err))
}

func TestTransform_NoOpFastPath(t *testing.T) {
	a := testutil.NewPass("test:a")
	b := testutil.NewPass("test:b", testutil.BeforeMarker())
	r := newRunner(t, a, b)

	// Not canonical on purpose: the fast path must not re-serialize.
	raw := []byte(`{ "name": "X",  "flags": ["x"] }`)
	res, err := r.Transform(Request{Unit: "X", Raw: raw})
	require.NoError(t, err)

	assert.Equal(t, ir.NoChange, res.Outcome)
	assert.Equal(t, raw, res.Bytes)
	assert.Equal(t, []ir.Name{pass.MarkerName}, res.Selected)
	assert.Zero(t, a.Calls())
	assert.Zero(t, b.Calls())
}

func TestTransform_FastPathSkipsDecode(t *testing.T) {
	r := newRunner(t, testutil.NewPass("test:a"))

	res, err := r.Transform(Request{Unit: "X", Raw: []byte("not json")})
	require.NoError(t, err)
	assert.Equal(t, ir.NoChange, res.Outcome)
}

// TestTransform_LoggerValidator is the end-to-end selection scenario.
func TestTransform_LoggerValidator(t *testing.T) {
	logger := testutil.NewPass("test:logger", testutil.After())
	validator := testutil.NewPass("test:validator",
		testutil.After("test:logger"),
		testutil.AppliesAlways(),
		testutil.Returns(ir.SimpleRewrite),
	)
	r := newRunner(t, logger, validator)
	require.Equal(t, []ir.Name{pass.MarkerName, "test:logger", "test:validator"}, r.Graph().Names())

	res, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X"})})
	require.NoError(t, err)

	assert.Equal(t, []ir.Name{pass.MarkerName, "test:validator"}, res.Selected)
	assert.Equal(t, ir.SimpleRewrite, res.Outcome)
	assert.Equal(t, []audit.Entry{
		{Seq: 1, Pass: "test:logger", Applied: false},
		{Seq: 2, Pass: "test:validator", Applied: true},
	}, r.Trail().For("X"))

	u, err := ir.DecodeUnit(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "simple_rewrite", u.Attrs["test:validator"])
}

func TestTransform_PartialEvaluation(t *testing.T) {
	a := testutil.NewPass("test:a", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	b := testutil.NewPass("test:b", testutil.AppliesAlways(), testutil.ApplyFunc(func(u *ir.Unit, ctx pass.Context) (ir.Outcome, error) {
		if _, err := ctx.Hierarchy.ResolveUpToMarker("Other"); err != nil {
			return ir.NoChange, err
		}
		u.SetAttr("b", "ran")
		return ir.SimpleRewrite, nil
	}))
	r := newRunner(t, a, b)
	require.Equal(t, ir.Name("test:b"), r.StopAtMarker())

	h := testutil.NewHierarchy()
	res, err := r.Transform(Request{
		Unit:       "X",
		Raw:        unitBytes(&ir.Unit{Name: "X"}),
		StopBefore: "test:b",
		Hierarchy:  h,
	})
	require.NoError(t, err)

	assert.Equal(t, []ir.Name{"test:a", pass.MarkerName}, res.Selected)
	u, err := ir.DecodeUnit(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"test:a": "simple_rewrite"}, u.Attrs)
	assert.Zero(t, b.Calls())
	assert.Empty(t, h.Calls())

	// The audit never mentions the pass the walk stopped at.
	assert.Equal(t, []ir.Name{"test:a"}, r.Trail().Asked("X"))
}

func TestTransform_StopBeforeMarker(t *testing.T) {
	a := testutil.NewPass("test:a", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	r := newRunner(t, a)

	res, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X"}), StopBefore: pass.MarkerName})
	require.NoError(t, err)
	assert.Equal(t, []ir.Name{"test:a"}, res.Selected)
	assert.Equal(t, ir.SimpleRewrite, res.Outcome)
}

func TestTransform_StopBeforeFirstPass(t *testing.T) {
	a := testutil.NewPass("test:a", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	r := newRunner(t, a)

	raw := unitBytes(&ir.Unit{Name: "X"})
	res, err := r.Transform(Request{Unit: "X", Raw: raw, StopBefore: "test:a"})
	require.NoError(t, err)
	assert.Empty(t, res.Selected)
	assert.Equal(t, raw, res.Bytes)
}

func TestTransform_AppliedButUnchanged(t *testing.T) {
	p := testutil.NewPass("test:noop", testutil.AppliesAlways(), testutil.Returns(ir.NoChange))
	r := newRunner(t, p)

	raw := []byte(`{"name":"X"}`)
	res, err := r.Transform(Request{Unit: "X", Raw: raw})
	require.NoError(t, err)
	assert.Equal(t, ir.NoChange, res.Outcome)
	assert.Equal(t, raw, res.Bytes)
	assert.Equal(t, int64(1), p.Calls())
}

func TestTransform_OutcomeFolding(t *testing.T) {
	simple := testutil.NewPass("test:simple", testutil.AppliesAlways(), testutil.Returns(ir.SimpleRewrite))
	recompute := testutil.NewPass("test:recompute", testutil.AppliesAlways(), testutil.Returns(ir.RecomputeMetadata))
	none := testutil.NewPass("test:zz_none", testutil.AppliesAlways(), testutil.Returns(ir.NoChange))
	r := newRunner(t, simple, recompute, none)

	res, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X", Interfaces: []string{"I"}})})
	require.NoError(t, err)
	assert.Equal(t, ir.RecomputeMetadata, res.Outcome)

	u, err := ir.DecodeUnit(res.Bytes)
	require.NoError(t, err)
	require.NotNil(t, u.Frames)
	assert.Equal(t, []string{"I"}, u.Frames.Interfaces)
	assert.Empty(t, u.Frames.Ancestors)
	assert.Len(t, u.Frames.Digest, 64)
}

func TestTransform_RecomputeNotPermitted(t *testing.T) {
	pre := testutil.NewPass("test:pre", testutil.BeforeMarker(), testutil.AppliesAlways(), testutil.Returns(ir.RecomputeMetadata))
	r := newRunner(t, pre)

	_, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X"})})
	require.Error(t, err)
	assert.True(t, IsRecomputeNotPermitted(err))

	var ue *UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "X", ue.Unit)
	assert.Equal(t, ir.Name("test:pre"), ue.Pass)
}

func TestTransform_DisconnectedCannotRecompute(t *testing.T) {
	p := testutil.NewPass("test:loose", testutil.After(), testutil.AppliesAlways(), testutil.Returns(ir.RecomputeMetadata))
	r := newRunner(t, p)

	_, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X"})})
	assert.True(t, IsRecomputeNotPermitted(err))
}

func TestTransform_ApplyErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	p := testutil.NewPass("test:bad", testutil.AppliesAlways(), testutil.ApplyFunc(func(*ir.Unit, pass.Context) (ir.Outcome, error) {
		return ir.NoChange, boom
	}))
	r := newRunner(t, p)

	_, err := r.Transform(Request{Unit: "X", Raw: unitBytes(&ir.Unit{Name: "X"})})
	assert.True(t, IsApplyFailed(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "unit=X, pass=test:bad")
}

func TestTransform_DecodeError(t *testing.T) {
	r := newRunner(t, testutil.NewPass("test:a", testutil.AppliesAlways()))

	_, err := r.Transform(Request{Unit: "X", Raw: []byte("{")})
	assert.True(t, IsDecodeFailed(err))

	_, err = r.Transform(Request{Unit: "X", Raw: []byte(`{"name":"Y"}`)})
	assert.True(t, IsDecodeFailed(err))
}

func TestTransform_EmptyUnit(t *testing.T) {
	var sawEmpty bool
	p := testutil.NewPass("test:empty",
		testutil.AppliesAlways(),
		testutil.ApplyFunc(func(u *ir.Unit, ctx pass.Context) (ir.Outcome, error) {
			sawEmpty = ctx.Empty
			u.Flags = append(u.Flags, "synthetic")
			return ir.SimpleRewrite, nil
		}),
	)
	r := newRunner(t, p)

	res, err := r.Transform(Request{Unit: "gen/Stub", Empty: true})
	require.NoError(t, err)
	assert.True(t, sawEmpty)
	assert.JSONEq(t, `{"name":"gen/Stub","flags":["synthetic"]}`, string(res.Bytes))
}

func TestTransform_RecomputeResolvesAncestors(t *testing.T) {
	p := testutil.NewPass("test:recompute", testutil.AppliesAlways(), testutil.Returns(ir.RecomputeMetadata))
	r := newRunner(t, p)

	h := testutil.NewHierarchy()
	h.Platform = []string{"java/"}
	h.Partial["app/Base"] = unitBytes(&ir.Unit{Name: "app/Base", Super: "java/Object", Interfaces: []string{"app/Marker"}})
	h.Unrelated["java/Object"] = &ir.Unit{Name: "java/Object"}

	res, err := r.Transform(Request{
		Unit:      "app/Main",
		Raw:       unitBytes(&ir.Unit{Name: "app/Main", Super: "app/Base"}),
		Hierarchy: h,
	})
	require.NoError(t, err)

	u, err := ir.DecodeUnit(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Base", "java/Object"}, u.Frames.Ancestors)
	assert.Equal(t, []string{"app/Marker"}, u.Frames.Interfaces)
	assert.Equal(t, []string{
		"partial:app/Base",
		"defined:java/Object", "unrelated:java/Object",
	}, h.Calls())
}

func TestTransform_Concurrent(t *testing.T) {
	p := testutil.NewPass("test:rewrite", testutil.AppliesTo("app/"), testutil.Returns(ir.SimpleRewrite))
	r := newRunner(t, p)

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("app/U%02d", i)
			res, err := r.Transform(Request{Unit: name, Raw: unitBytes(&ir.Unit{Name: name})})
			if err == nil && res.Outcome != ir.SimpleRewrite {
				err = fmt.Errorf("%s: outcome %s", name, res.Outcome)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, r.Trail().Units(), n)
	assert.Equal(t, int64(n), p.Calls())
}

func TestTransform_SharedTrail(t *testing.T) {
	trail := audit.NewTrail()
	g := testutil.MustGraph(testutil.NewPass("test:a"))
	r := NewRunner(g, WithTrail(trail), WithLogger(testutil.DiscardLogger()))

	_, err := r.Transform(Request{Unit: "X"})
	require.NoError(t, err)
	assert.Same(t, trail, r.Trail())
	assert.Equal(t, []ir.Name{"test:a"}, trail.Asked("X"))
}
