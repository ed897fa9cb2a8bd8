package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ParamsTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ParamsTestSuite struct{}

func (s *ParamsTestSuite) TestParse(c *gc.C) {
	p, err := Parse([]string{"svdpp.iterations=5", " trust.decay = 0.2", "a=1", "a=2", "empty="})
	c.Assert(err, gc.IsNil)
	c.Assert(p.Keys(), gc.DeepEquals, []string{"a", "empty", "svdpp.iterations", "trust.decay"})

	n, err := p.Int("svdpp.iterations", 10)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 5)

	f, err := p.Float64("trust.decay", 0)
	c.Assert(err, gc.IsNil)
	c.Assert(f, gc.Equals, 0.2)

	c.Assert(p.String("a", ""), gc.Equals, "2")
	c.Assert(p.Has("empty"), gc.Equals, true)

	_, err = Parse([]string{"novalue"})
	c.Assert(err, gc.ErrorMatches, `parse params: config: parameter "novalue": expected key=value`)
}

func (s *ParamsTestSuite) TestDefaults(c *gc.C) {
	var p Params

	n, err := p.Int64("missing", -8)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, int64(-8))

	d, err := p.Duration("missing", time.Second)
	c.Assert(err, gc.IsNil)
	c.Assert(d, gc.Equals, time.Second)

	b, err := p.Bool("missing", true)
	c.Assert(err, gc.IsNil)
	c.Assert(b, gc.Equals, true)

	c.Assert(p.String("missing", "x"), gc.Equals, "x")
	c.Assert(p.Keys(), gc.HasLen, 0)
}

func (s *ParamsTestSuite) TestInvalidValues(c *gc.C) {
	p := New(map[string]string{"n": "ten", "f": "1.2.3", "d": "soon", "b": "perhaps"})

	_, err := p.Int("n", 0)
	c.Assert(err, gc.ErrorMatches, `config: parameter "n": expected an integer, got "ten"`)
	c.Assert(xerrors.Is(err, ErrConfiguration), gc.Equals, true)

	_, err = p.Float64("f", 0)
	c.Assert(err, gc.ErrorMatches, `config: parameter "f": expected a number, got "1.2.3"`)

	_, err = p.Duration("d", 0)
	c.Assert(err, gc.ErrorMatches, `config: parameter "d": expected a duration, got "soon"`)

	_, err = p.Bool("b", false)
	c.Assert(err, gc.ErrorMatches, `config: parameter "b": expected a boolean, got "perhaps"`)

	var cfgErr *Error
	c.Assert(xerrors.As(err, &cfgErr), gc.Equals, true)
	c.Assert(cfgErr.Param, gc.Equals, "b")
}

func (s *ParamsTestSuite) TestRequired(c *gc.C) {
	p := New(map[string]string{"ranking.min_item_id": "-8"})

	v, err := p.RequiredInt64("ranking.min_item_id")
	c.Assert(err, gc.IsNil)
	c.Assert(v, gc.Equals, int64(-8))

	_, err = p.RequiredInt64("ranking.max_item_id")
	c.Assert(err, gc.ErrorMatches, `config: parameter "ranking.max_item_id": required parameter is missing`)

	_, err = p.RequiredString("algorithm")
	c.Assert(xerrors.Is(err, ErrConfiguration), gc.Equals, true)
}

func (s *ParamsTestSuite) TestImmutable(c *gc.C) {
	src := map[string]string{"k": "v"}
	p := New(src)
	src["k"] = "changed"
	c.Assert(p.String("k", ""), gc.Equals, "v")

	merged := p.Merge(New(map[string]string{"k": "override", "j": "1"}))
	c.Assert(merged.String("k", ""), gc.Equals, "override")
	c.Assert(merged.String("j", ""), gc.Equals, "1")
	c.Assert(p.String("k", ""), gc.Equals, "v")
	c.Assert(p.Has("j"), gc.Equals, false)
}

func (s *ParamsTestSuite) TestReadFile(c *gc.C) {
	path := filepath.Join(c.MkDir(), "job.json")
	c.Assert(os.WriteFile(path, []byte(`{"algorithm":"svdpp","svdpp.dim":2,"svdpp.gamma":0.01,"trust.normalize":true}`), 0o600), gc.IsNil)

	p, err := ReadFile(path)
	c.Assert(err, gc.IsNil)
	c.Assert(p.String("algorithm", ""), gc.Equals, "svdpp")
	c.Assert(p.String("svdpp.dim", ""), gc.Equals, "2")
	c.Assert(p.String("svdpp.gamma", ""), gc.Equals, "0.01")
	c.Assert(p.String("trust.normalize", ""), gc.Equals, "true")

	c.Assert(os.WriteFile(path, []byte(`{"nested":{"a":1}}`), 0o600), gc.IsNil)
	_, err = ReadFile(path)
	c.Assert(xerrors.Is(err, ErrConfiguration), gc.Equals, true)
}
