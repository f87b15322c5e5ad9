package icgem

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/batchatco/go-native-shc/shc/util"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const sample = `This is a made up model.
It has free text before the header.

begin_of_head ==============================================
product_type              gravity_field
modelname                 TEST-2026
earth_gravity_constant    0.3986004415E+15
radius                    0.6378136300E+07
max_degree                3
errors                    formal
norm                      fully_normalized
tide_system               tide_free
key     L    M         C                  S                 sigma C          sigma S
end_of_head ================================================
gfc     0    0  1.000000000000D+00  0.000000000000D+00  0.0000D+00  0.0000D+00
gfc     1    0  0.0                 0.0                 0.0         0.0
gfc     1    1  0.0                 0.0                 0.0         0.0
gfc     2    0 -0.484165143790E-03  0.000000000000E+00  0.7481E-11  0.0000E+00
gfct    2    1 -0.186987640000E-09  0.119528010000E-08  0.7000E-11  0.7000E-11  20050101.0000
trnd    2    1  0.1E-11             0.1E-11             0.1E-12     0.1E-12
gfc     2    2  0.243938357328E-05 -0.140027370385E-05  0.7000E-11  0.7000E-11
gfc     3    0  0.957161207093E-06  0.000000000000E+00  0.6000E-11  0.0000E+00
gfc     3    1  0.2030E-05          0.2482E-06          0.6000E-11  0.6000E-11
gfc     3    2  0.9047E-06         -0.6190E-06          0.6000E-11  0.6000E-11
gfc     3    3  0.7212E-06          0.1414E-05          0.6000E-11  0.6000E-11
`

func parse(t *testing.T, text string, req api.BodyRequest) (*api.Header, *coef.Set, error) {
	t.Helper()
	lr := util.NewLineReader(strings.NewReader(text))
	c := New()
	hdr, err := c.ParseHeader(lr)
	if err != nil {
		return nil, nil, err
	}
	set, err := c.ParseBody(lr, hdr, req)
	return hdr, set, err
}

func TestHeader(t *testing.T) {
	lr := util.NewLineReader(strings.NewReader(sample))
	hdr, err := New().ParseHeader(lr)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Nmax != 3 || !hdr.Errors {
		t.Error("nmax/errors", hdr.Nmax, hdr.Errors)
	}
	if lr.LineNo() != 14 {
		t.Error("header ended at line", lr.LineNo())
	}
	if gm, _ := hdr.Attributes.GetFloat(api.AttrGM); gm != 3.986004415e14 {
		t.Error("gm", gm)
	}
	if name, _ := hdr.Attributes.GetString(api.AttrModelName); name != "TEST-2026" {
		t.Error("modelname", name)
	}
	if n, _ := hdr.Attributes.GetInt(api.AttrNmaxFile); n != 3 {
		t.Error("nmaxfile", n)
	}
	if _, has := hdr.Attributes.Get("It"); has {
		t.Error("free text stored as attribute")
	}
	if !hdr.Epoch.IsZero() {
		t.Error("static model has an epoch")
	}
}

func TestBody(t *testing.T) {
	_, set, err := parse(t, sample, api.BodyRequest{Nmax: -1, WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	if !set.HasSigmas() || set.Nmax() != 3 {
		t.Fatal("set", set.Nmax(), set.HasSigmas())
	}
	tests := []struct {
		n, m int
		t    shindex.Trig
		v    float64
	}{
		{0, 0, shindex.Cos, 1},
		{2, 0, shindex.Cos, -0.484165143790e-03},
		{2, 1, shindex.Sin, 0.119528010000e-08},
		{2, 2, shindex.Sin, -0.140027370385e-05},
		{3, 3, shindex.Cos, 0.7212e-06},
	}
	for _, test := range tests {
		v, err := set.Value(test.n, test.m, test.t)
		if err != nil || !scalar.EqualWithinRel(v, test.v, 1e-12) {
			t.Error(test.n, test.m, test.t, v, err)
		}
	}
	if s, _ := set.Sigma(2, 0, shindex.Cos); s != 0.7481e-11 {
		t.Error("sigma C(2,0)", s)
	}
}

func TestTruncation(t *testing.T) {
	_, set, err := parse(t, sample, api.BodyRequest{Nmax: 1, Guide: shindex.TMN})
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != shindex.Size(1) || set.HasSigmas() {
		t.Error("truncated set", set.Len(), set.HasSigmas())
	}
}

func TestNoErrors(t *testing.T) {
	text := `begin_of_head
max_degree 1
errors no
end_of_head
gfc 0 0 1.0 0.0
gfc 1 0 2.0 0.0
gfc 1 1 3.0 4.0
`
	hdr, set, err := parse(t, text, api.BodyRequest{Nmax: -1, WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Errors || set.HasSigmas() {
		t.Error("uncertainties without errors column")
	}
	if v, _ := set.Value(1, 1, shindex.Sin); v != 4 {
		t.Error("S(1,1)", v)
	}
}

func TestHeaderWithoutBegin(t *testing.T) {
	text := "modelname x\nmax_degree 0\nsome comment\nend_of_head\ngfc 0 0 1 0\n"
	hdr, _, err := parse(t, text, api.BodyRequest{Nmax: -1})
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Attributes.Len() != 3 {
		t.Error("keys", hdr.Attributes.Keys())
	}
}

func TestBadHeader(t *testing.T) {
	for _, text := range []string{
		"begin_of_head\nmax_degree 2\n",
		"begin_of_head\nmodelname x\nend_of_head\n",
		"begin_of_head\nmax_degree two\nend_of_head\n",
		"",
	} {
		_, err := New().ParseHeader(util.NewLineReader(strings.NewReader(text)))
		if !errors.Is(err, api.ErrParse) {
			t.Errorf("%q: expected parse error, got %v", text, err)
		}
	}
}

func TestHugeDegree(t *testing.T) {
	text := "begin_of_head\nmax_degree 4000000000\nend_of_head\ngfc 0 0 1.0 0.0\n"
	_, err := New().ParseHeader(util.NewLineReader(strings.NewReader(text)))
	if !errors.Is(err, api.ErrHeader) || !errors.Is(err, shindex.ErrOutOfRange) {
		t.Error("got", err)
	}
}

func TestBadBody(t *testing.T) {
	head := "begin_of_head\nmax_degree 2\nerrors formal\nend_of_head\n"
	tests := []struct {
		body  string
		cause error
	}{
		{"gfc 0 0 1.0 0.0\n", api.ErrColumns},
		{"gfct 0 0 1.0 0.0 0.0 0.0\n", api.ErrColumns},
		{"gfc 0 0 1.0 x 0.0 0.0\n", api.ErrNumber},
		{"gfc 1 3 1.0 0.0 0.0 0.0\n", shindex.ErrOutOfRange},
		{"foo 0 0 1.0 0.0 0.0 0.0\n", api.ErrRecord},
	}
	for _, test := range tests {
		_, _, err := parse(t, head+test.body, api.BodyRequest{Nmax: -1, WithErrors: true})
		var pe *api.ParseError
		if !errors.As(err, &pe) || !errors.Is(err, test.cause) || pe.Line != 5 {
			t.Errorf("%q: got %v", test.body, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	_, orig, err := parse(t, sample, api.BodyRequest{Nmax: -1, WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	attrs, _ := util.NewOrderedMap(nil, nil)
	attrs.Add(api.AttrModelName, "TEST-2026")
	attrs.Add(api.AttrErrors, "calibrated")
	attrs.Add(api.AttrNmaxFile, 3)
	attrs.Add("comment", "written  by\ta test")

	var buf bytes.Buffer
	if err := New().Serialize(&buf, orig, attrs, true); err != nil {
		t.Fatal(err)
	}
	hdr, got, err := parse(t, buf.String(), api.BodyRequest{Nmax: -1, WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(got.Values(), orig.Values()) || !floats.Equal(got.Sigmas(), orig.Sigmas()) {
		t.Error("coefficients differ")
	}
	if s, _ := hdr.Attributes.GetString(api.AttrErrors); s != "calibrated" {
		t.Error("errors", s)
	}
	if s, _ := hdr.Attributes.GetString("comment"); s != "written by a test" {
		t.Error("comment", s)
	}
	if s, _ := hdr.Attributes.GetString(api.AttrNorm); s != "fully_normalized" {
		t.Error("norm default", s)
	}
	if gm, _ := hdr.Attributes.GetFloat(api.AttrGM); gm != 3.986004415e14 {
		t.Error("gm default", gm)
	}
	if strings.Count(buf.String(), "nmaxfile") != 0 {
		t.Error("reader attribute written")
	}
}

func TestSerializeNoErrors(t *testing.T) {
	_, set, err := parse(t, sample, api.BodyRequest{Nmax: 2})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := New().Serialize(&buf, set, nil, false); err != nil {
		t.Fatal(err)
	}
	hdr, got, err := parse(t, buf.String(), api.BodyRequest{Nmax: -1, WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Errors || got.HasSigmas() || got.Nmax() != 2 {
		t.Error("header", hdr.Errors, got.Nmax())
	}
}

func TestSerializeInvalidName(t *testing.T) {
	set, _ := coef.NewBuilder(shindex.NewNMT(0), false).Build()
	attrs, _ := util.NewOrderedMap(nil, nil)
	attrs.Add("bad name", 1)
	err := New().Serialize(&bytes.Buffer{}, set, attrs, false)
	if !errors.Is(err, api.ErrInvalidName) {
		t.Error("expected ErrInvalidName, got", err)
	}
}
