package param

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   []Token
	}{
		{name: "empty", params: "", want: []Token{}},
		{name: "single", params: "frames=5", want: []Token{{"frames", "5"}}},
		{name: "colon separated", params: "a=1:b=2", want: []Token{{"a", "1"}, {"b", "2"}}},
		{name: "mixed separators", params: " a=1, b=2;c=3\td=4 ", want: []Token{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}}},
		{name: "bare words dropped", params: "verbose a=1 =2", want: []Token{{"a", "1"}}},
		{name: "empty value kept", params: "a=", want: []Token{{"a", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.params))
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"3", 3, true},
		{"-2.5", -2.5, true},
		{".5", 0.5, true},
		{"1e2", 100, true},
		{"12px", 12, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}

	inf, ok := ParseNumber("1e999")
	assert.True(t, math.IsInf(inf, 1))
	assert.False(t, ok)
}

func TestConstrain(t *testing.T) {
	frames := Int("frames").Range(1, 16).Default(3).Build()
	assert.Equal(t, 3, frames.Int())
	assert.Equal(t, 1.0, frames.Constrain(0))
	assert.Equal(t, 16.0, frames.Constrain(99))
	assert.Equal(t, 7.0, frames.Constrain(7.9))
	assert.Equal(t, 16.0, frames.Constrain(math.Inf(1)))
	assert.Equal(t, 3.0, frames.Constrain(math.NaN()))

	ksize := Int("ksize").Range(1, 51).Default(5).Odd().Build()
	assert.Equal(t, 5.0, ksize.Constrain(4))
	assert.Equal(t, 1.0, ksize.Constrain(0))
	assert.Equal(t, 1.0, ksize.Constrain(-8))
	assert.Equal(t, 51.0, ksize.Constrain(200))

	even := Int("even").Range(2, 10).Odd().Build()
	assert.Equal(t, 3.0, even.Constrain(2))
	assert.Equal(t, 9.0, even.Constrain(10))

	alpha := Float("alpha").Default(0.5).Build()
	assert.Equal(t, 0.25, alpha.Constrain(0.25))
	assert.Equal(t, 1.0, alpha.Constrain(1.5))
}

func TestRegistryApply(t *testing.T) {
	r := NewRegistry()
	r.Add(
		Int("frames").Range(1, 16).Default(3).Build(),
		Float("alpha").Default(0.5).Build(),
	)
	r.Add(Int("frames").Build()) // duplicate ignored
	assert.Equal(t, 2, r.Count())

	report := r.Apply("frames=20:alpha=0.1:mode=fast")
	assert.Equal(t, 16, r.Get("frames").Int())
	assert.Equal(t, 0.1, r.Get("alpha").GetValue())
	assert.Equal(t, []string{"frames"}, report.Clamped)
	assert.Equal(t, []string{"alpha"}, report.Applied)
	assert.Equal(t, []string{"mode"}, report.Ignored)

	// re-apply restores defaults before parsing
	r.Apply("")
	assert.Equal(t, 3, r.Get("frames").Int())
	assert.Equal(t, 0.5, r.Get("alpha").GetValue())

	report = r.Apply("frames=lots")
	assert.Equal(t, 1, r.Get("frames").Int())
	assert.Equal(t, []string{"frames"}, report.Clamped)

	r.Apply("frames=2 frames=9")
	assert.Equal(t, 9, r.Get("frames").Int())

	assert.Equal(t, "alpha=0.5:frames=9", r.String())
}
