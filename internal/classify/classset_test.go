package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassSet(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"1", []int{1}},
		{"1,17,18", []int{1, 17, 18}},
		{"17-18", []int{17, 18}},
		{" 1 , 3 - 5 ", []int{1, 3, 4, 5}},
		{"1,,2,", []int{1, 2}},
		{"2-2", []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClassSet(tt.in)
			require.NoError(t, err)
			assert.Equal(t, NewClassSet(tt.want...), got)
		})
	}
}

func TestParseClassSetImageNetDogs(t *testing.T) {
	s, err := ParseClassSet("153-277")
	require.NoError(t, err)
	assert.Len(t, s, 125)
	assert.True(t, s.Contains(153))
	assert.True(t, s.Contains(277))
	assert.False(t, s.Contains(152))
	assert.False(t, s.Contains(278))
}

func TestParseClassSetErrors(t *testing.T) {
	for _, in := range []string{"", " , ", "dog", "5-3", "-1", "1-x", "3-"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseClassSet(in)
			assert.Error(t, err)
		})
	}
}

func TestParseClassSetBoundsIDs(t *testing.T) {
	s, err := ParseClassSet("0-4095")
	require.NoError(t, err)
	assert.Len(t, s, MaxClassID+1)

	for _, in := range []string{"4096", "0-5000000", "1,2-9999999999"} {
		_, err := ParseClassSet(in)
		assert.Error(t, err, in)
	}
}

func TestClassSetString(t *testing.T) {
	assert.Equal(t, "1,3-5,9", NewClassSet(9, 4, 1, 3, 5).String())
	assert.Equal(t, "", ClassSet{}.String())

	s, err := ParseClassSet("153-277,1")
	require.NoError(t, err)
	assert.Equal(t, "1,153-277", s.String())
}
