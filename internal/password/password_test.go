package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrong(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pw   string
		want bool
	}{
		{name: "meets every class", pw: "Abc123456!@#", want: true},
		{name: "long and mixed", pw: "Correct-Horse-Battery-9", want: true},
		{name: "no upper or symbol", pw: "abc123456789", want: false},
		{name: "too short", pw: "Ab1!", want: false},
		{name: "eleven chars", pw: "Abc12345!@#", want: false},
		{name: "empty", pw: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsStrong(tt.pw))
		})
	}
}

func TestIsStrong_ShorterThanMinimumAlwaysFails(t *testing.T) {
	t.Parallel()

	base := "Aa1!Aa1!Aa1!Aa1!"
	for n := 0; n < MinLength; n++ {
		assert.False(t, IsStrong(base[:n]), "length %d", n)
	}
	assert.True(t, IsStrong(base[:MinLength]))
}

func TestIsStrong_DroppingAnyClassFails(t *testing.T) {
	t.Parallel()

	strong := "Abc123456!@#"
	require.True(t, IsStrong(strong))

	mutations := map[string]string{
		"no upper":  strings.ToLower(strong),
		"no lower":  strings.ToUpper(strong),
		"no digit":  "Abcdefghij!@#",
		"no symbol": "Abc123456789",
	}
	for name, pw := range mutations {
		assert.False(t, IsStrong(pw), name)
	}
}

func TestHashAndCheck(t *testing.T) {
	t.Parallel()

	h, err := Hash("Abc123456!@#")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc123456!@#", h)
	assert.True(t, Check(h, "Abc123456!@#"))
	assert.False(t, Check(h, "Abc123456!@$"))
}

func TestHash_TooLong(t *testing.T) {
	t.Parallel()

	_, err := Hash(strings.Repeat("A", 73))
	require.ErrorIs(t, err, ErrTooLong)
}
