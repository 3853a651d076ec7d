package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aliaspay/pkg/domain-errors"
)

func TestValidateHandle(t *testing.T) {
	valid := []string{"bob", "bob.bot-1", "a", "x_1", strings.Repeat("a", 32)}
	for _, h := range valid {
		assert.NoError(t, ValidateHandle(h), h)
	}

	invalid := []string{"", "Alice", "bob@x", "bob best", strings.Repeat("a", 33), "émile"}
	for _, h := range invalid {
		err := ValidateHandle(h)
		require.Error(t, err, h)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidHandle), h)
	}
}

func TestDetails_Clip(t *testing.T) {
	d := Details{
		Bio:     strings.Repeat("b", 300),
		Avatar:  strings.Repeat("a", 200),
		Twitter: strings.Repeat("t", 40),
		Discord: strings.Repeat("d", 40),
		Website: strings.Repeat("w", 80),
	}
	clipped := d.Clip()
	assert.Len(t, clipped.Bio, MaxBioLen)
	assert.Len(t, clipped.Avatar, MaxAvatarLen)
	assert.Len(t, clipped.Twitter, MaxTwitterLen)
	assert.Len(t, clipped.Discord, MaxDiscordLen)
	assert.Len(t, clipped.Website, MaxWebsiteLen)

	short := Details{Bio: "hello"}
	assert.Equal(t, "hello", short.Clip().Bio)
}
