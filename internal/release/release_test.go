package release

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

func TestContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		wantErr bool
	}{
		{"plain version", Context{Version: "1.0.0"}, false},
		{"prerelease", Context{Version: "2.1.0-beta.1"}, false},
		{"forward from last", Context{Version: "1.2.0", LastVersion: "1.1.9"}, false},
		{"empty", Context{}, true},
		{"not semver", Context{Version: "latest"}, true},
		{"bad last version", Context{Version: "1.0.0", LastVersion: "nope"}, true},
		{"same as last", Context{Version: "1.0.0", LastVersion: "1.0.0"}, true},
		{"behind last", Context{Version: "0.9.0", LastVersion: "1.0.0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, releaseerr.CodeInvalidVersion, releaseerr.CodeOf(err))
		})
	}
}

func TestIsPrerelease(t *testing.T) {
	assert.True(t, Context{Version: "1.0.0-rc.1"}.IsPrerelease())
	assert.False(t, Context{Version: "1.0.0"}.IsPrerelease())
	assert.False(t, Context{Version: "garbage"}.IsPrerelease())
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc123d", Context{Commit: "abc123def456789"}.ShortCommit())
	assert.Equal(t, "short", Context{Commit: "short"}.ShortCommit())
	assert.Equal(t, "", Context{}.ShortCommit())
}
