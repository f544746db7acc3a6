package pkg

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usernameShape = regexp.MustCompile(`^([A-Z])([a-z]{2,5})_([1-9][0-9]{0,5})$`)

func TestGenerateUsernameShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		name, err := GenerateUsername()
		require.NoError(t, err)

		m := usernameShape.FindStringSubmatch(name)
		require.NotNil(t, m, "unexpected shape: %q", name)

		n, err := strconv.Atoi(m[3])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateUsernameVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name, err := GenerateUsername()
		require.NoError(t, err)
		seen[name] = true
	}
	// 50 draws from this space basically never collide down to one value
	assert.Greater(t, len(seen), 1)
}
