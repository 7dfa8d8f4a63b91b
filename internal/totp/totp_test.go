package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
)

// base32 of the RFC 6238 reference secret "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerate(t *testing.T) {
	t.Run("matches RFC 6238 test vectors", func(t *testing.T) {
		// Last six digits of the RFC 6238 SHA-1 reference outputs.
		vectors := []struct {
			unix int64
			code string
		}{
			{59, "287082"},
			{1111111109, "081804"},
			{1111111111, "050471"},
			{1234567890, "005924"},
			{2000000000, "279037"},
		}

		for _, v := range vectors {
			code, err := Generate(rfcSecret, time.Unix(v.unix, 0))
			require.NoError(t, err)
			assert.Equal(t, v.code, code, "unix time %d", v.unix)
		}
	})

	t.Run("deterministic within one time bucket", func(t *testing.T) {
		a, err := Generate(rfcSecret, time.Unix(60, 0))
		require.NoError(t, err)
		b, err := Generate(rfcSecret, time.Unix(89, 0))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("changes across buckets", func(t *testing.T) {
		a, err := Generate(rfcSecret, time.Unix(59, 0))
		require.NoError(t, err)
		b, err := Generate(rfcSecret, time.Unix(60, 0))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("accepts lowercase and padded secrets", func(t *testing.T) {
		want, err := Generate(rfcSecret, time.Unix(59, 0))
		require.NoError(t, err)

		got, err := Generate("gezdgnbvgy3tqojqgezdgnbvgy3tqojq====", time.Unix(59, 0))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("always six digits", func(t *testing.T) {
		for _, unix := range []int64{1, 59, 1111111109, 20000000000} {
			code, err := Generate(rfcSecret, time.Unix(unix, 0))
			require.NoError(t, err)
			assert.Len(t, code, 6)
		}
	})

	t.Run("rejects invalid base32", func(t *testing.T) {
		_, err := Generate("not-base32!!", time.Unix(59, 0))
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidSecretFormat, apperrors.GetCode(err))
	})
}
