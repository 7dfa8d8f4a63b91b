package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSetCookie(t *testing.T) {
	t.Run("extracts name=value and drops attributes", func(t *testing.T) {
		jar := ParseSetCookie("kf_session=abc123; Path=/; HttpOnly; Secure")

		assert.Equal(t, 1, jar.Len())
		assert.Equal(t, "abc123", jar.Get("kf_session"))
		assert.Equal(t, "kf_session=abc123", jar.Header())
	})

	t.Run("splits comma-joined batches", func(t *testing.T) {
		jar := ParseSetCookie("a=1; Path=/, b=2; Path=/")

		assert.Equal(t, 2, jar.Len())
		assert.Equal(t, "a=1; b=2", jar.Header())
	})

	t.Run("does not split on commas inside Expires attributes", func(t *testing.T) {
		raw := "enctoken=tok%3D%3D; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/, public_token=pub; Path=/"
		jar := ParseSetCookie(raw)

		assert.Equal(t, 2, jar.Len())
		assert.Equal(t, "tok%3D%3D", jar.Get("enctoken"))
		assert.Equal(t, "pub", jar.Get("public_token"))
	})

	t.Run("keeps equals signs inside values", func(t *testing.T) {
		jar := ParseSetCookie("token=abc==def; Path=/")
		assert.Equal(t, "abc==def", jar.Get("token"))
	})

	t.Run("ignores fragments without a pair", func(t *testing.T) {
		jar := ParseSetCookie("")
		assert.Equal(t, 0, jar.Len())
		assert.Equal(t, "", jar.Header())
	})

	t.Run("missing cookie returns empty string", func(t *testing.T) {
		jar := ParseSetCookie("a=1; Path=/")
		assert.Equal(t, "", jar.Get("nope"))
	})
}

func TestMerge(t *testing.T) {
	t.Run("merges two responses in source order", func(t *testing.T) {
		jar := ParseSetCookie("a=1; Path=/, b=2; Path=/")
		second := ParseSetCookie("c=3; Path=/")
		jar.Merge(second)

		assert.Equal(t, "a=1; b=2; c=3", jar.Header())
	})

	t.Run("merge keeps duplicates from later batches", func(t *testing.T) {
		jar := ParseSetCookie("a=1")
		jar.Merge(ParseSetCookie("a=2"))

		// First write wins on Get, both survive serialization.
		assert.Equal(t, "1", jar.Get("a"))
		assert.Equal(t, "a=1; a=2", jar.Header())
	})
}
