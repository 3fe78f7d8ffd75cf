package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "schedules/job-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", parsed.Subject)
	assert.Equal(t, "schedules/job-1.pdf", parsed.Path)
	assert.True(t, expiresAt.Equal(parsed.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("job-1", "schedules/job-1.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	parsed, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", parsed.Subject)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "schedules/job-1.pdf")
	require.NoError(t, err)

	_, err = signer.Parse("job-2"+token[len("job-1"):], false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
