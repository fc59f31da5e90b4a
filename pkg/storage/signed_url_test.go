package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Hour)

	token, expiresAt, err := signer.Generate("blob-1.jpg")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	name, parsedExp, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "blob-1.jpg", name)
	assert.Equal(t, expiresAt.Unix(), parsedExp.Unix())
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Hour)

	token, _, err := signer.Generate("blob-1.jpg")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	// swap the blob name for another one, keep the signature
	forged := parts[0] + ".YW5vdGhlci5qcGc" + "." + parts[2]

	_, _, err = signer.Parse(forged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("topsecret", time.Hour).Generate("blob-1.jpg")
	require.NoError(t, err)

	_, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)
}

func TestSignedURLRejectsExpiredToken(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Nanosecond)

	token, _, err := signer.Generate("blob-1.jpg")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, _, err = signer.Parse(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSignedURLRejectsGarbage(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Hour)

	_, _, err := signer.Parse("not-a-token")
	require.Error(t, err)

	_, _, err = signer.Parse("1.2.3.4")
	require.Error(t, err)
}

func TestSignedURLRequiresSecret(t *testing.T) {
	signer := NewSignedURLSigner("", time.Hour)
	_, _, err := signer.Generate("blob-1.jpg")
	require.Error(t, err)
}
