package keys_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/ailab-client/token/keys"
	"github.com/stretchr/testify/require"
)

func TestGenerateRSAKeyPair(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("kid-1", 1024)
	require.NoError(t, err)
	require.Equal(t, keys.RS256, kp.Algorithm)
	require.Equal(t, jwt.SigningMethodRS256, kp.GetSigningMethod())

	jwk, err := kp.ToJWK()
	require.NoError(t, err)
	require.Equal(t, "RSA", jwk.Kty)
	require.Equal(t, "kid-1", jwk.Kid)
	require.Equal(t, "sig", jwk.Use)
	require.NotEmpty(t, jwk.N)
	require.Equal(t, "AQAB", jwk.E)
}

func TestKeyPairSignerRoundTrip(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)
	signer := keys.NewKeyPairSigner(kp)

	raw, err := signer.Sign(jwt.MapClaims{"sub": "user-1"})
	require.NoError(t, err)

	token, err := jwt.Parse(raw, signer.GetVerificationKey)
	require.NoError(t, err)
	require.Equal(t, "kid-1", token.Header["kid"])
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	jwks, err := signer.GetJWKS()
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
}

func TestHMACSigner(t *testing.T) {
	_, err := keys.NewHMACSigner([]byte("too-short"))
	require.Error(t, err)

	signer, err := keys.NewHMACSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	raw, err := signer.Sign(jwt.MapClaims{"sub": "user-1"})
	require.NoError(t, err)

	_, err = jwt.Parse(raw, signer.GetVerificationKey)
	require.NoError(t, err)

	kp, err := keys.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)
	_, err = jwt.Parse(raw, keys.NewKeyPairSigner(kp).GetVerificationKey)
	require.Error(t, err, "an RSA key must not verify an HMAC token")
}
