package jwt

import (
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestGenerateYParse(t *testing.T) {
	tok, err := Generate(testSecret, "u-1", "manager", "storeflow-test", 60)
	require.NoError(t, err)

	userID, role, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "manager", role)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate(testSecret, "u-1", "admin", "storeflow-test", -1)
	require.NoError(t, err)

	_, _, err = Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(testSecret, "u-1", "admin", "storeflow-test", 60)
	require.NoError(t, err)

	_, _, err = Parse("otro-secret", tok)
	assert.Error(t, err)
}

func TestParse_RechazaOtroAlgoritmo(t *testing.T) {
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{UserID: "u-1", Role: "admin"}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = Parse(testSecret, tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := Generate("", "u-1", "admin", "x", 60)
	assert.Error(t, err)
}
