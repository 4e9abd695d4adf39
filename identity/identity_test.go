package identity

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewRandomSigner()
	require.NoError(t, err)

	body := []byte(`{"registry":"0x01","new_admin":"0x02"}`)
	header, err := signer.Sign(body)
	require.NoError(t, err)

	caller, err := Verify(header, body)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), caller)

	_, err = Verify(header, []byte(`{"registry":"0x01","new_admin":"0x03"}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	signer, err := NewRandomSigner()
	require.NoError(t, err)
	other, err := NewRandomSigner()
	require.NoError(t, err)

	body := []byte("{}")
	header, err := signer.Sign(body)
	require.NoError(t, err)
	_, sig, _ := strings.Cut(header, ":")

	_, err = Verify("", body)
	assert.ErrorIs(t, err, ErrMissingSignature)

	for _, bad := range []string{
		"nocolon",
		"0x1234:" + sig,
		signer.Address().String() + ":0xzz",
		signer.Address().String() + ":0x1234",
		// valid signature claimed by someone else
		other.Address().String() + ":" + sig,
	} {
		_, err = Verify(bad, body)
		assert.ErrorIs(t, err, ErrInvalidSignature, bad)
	}
}

func TestVerify_LegacyRecoveryID(t *testing.T) {
	signer, err := NewRandomSigner()
	require.NoError(t, err)

	body := []byte("legacy")
	header, err := signer.Sign(body)
	require.NoError(t, err)

	addr, sigHex, _ := strings.Cut(header, ":")
	sig, err := hexutil.Decode(sigHex)
	require.NoError(t, err)
	sig[64] += 27

	caller, err := Verify(addr+":"+hexutil.Encode(sig), body)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), caller)
}

func TestSignerFromHex(t *testing.T) {
	signer, err := NewRandomSigner()
	require.NoError(t, err)

	loaded, err := NewSignerFromHex(signer.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), loaded.Address())

	_, err = NewSignerFromHex("0xnothex")
	assert.Error(t, err)
}

func TestCallerFromRequest(t *testing.T) {
	signer, err := NewRandomSigner()
	require.NoError(t, err)

	body := []byte(`{"members":[]}`)
	req := httptest.NewRequest("POST", "/api/registries", nil)
	require.NoError(t, signer.SignRequest(req, body))

	caller, err := CallerFromRequest(req, body)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), caller)

	_, err = CallerFromRequest(httptest.NewRequest("POST", "/api/registries", nil), body)
	assert.ErrorIs(t, err, ErrMissingSignature)
}
