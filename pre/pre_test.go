package pre

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/precore/ids"
	"xdao.co/precore/keys"
)

func secretKey(t *testing.T, b byte) *keys.SecretKey {
	t.Helper()
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	sk, err := keys.SecretKeyFromSeed(seed)
	require.NoError(t, err)
	return sk
}

func signer(t *testing.T, b byte) *keys.Signer {
	t.Helper()
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	s, err := keys.SignerFromSeed(seed)
	require.NoError(t, err)
	return s
}

func TestEncryptDecrypt(t *testing.T) {
	alice := secretKey(t, 1)
	capsule, ct, err := Encrypt(alice.PublicKey(), []byte("attack at dawn"))
	require.NoError(t, err)

	pt, err := DecryptOriginal(alice, capsule, ct)
	require.NoError(t, err)
	require.Equal(t, []byte("attack at dawn"), pt)

	_, err = DecryptOriginal(secretKey(t, 2), capsule, ct)
	require.ErrorIs(t, err, ErrDecryption)

	ct[0] ^= 1
	_, err = DecryptOriginal(alice, capsule, ct)
	require.ErrorIs(t, err, ErrDecryption)
}

func TestEncrypt_FreshCapsules(t *testing.T) {
	pk := secretKey(t, 1).PublicKey()
	c1, _, err := Encrypt(pk, []byte("x"))
	require.NoError(t, err)
	c2, _, err := Encrypt(pk, []byte("x"))
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)
}

func TestKFrags_Recover(t *testing.T) {
	alice := secretKey(t, 1)
	bob := secretKey(t, 2).PublicKey()

	kfrags, err := GenerateKFrags(alice, bob, 3, 5)
	require.NoError(t, err)
	require.Len(t, kfrags, 5)

	want, err := delegationSecret(alice, bob)
	require.NoError(t, err)
	wantBytes, err := want.MarshalBinary()
	require.NoError(t, err)

	got, err := RecoverSecret([]KeyFrag{kfrags[4], kfrags[0], kfrags[2]}, 3)
	require.NoError(t, err)
	require.Equal(t, wantBytes, got)

	_, err = RecoverSecret(kfrags[:2], 3)
	require.Error(t, err)
}

func TestGenerateKFrags_Rejects(t *testing.T) {
	alice := secretKey(t, 1)
	bob := secretKey(t, 2).PublicKey()
	_, err := GenerateKFrags(alice, bob, 0, 3)
	require.Error(t, err)
	_, err = GenerateKFrags(alice, bob, 4, 3)
	require.Error(t, err)
}

func TestKeyFrag_Bytes(t *testing.T) {
	kfrags, err := GenerateKFrags(secretKey(t, 1), secretKey(t, 2).PublicKey(), 1, 2)
	require.NoError(t, err)
	back, err := KeyFragFromBytes(kfrags[1].Bytes())
	require.NoError(t, err)
	require.Equal(t, kfrags[1], back)

	_, err = KeyFragFromBytes(kfrags[1].Bytes()[1:])
	require.Error(t, err)
}

func TestSealKeyFrag(t *testing.T) {
	publisher := signer(t, 9)
	ursula := secretKey(t, 3)
	hrac := ids.NewHRAC([]byte("pub"), []byte("bob"), []byte("label"))

	kfrags, err := GenerateKFrags(secretKey(t, 1), secretKey(t, 2).PublicKey(), 1, 1)
	require.NoError(t, err)

	ekfrag, err := SealKeyFrag(publisher, ursula.PublicKey(), hrac, kfrags[0])
	require.NoError(t, err)

	parsed, err := EncryptedKeyFragFromBytes(ekfrag.Bytes())
	require.NoError(t, err)
	require.True(t, parsed.Equal(ekfrag))

	kf, err := parsed.Open(ursula, hrac, publisher.VerifyingKey())
	require.NoError(t, err)
	require.Equal(t, kfrags[0], kf)

	_, err = parsed.Open(ursula, hrac, signer(t, 10).VerifyingKey())
	require.ErrorIs(t, err, ErrVerification)

	other := ids.NewHRAC([]byte("pub"), []byte("bob"), []byte("other"))
	_, err = parsed.Open(ursula, other, publisher.VerifyingKey())
	require.ErrorIs(t, err, ErrDecryption)

	_, err = parsed.Open(secretKey(t, 4), hrac, publisher.VerifyingKey())
	require.ErrorIs(t, err, ErrDecryption)

	_, err = EncryptedKeyFragFromBytes(make([]byte, CapsuleSize))
	require.Error(t, err)
}
