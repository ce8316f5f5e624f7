package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/precore/ids"
)

func TestMessageKit_EncryptDecrypt(t *testing.T) {
	bob := identity(t, 2)
	mk, err := EncryptMessage(bob.PublicKey(), []byte("payload"))
	require.NoError(t, err)

	var back MessageKit
	require.NoError(t, Unmarshal(Marshal(mk), &back))
	require.Equal(t, mk, back)

	pt, err := back.Decrypt(bob.SecretKey)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), pt)

	_, err = back.Decrypt(identity(t, 3).SecretKey)
	require.Error(t, err)
}

func TestRetrievalKit_Accumulates(t *testing.T) {
	mk, err := EncryptMessage(identity(t, 2).PublicKey(), []byte("payload"))
	require.NoError(t, err)

	a, b := address(0xaa), address(0x0b)
	empty := RetrievalKitFromMessageKit(mk)
	require.Equal(t, mk.Capsule, empty.Capsule)
	require.Zero(t, empty.Len())
	require.Empty(t, empty.QueriedAddresses())

	k1 := empty.Record(a).Record(b).Record(a)
	k2 := empty.Record(b, a, a)
	require.Equal(t, []ids.Address{b, a}, k1.QueriedAddresses())
	require.Equal(t, k1, k2)
	require.True(t, k1.HasQueried(a))
	require.True(t, k1.HasQueried(b))
	require.False(t, k1.HasQueried(address(0x01)))
	require.Zero(t, empty.Len(), "Record must not change the receiver")
}

func TestRetrievalKit_RoundTrip(t *testing.T) {
	mk, err := EncryptMessage(identity(t, 2).PublicKey(), []byte("payload"))
	require.NoError(t, err)
	for _, kit := range []RetrievalKit{
		RetrievalKitFromMessageKit(mk),
		NewRetrievalKit(mk.Capsule, address(3), address(1), address(2), address(1)),
	} {
		var back RetrievalKit
		require.NoError(t, Unmarshal(Marshal(kit), &back))
		require.Equal(t, kit, back)
	}
}

func TestRetrievalKit_CanonicalBytes(t *testing.T) {
	mk, err := EncryptMessage(identity(t, 2).PublicKey(), []byte("payload"))
	require.NoError(t, err)
	k1 := NewRetrievalKit(mk.Capsule, address(1), address(2))
	k2 := NewRetrievalKit(mk.Capsule, address(2), address(1), address(2))
	require.Equal(t, Marshal(k1), Marshal(k2))
}
