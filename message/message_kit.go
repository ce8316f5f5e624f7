package message

import (
	"xdao.co/precore/envelope"
	"xdao.co/precore/keys"
	"xdao.co/precore/pre"
)

// MessageKit is a ciphertext together with the capsule needed to open or
// re-encrypt it.
type MessageKit struct {
	Capsule    pre.Capsule
	Ciphertext []byte
}

// EncryptMessage encrypts plaintext to pk.
func EncryptMessage(pk keys.PublicKey, plaintext []byte) (MessageKit, error) {
	capsule, ct, err := pre.Encrypt(pk, plaintext)
	if err != nil {
		return MessageKit{}, err
	}
	return MessageKit{Capsule: capsule, Ciphertext: ct}, nil
}

// Decrypt opens the kit with the secret key it was encrypted to.
func (k MessageKit) Decrypt(sk *keys.SecretKey) ([]byte, error) {
	return pre.DecryptOriginal(sk, k.Capsule, k.Ciphertext)
}

func (MessageKit) Brand() envelope.Brand     { return brandMessageKit }
func (MessageKit) Version() envelope.Version { return v1 }

func (k MessageKit) MarshalUnversioned() []byte {
	return (&envelope.Builder{}).
		Bytes(1, k.Capsule[:]).
		Bytes(2, k.Ciphertext).
		Finish()
}

func (k *MessageKit) UnmarshalUnversioned(minor uint16, data []byte) error {
	if err := envelope.CheckMinor(minor, v1.Minor); err != nil {
		return err
	}
	var out MessageKit
	seen, err := envelope.ReadFields(data, func(f envelope.Field) error {
		var err error
		switch f.Num {
		case 1:
			err = f.Fixed(out.Capsule[:])
		case 2:
			out.Ciphertext, err = f.Bytes()
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := seen.Require(1, 2); err != nil {
		return err
	}
	*k = out
	return nil
}
