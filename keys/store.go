package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnvKeysDir overrides the default key store directory.
const EnvKeysDir = "PRECORE_KEYS_DIR"

// KeyStore keeps identity seeds on the local filesystem.
//
// Layout:
//
//	<dir>/<name>/root.key
//	<dir>/<name>/roles/<role>.key
//
// Each file holds one hex-encoded 32-byte seed, written with mode 0600.
type KeyStore struct {
	Directory string
}

// KeyEntry lists one stored identity and the roles derived from it.
type KeyEntry struct {
	Name  string
	Roles []string
}

// PublicIdentity is the exportable half of an identity.
type PublicIdentity struct {
	VerifyingKey  VerifyingKey
	EncryptingKey PublicKey
}

func publicOf(id Identity) PublicIdentity {
	return PublicIdentity{VerifyingKey: id.VerifyingKey(), EncryptingKey: id.PublicKey()}
}

// GetDefaultDirectory returns $PRECORE_KEYS_DIR, or ~/.xdao/precore/keys.
func GetDefaultDirectory() (string, error) {
	if dir := os.Getenv(EnvKeysDir); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "precore", "keys"), nil
}

// CreateKeyStore opens a store rooted at directory, or the default
// directory when it is empty. Nothing is created until a key is written.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) rolePath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func checkToken(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", c, kind)
	}
	return nil
}

// CheckKeyName validates an identity name.
func CheckKeyName(name string) error { return checkToken("name", name) }

// CheckRole validates a role name.
func CheckRole(role string) error { return checkToken("role", role) }

// ParseSeedHex parses a hex seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	return data, nil
}

// NewSeed reads a fresh seed from r, or crypto/rand when r is nil.
func NewSeed(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return f.Close()
}

func readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitializeRootKey stores seed as the root of identity name. Existing keys
// are kept unless overwrite is set.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (PublicIdentity, string, error) {
	if err := CheckKeyName(name); err != nil {
		return PublicIdentity{}, "", err
	}
	id, err := IdentityFromSeed(seed)
	if err != nil {
		return PublicIdentity{}, "", err
	}
	path := ks.rootPath(name)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return PublicIdentity{}, "", err
	}
	return publicOf(id), path, nil
}

// DeriveKeyFromRole derives and stores the role seed of an existing root.
func (ks *KeyStore) DeriveKeyFromRole(name, role string, overwrite bool) (PublicIdentity, string, error) {
	if err := CheckKeyName(name); err != nil {
		return PublicIdentity{}, "", err
	}
	if err := CheckRole(role); err != nil {
		return PublicIdentity{}, "", err
	}
	root, err := readSeed(ks.rootPath(name))
	if err != nil {
		return PublicIdentity{}, "", err
	}
	seed, err := DeriveRoleSeed(root, role)
	if err != nil {
		return PublicIdentity{}, "", err
	}
	id, err := IdentityFromSeed(seed)
	if err != nil {
		return PublicIdentity{}, "", err
	}
	path := ks.rolePath(name, role)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return PublicIdentity{}, "", err
	}
	return publicOf(id), path, nil
}

// ExportKey returns the public keys of a stored root or role identity.
func (ks *KeyStore) ExportKey(name, role string) (PublicIdentity, error) {
	id, err := ks.LoadIdentity("", name, role, "")
	if err != nil {
		return PublicIdentity{}, err
	}
	return publicOf(id), nil
}

// LoadIdentity resolves an identity from, in order of precedence, a hex
// seed, a key file, or a stored name and optional role.
func (ks *KeyStore) LoadIdentity(seedHex, name, role, keyFile string) (Identity, error) {
	var (
		seed []byte
		err  error
	)
	switch {
	case seedHex != "":
		seed, err = ParseSeedHex(seedHex)
	case keyFile != "":
		seed, err = readSeed(keyFile)
	case name != "":
		if err := CheckKeyName(name); err != nil {
			return Identity{}, err
		}
		if role == "" {
			seed, err = readSeed(ks.rootPath(name))
			break
		}
		if err := CheckRole(role); err != nil {
			return Identity{}, err
		}
		seed, err = readSeed(ks.rolePath(name, role))
	default:
		return Identity{}, errors.New("no signer provided")
	}
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromSeed(seed)
}

// ListKeys returns every stored identity, sorted by name, with its roles.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []KeyEntry
	for _, name := range names {
		var roles []string
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles"))
		if rerr == nil {
			for _, re := range roleEntries {
				if !re.IsDir() && strings.HasSuffix(re.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(re.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		out = append(out, KeyEntry{Name: name, Roles: roles})
	}
	return out, nil
}
