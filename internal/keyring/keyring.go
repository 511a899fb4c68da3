package keyring

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
)

var (
	// ErrPairLocked is raised when a locked pair is asked to sign
	ErrPairLocked = errors.New("key pair is locked")
	// ErrNoActiveAccount is raised when no account has been activated
	ErrNoActiveAccount = errors.New("no active account")
)

type (
	// KeyPair wraps an sr25519 pair with an explicit lock discipline: the
	// private half stays in memory only while the pair is unlocked.
	KeyPair struct {
		mu        sync.Mutex
		pair      *sr25519.Keypair
		publicKey []byte
		locked    bool
	}

	// ExternalSigner signs payloads for accounts whose pair is locked,
	// e.g. a browser extension or hardware wallet
	ExternalSigner interface {
		SignPayload(payload []byte, address string) ([]byte, error)
	}

	// Account is what the signing step receives: an unlocked pair, or a
	// bare address with an attached external signer
	Account struct {
		Pair     *KeyPair
		Address  string
		External ExternalSigner
	}

	// Keyring tracks the active account and its network prefix
	Keyring struct {
		mu       sync.Mutex
		prefix   uint16
		active   *KeyPair
		external ExternalSigner
	}
)

// NewKeyPairFromSeed builds an unlocked pair from a hex encoded seed
func NewKeyPairFromSeed(seedHex string) (*KeyPair, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	pair, err := sr25519.NewKeypairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &KeyPair{
		pair:      pair,
		publicKey: pair.Public().Encode(),
	}, nil
}

// PublicKey returns the raw public key, available locked or unlocked
func (kp *KeyPair) PublicKey() []byte {
	out := make([]byte, len(kp.publicKey))
	copy(out, kp.publicKey)
	return out
}

// Address encodes the public key under the given network prefix
func (kp *KeyPair) Address(prefix uint16) (string, error) {
	return EncodeAddress(kp.publicKey, prefix)
}

// Sign signs a payload with the private key. Fails when the pair is locked.
func (kp *KeyPair) Sign(payload []byte) ([]byte, error) {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	if kp.locked || kp.pair == nil {
		return nil, ErrPairLocked
	}
	return kp.pair.Sign(payload)
}

// Lock drops the private half from memory. Locking an already locked pair
// is a no-op.
func (kp *KeyPair) Lock() {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	if kp.locked {
		return
	}
	kp.locked = true
	kp.pair = nil
}

// Unlock restores the pair from its seed. The seed must produce the same
// public key the pair was created with.
func (kp *KeyPair) Unlock(seedHex string) error {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}
	pair, err := sr25519.NewKeypairFromSeed(seed)
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}
	if hex.EncodeToString(pair.Public().Encode()) != hex.EncodeToString(kp.publicKey) {
		return errors.New("seed does not match key pair")
	}

	kp.mu.Lock()
	defer kp.mu.Unlock()
	kp.pair = pair
	kp.locked = false
	return nil
}

// Locked reports the current lock state
func (kp *KeyPair) Locked() bool {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return kp.locked
}

func NewKeyring(prefix uint16) *Keyring {
	return &Keyring{prefix: prefix}
}

// SetActive makes a pair the active signing account
func (kr *Keyring) SetActive(pair *KeyPair) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.active = pair
}

// AttachSigner attaches an external signer used when the active pair is locked
func (kr *Keyring) AttachSigner(signer ExternalSigner) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.external = signer
}

// Prefix returns the keyring's ss58 network prefix
func (kr *Keyring) Prefix() uint16 {
	return kr.prefix
}

// ActiveAddress returns the active account's formatted address
func (kr *Keyring) ActiveAddress() (string, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	if kr.active == nil {
		return "", ErrNoActiveAccount
	}
	return kr.active.Address(kr.prefix)
}

// SigningAccount returns the account handed to the signing step: the pair
// when it is unlocked, otherwise the address plus the attached external signer
func (kr *Keyring) SigningAccount() (Account, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	if kr.active == nil {
		return Account{}, ErrNoActiveAccount
	}
	address, err := kr.active.Address(kr.prefix)
	if err != nil {
		return Account{}, err
	}
	account := Account{Address: address}
	if kr.active.Locked() {
		account.External = kr.external
	} else {
		account.Pair = kr.active
	}
	return account, nil
}

// ActivePair exposes the active pair for the post-signing lock step
func (kr *Keyring) ActivePair() *KeyPair {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.active
}
