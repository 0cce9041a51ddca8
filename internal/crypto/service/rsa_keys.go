package service

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // PBKDF2 default PRF for keys produced by older tooling
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
)

var (
	oidPBES2          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPBKDF2         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}
	oidHMACWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 7}
	oidHMACWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 9}
	oidAES128CBC      = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	oidAES192CBC      = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	oidAES256CBC      = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
)

const pbkdf2Iterations = 100_000

type encryptedPrivateKeyInfo struct {
	Algo          pkix.AlgorithmIdentifier
	EncryptedData []byte
}

type pbes2Params struct {
	KeyDerivationFunc pkix.AlgorithmIdentifier
	EncryptionScheme  pkix.AlgorithmIdentifier
}

type pbkdf2Params struct {
	Salt           []byte
	IterationCount int
	KeyLength      int                      `asn1:"optional"`
	PRF            pkix.AlgorithmIdentifier `asn1:"optional"`
}

// ParsePrivateKeyPEM loads an RSA private key from PEM. PKCS#1 and PKCS#8 blocks
// are accepted, either plain, PBES2-encrypted ("ENCRYPTED PRIVATE KEY") or
// protected by legacy PEM encryption headers.
func ParsePrivateKeyPEM(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", cryptoDomain.ErrInvalidPrivateKey)
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // openssl rsa -aes256 still emits these
		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
		}
		der = decrypted
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
		}
		return key, nil
	case "ENCRYPTED PRIVATE KEY":
		decrypted, err := decryptPKCS8(der, passphrase)
		if err != nil {
			return nil, err
		}
		der = decrypted
	case "PRIVATE KEY":
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", cryptoDomain.ErrInvalidPrivateKey, block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", cryptoDomain.ErrInvalidPrivateKey)
	}
	return key, nil
}

// ParsePublicKeyPEM loads an RSA public key from a PKIX or PKCS#1 PEM block.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", cryptoDomain.ErrInvalidPublicKey)
	}

	if block.Type == "RSA PUBLIC KEY" {
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPublicKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", cryptoDomain.ErrInvalidPublicKey)
	}
	return key, nil
}

// MarshalPublicKeyPEM encodes key as a PKIX "PUBLIC KEY" PEM block.
func MarshalPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// MarshalEncryptedPrivateKeyPEM encodes key as PKCS#8 encrypted with PBES2
// (PBKDF2-HMAC-SHA256, AES-256-CBC). An empty passphrase yields a plain PKCS#8 block.
func MarshalEncryptedPrivateKeyPEM(key *rsa.PrivateKey, passphrase string) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	}

	salt := make([]byte, 16)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	derived := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, 32, sha256.New)
	ciphertext, err := encryptCBC(derived, iv, der)
	if err != nil {
		return nil, err
	}

	kdfParams, err := asn1.Marshal(pbkdf2Params{
		Salt:           salt,
		IterationCount: pbkdf2Iterations,
		KeyLength:      32,
		PRF:            pkix.AlgorithmIdentifier{Algorithm: oidHMACWithSHA256, Parameters: asn1.NullRawValue},
	})
	if err != nil {
		return nil, err
	}
	ivParams, err := asn1.Marshal(iv)
	if err != nil {
		return nil, err
	}
	schemeParams, err := asn1.Marshal(pbes2Params{
		KeyDerivationFunc: pkix.AlgorithmIdentifier{
			Algorithm:  oidPBKDF2,
			Parameters: asn1.RawValue{FullBytes: kdfParams},
		},
		EncryptionScheme: pkix.AlgorithmIdentifier{
			Algorithm:  oidAES256CBC,
			Parameters: asn1.RawValue{FullBytes: ivParams},
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := asn1.Marshal(encryptedPrivateKeyInfo{
		Algo: pkix.AlgorithmIdentifier{
			Algorithm:  oidPBES2,
			Parameters: asn1.RawValue{FullBytes: schemeParams},
		},
		EncryptedData: ciphertext,
	})
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: out}), nil
}

func decryptPKCS8(der []byte, passphrase string) ([]byte, error) {
	var info encryptedPrivateKeyInfo
	if _, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
	}
	if !info.Algo.Algorithm.Equal(oidPBES2) {
		return nil, fmt.Errorf("%w: only PBES2 is supported", cryptoDomain.ErrInvalidPrivateKey)
	}

	var scheme pbes2Params
	if _, err := asn1.Unmarshal(info.Algo.Parameters.FullBytes, &scheme); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
	}
	if !scheme.KeyDerivationFunc.Algorithm.Equal(oidPBKDF2) {
		return nil, fmt.Errorf("%w: only PBKDF2 is supported", cryptoDomain.ErrInvalidPrivateKey)
	}

	var kdf pbkdf2Params
	if _, err := asn1.Unmarshal(scheme.KeyDerivationFunc.Parameters.FullBytes, &kdf); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
	}

	var prf func() hash.Hash
	switch {
	case len(kdf.PRF.Algorithm) == 0, kdf.PRF.Algorithm.Equal(oidHMACWithSHA1):
		prf = sha1.New
	case kdf.PRF.Algorithm.Equal(oidHMACWithSHA256):
		prf = sha256.New
	default:
		return nil, fmt.Errorf("%w: unsupported PRF", cryptoDomain.ErrInvalidPrivateKey)
	}

	var keyLen int
	switch {
	case scheme.EncryptionScheme.Algorithm.Equal(oidAES128CBC):
		keyLen = 16
	case scheme.EncryptionScheme.Algorithm.Equal(oidAES192CBC):
		keyLen = 24
	case scheme.EncryptionScheme.Algorithm.Equal(oidAES256CBC):
		keyLen = 32
	default:
		return nil, fmt.Errorf("%w: unsupported cipher", cryptoDomain.ErrInvalidPrivateKey)
	}

	var iv []byte
	if _, err := asn1.Unmarshal(scheme.EncryptionScheme.Parameters.FullBytes, &iv); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPrivateKey, err)
	}

	derived := pbkdf2.Key([]byte(passphrase), kdf.Salt, kdf.IterationCount, keyLen, prf)
	plain, err := decryptCBC(derived, iv, info.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase", cryptoDomain.ErrInvalidPrivateKey)
	}
	return plain, nil
}
