/*
 * Signclient
 * Copyright (C) 2021. Signclient community
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package keystore

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strings"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/pkg/errors"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Type identifies the on-disk keystore format.
type Type string

const (
	TypeJKS    Type = "jks"
	TypePKCS12 Type = "pkcs12"
	TypePEM    Type = "pem"
)

// TypeFromString maps a configuration value onto a keystore Type,
// case-insensitively. The empty string defaults to JKS.
func TypeFromString(value string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "jks":
		return TypeJKS, nil
	case "pkcs12", "p12", "pfx":
		return TypePKCS12, nil
	case "pem":
		return TypePEM, nil
	}
	return "", errors.Errorf("unsupported keystore type '%s'", value)
}

// KeyPair is the credential material every signing operation runs on. It is
// loaded once at startup and treated as read-only afterwards.
type KeyPair struct {
	PrivateKey  crypto.Signer
	Certificate *x509.Certificate
}

// Store is a loaded keystore from which private keys can be extracted.
type Store struct {
	storeType Type
	path      string
	jks       jks.KeyStore
	pair      *KeyPair
}

// Load opens and decrypts the keystore file. For PKCS#12 and PEM stores the
// single contained key pair is extracted immediately; JKS stores keep their
// entries encrypted until PrivateKey is called with the key password.
func Load(storeType Type, path, password string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keystore file '%s'", path)
	}

	store := &Store{storeType: storeType, path: path}
	switch storeType {
	case TypeJKS:
		ks := jks.New()
		if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
			return nil, errors.Wrapf(err, "failed to load JKS keystore '%s'", path)
		}
		store.jks = ks
	case TypePKCS12:
		key, cert, err := pkcs12.Decode(data, password)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load PKCS#12 keystore '%s'", path)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, errors.Errorf("the key in keystore '%s' cannot be used for signing", path)
		}
		if err := checkSigningKey(signer); err != nil {
			return nil, errors.Wrapf(err, "keystore '%s'", path)
		}
		store.pair = &KeyPair{PrivateKey: signer, Certificate: cert}
	case TypePEM:
		pair, err := decodePEM(data, path)
		if err != nil {
			return nil, err
		}
		store.pair = pair
	default:
		return nil, errors.Errorf("unsupported keystore type '%s'", storeType)
	}
	return store, nil
}

// PrivateKey extracts the key pair stored under the given alias. PKCS#12 and
// PEM stores hold exactly one pair; the alias is accepted but not used to
// select between entries there.
func (store *Store) PrivateKey(alias, password string) (*KeyPair, error) {
	if store.pair != nil {
		return store.pair, nil
	}

	entry, err := store.jks.GetPrivateKeyEntry(alias, []byte(password))
	if err != nil {
		return nil, errors.Wrapf(err, "no usable key under alias '%s'", alias)
	}
	key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse key under alias '%s'", alias)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("the key under alias '%s' cannot be used for signing", alias)
	}
	if err := checkSigningKey(signer); err != nil {
		return nil, errors.Wrapf(err, "alias '%s'", alias)
	}
	if len(entry.CertificateChain) == 0 {
		return nil, errors.Errorf("no certificate stored under alias '%s'", alias)
	}
	cert, err := x509.ParseCertificate(entry.CertificateChain[0].Content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse certificate under alias '%s'", alias)
	}
	return &KeyPair{PrivateKey: signer, Certificate: cert}, nil
}

// decodePEM reads the first private key and the first certificate from a PEM
// file. Both must be present.
func decodePEM(data []byte, path string) (*KeyPair, error) {
	pair := &KeyPair{}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			if pair.Certificate != nil {
				continue
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse certificate in '%s'", path)
			}
			pair.Certificate = cert
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			if pair.PrivateKey != nil {
				continue
			}
			key, err := parsePEMKey(block)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse private key in '%s'", path)
			}
			pair.PrivateKey = key
		}
	}
	if pair.PrivateKey == nil {
		return nil, errors.Errorf("no private key found in '%s'", path)
	}
	if pair.Certificate == nil {
		return nil, errors.Errorf("no certificate found in '%s'", path)
	}
	if err := checkSigningKey(pair.PrivateKey); err != nil {
		return nil, errors.Wrapf(err, "keystore '%s'", path)
	}
	return pair, nil
}

// checkSigningKey rejects key types the XML signer cannot use, so an
// unusable credential fails loudly at startup instead of per document.
func checkSigningKey(key crypto.Signer) error {
	if _, ok := key.(*rsa.PrivateKey); !ok {
		return errors.Errorf("unsupported key type %T, only RSA keys can be used for signing", key)
	}
	return nil
}

func parsePEMKey(block *pem.Block) (crypto.Signer, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.New("key cannot be used for signing")
	}
	return signer, nil
}
