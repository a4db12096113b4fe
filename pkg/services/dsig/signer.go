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

// Package dsig implements the signing and validation services on top of
// goxmldsig: enveloped XML-DSig signatures over etree documents.
package dsig

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	xmldsig "github.com/russellhaering/goxmldsig"

	"github.com/signclient/signclient/pkg/services"
)

// EnvelopedSigner signs a document by appending an enveloped ds:Signature
// element to its root, using exclusive canonicalization.
type EnvelopedSigner struct{}

func NewSigner() *EnvelopedSigner {
	return &EnvelopedSigner{}
}

func (signer *EnvelopedSigner) Sign(doc *etree.Document, key crypto.Signer, cert *x509.Certificate) (*services.SignedDocument, error) {
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}

	keyStore := xmldsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
	})
	ctx := xmldsig.NewDefaultSigningContext(keyStore)
	ctx.Canonicalizer = xmldsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	// The signature reference resolves the root through its ID attribute,
	// and ordinary outgoing documents carry none. Give the copy one before
	// signing; the validator resolves the same attribute.
	signingRoot := root.Copy()
	if signingRoot.SelectAttrValue(ctx.IdAttribute, "") == "" {
		signingRoot.CreateAttr(ctx.IdAttribute, "_"+uuid.New().String())
	}

	signedRoot, err := ctx.SignEnveloped(signingRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signature")
	}

	signature := FindSignature(signedRoot)
	if signature == nil {
		return nil, errors.New("created signature element could not be located")
	}
	return &services.SignedDocument{Root: signedRoot, Signature: signature}, nil
}

// FindSignature locates the single enveloped ds:Signature element directly
// below the given root, or nil if there is none.
func FindSignature(root *etree.Element) *etree.Element {
	for i := len(root.ChildElements()) - 1; i >= 0; i-- {
		child := root.ChildElements()[i]
		if child.Tag == "Signature" {
			return child
		}
	}
	return nil
}
