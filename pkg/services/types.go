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

package services

import (
	"crypto"
	"crypto/x509"

	"github.com/beevik/etree"
)

const (
	// Valid is used to indicate a signature was valid at the time of testing
	Valid ValidationState = "VALID"
	// Invalid is used to indicate a signature was invalid at the time of testing
	Invalid ValidationState = "INVALID"
)

// ValidationState contains the outcome of a validation. It can be VALID or INVALID. This makes it human readable.
type ValidationState string

// ValidationResult is the judgment of a single trust strategy together with
// diagnostic text for operator triage.
type ValidationResult struct {
	State      ValidationState
	Diagnostic string
}

// Invalidated returns true when the strategy rejected the signature.
func (result ValidationResult) Invalidated() bool {
	return result.State != Valid
}

// SignedDocument is the output of a DocumentSigner: the document root with
// the signature embedded, plus a direct reference to the signature element.
type SignedDocument struct {
	Root      *etree.Element
	Signature *etree.Element
}

// DocumentSigner embeds a signature into a parsed document. Implementations
// must leave the input document untouched on failure. A failure is terminal
// for the document being signed; it is never retried.
type DocumentSigner interface {
	Sign(doc *etree.Document, key crypto.Signer, cert *x509.Certificate) (*SignedDocument, error)
}

// KeySelector resolves the certificates to trust when validating a
// signature. The element passed in is the signature element itself.
type KeySelector interface {
	Certificates(signature *etree.Element) ([]*x509.Certificate, error)
}

// SignatureValidator re-validates a freshly created signature against the
// certificates a KeySelector resolves. A returned error means the validation
// could not even be attempted (for example the selector found no usable key
// material); an invalid signature is reported through the result instead.
type SignatureValidator interface {
	Validate(signedRoot *etree.Element, signature *etree.Element, selector KeySelector) (ValidationResult, error)
}

// VerifyRequestBuilder constructs the verification request handed to the
// downstream verification process.
type VerifyRequestBuilder interface {
	Build(docRoot *etree.Element, signature *etree.Element) (*etree.Document, error)
}
