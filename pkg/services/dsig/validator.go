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

package dsig

import (
	"crypto/x509"
	"encoding/base64"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	xmldsig "github.com/russellhaering/goxmldsig"

	"github.com/signclient/signclient/pkg/services"
)

// ConstantKeySelector trusts exactly the certificate supplied at signing
// time. Validating with it rules out transcription and algorithm-mismatch
// defects in the signer.
type ConstantKeySelector struct {
	Certificate *x509.Certificate
}

func (selector ConstantKeySelector) Certificates(signature *etree.Element) ([]*x509.Certificate, error) {
	if selector.Certificate == nil {
		return nil, errors.New("no certificate configured")
	}
	return []*x509.Certificate{selector.Certificate}, nil
}

// ContainedKeySelector trusts the certificate embedded in the signature's
// own KeyInfo. Validating with it rules out malformed embedded key material
// and detachment of the key info from the signature.
type ContainedKeySelector struct{}

func (selector ContainedKeySelector) Certificates(signature *etree.Element) ([]*x509.Certificate, error) {
	if signature == nil {
		return nil, errors.New("no signature element")
	}
	elements := signature.FindElements(".//X509Certificate")
	if len(elements) == 0 {
		return nil, errors.New("the signature contains no X509Certificate key info")
	}
	var certs []*x509.Certificate
	for _, element := range elements {
		der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(element.Text()))
		if err != nil {
			return nil, errors.Wrap(err, "the contained certificate is not valid base64")
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, errors.Wrap(err, "the contained certificate cannot be parsed")
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// Validator re-validates an enveloped signature against the trust anchors a
// KeySelector resolves. It never mutates its input: the element tree is
// deep-copied before goxmldsig sees it, so repeated runs over the same
// signed document yield the same judgment.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (validator *Validator) Validate(signedRoot *etree.Element, signature *etree.Element, selector services.KeySelector) (services.ValidationResult, error) {
	certs, err := selector.Certificates(signature)
	if err != nil {
		return services.ValidationResult{State: services.Invalid, Diagnostic: err.Error()}, err
	}

	ctx := xmldsig.NewDefaultValidationContext(&xmldsig.MemoryX509CertificateStore{
		Roots: certs,
	})
	if _, err := ctx.Validate(signedRoot.Copy()); err != nil {
		return services.ValidationResult{State: services.Invalid, Diagnostic: err.Error()}, nil
	}
	return services.ValidationResult{State: services.Valid, Diagnostic: "signature valid"}, nil
}
