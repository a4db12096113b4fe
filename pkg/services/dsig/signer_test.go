package dsig

import (
	"crypto"
	"crypto/x509"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"

	"github.com/signclient/signclient/pkg/services"
	"github.com/signclient/signclient/test"
)

const sampleInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:example:invoice"><Number>12345</Number><Amount>100.00</Amount></Invoice>`

func parseSample(t *testing.T) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(sampleInvoice); err != nil {
		t.Fatal(err)
	}
	return doc
}

func signSample(t *testing.T, key crypto.Signer, cert *x509.Certificate) *services.SignedDocument {
	t.Helper()
	signed, err := NewSigner().Sign(parseSample(t), key, cert)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestEnvelopedSigner_Sign(t *testing.T) {
	key, cert := test.GenerateKeyAndCertificate(t)

	t.Run("embeds a locatable signature element", func(t *testing.T) {
		signed := signSample(t, key, cert)

		assert.NotNil(t, signed.Signature)
		assert.Equal(t, "Signature", signed.Signature.Tag)
		assert.Same(t, signed.Signature, FindSignature(signed.Root))
	})

	t.Run("embeds the signing certificate as key info", func(t *testing.T) {
		signed := signSample(t, key, cert)

		certs, err := ContainedKeySelector{}.Certificates(signed.Signature)
		if !assert.NoError(t, err) {
			return
		}
		if assert.Len(t, certs, 1) {
			assert.Equal(t, cert.Raw, certs[0].Raw)
		}
	})

	t.Run("gives a document without an ID attribute a signing id", func(t *testing.T) {
		signed := signSample(t, key, cert)

		// The sample carries no ID of its own; without one the signature
		// reference has nothing to resolve and signing must not fail.
		assert.NotEmpty(t, signed.Root.SelectAttrValue("ID", ""))
	})

	t.Run("keeps an existing ID attribute", func(t *testing.T) {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(`<Invoice ID="doc-1"><Number>1</Number></Invoice>`); err != nil {
			t.Fatal(err)
		}

		signed, err := NewSigner().Sign(doc, key, cert)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "doc-1", signed.Root.SelectAttrValue("ID", ""))

		result, err := NewValidator().Validate(signed.Root, signed.Signature, ConstantKeySelector{Certificate: cert})
		assert.NoError(t, err)
		assert.Equal(t, services.Valid, result.State)
	})

	t.Run("a document without a root element cannot be signed", func(t *testing.T) {
		_, err := NewSigner().Sign(etree.NewDocument(), key, cert)
		assert.EqualError(t, err, "document has no root element")
	})
}

func TestValidator_Validate(t *testing.T) {
	key, cert := test.GenerateKeyAndCertificate(t)
	validator := NewValidator()

	t.Run("round-trip: both strategies accept a correctly signed document", func(t *testing.T) {
		signed := signSample(t, key, cert)

		constant, err := validator.Validate(signed.Root, signed.Signature, ConstantKeySelector{Certificate: cert})
		assert.NoError(t, err)
		assert.Equal(t, services.Valid, constant.State)

		contained, err := validator.Validate(signed.Root, signed.Signature, ContainedKeySelector{})
		assert.NoError(t, err)
		assert.Equal(t, services.Valid, contained.State)
	})

	t.Run("validation is idempotent", func(t *testing.T) {
		signed := signSample(t, key, cert)

		for i := 0; i < 2; i++ {
			result, err := validator.Validate(signed.Root, signed.Signature, ConstantKeySelector{Certificate: cert})
			assert.NoError(t, err)
			assert.Equal(t, services.Valid, result.State)
		}
	})

	t.Run("tampered content is rejected with a diagnostic", func(t *testing.T) {
		signed := signSample(t, key, cert)
		signed.Root.FindElement(".//Amount").SetText("999.99")

		result, err := validator.Validate(signed.Root, signed.Signature, ConstantKeySelector{Certificate: cert})
		assert.NoError(t, err)
		assert.Equal(t, services.Invalid, result.State)
		assert.NotEmpty(t, result.Diagnostic)
	})

	t.Run("a foreign certificate is not trusted", func(t *testing.T) {
		signed := signSample(t, key, cert)
		_, otherCert := test.GenerateKeyAndCertificate(t)

		result, err := validator.Validate(signed.Root, signed.Signature, ConstantKeySelector{Certificate: otherCert})
		assert.NoError(t, err)
		assert.Equal(t, services.Invalid, result.State)
	})

	t.Run("a selector without key material cannot validate", func(t *testing.T) {
		signed := signSample(t, key, cert)

		result, err := validator.Validate(signed.Root, signed.Signature, ConstantKeySelector{})
		assert.Error(t, err)
		assert.Equal(t, services.Invalid, result.State)
	})
}

func TestContainedKeySelector_Certificates(t *testing.T) {
	t.Run("a signature without key info yields no certificates", func(t *testing.T) {
		signature := etree.NewElement("Signature")

		_, err := ContainedKeySelector{}.Certificates(signature)
		assert.EqualError(t, err, "the signature contains no X509Certificate key info")
	})

	t.Run("a nil signature element is rejected", func(t *testing.T) {
		_, err := ContainedKeySelector{}.Certificates(nil)
		assert.Error(t, err)
	})

	t.Run("garbage key material is rejected", func(t *testing.T) {
		signature := etree.NewElement("Signature")
		signature.CreateElement("KeyInfo").CreateElement("X509Data").CreateElement("X509Certificate").SetText("not-base64!")

		_, err := ContainedKeySelector{}.Certificates(signature)
		assert.Error(t, err)
	})
}
