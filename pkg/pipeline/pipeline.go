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

// Package pipeline contains the per-document signing workflow and the
// outcome routing: load, sign, self-verify through two trust strategies,
// build the verification request, route on the accumulated error list.
package pipeline

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/signclient/signclient/pkg/services"
)

// Config wires the pipeline's collaborators. Signer, Validator and Builder
// are interfaces so tests can substitute fakes without real key material.
type Config struct {
	Signer       services.DocumentSigner
	Validator    services.SignatureValidator
	Builder      services.VerifyRequestBuilder
	ConstantKey  services.KeySelector
	ContainedKey services.KeySelector
	Key          crypto.Signer
	Certificate  *x509.Certificate
	Router       *Router
	Logger       *logrus.Entry
}

// Pipeline processes the documents of one batch run sequentially. The key
// and certificate are read-only; no state is shared between documents.
type Pipeline struct {
	cfg Config
}

// Result summarizes one batch run. Per-document failures are counted here,
// never escalated to a process failure.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run processes every file and routes it to exactly one destination. A
// document's failure never aborts the batch.
func (p *Pipeline) Run(files []string) Result {
	result := Result{}
	for _, file := range files {
		result.Processed++
		if p.processFile(file) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

// processFile runs the full workflow for one candidate document and reports
// whether it was routed to the success destination.
func (p *Pipeline) processFile(path string) bool {
	log := p.cfg.Logger.WithField("file", filepath.Base(path))
	log.Infof("Trying to process XML file %s", filepath.Base(path))

	errs := &ErrorList{}
	var signed *services.SignedDocument
	var artifact *etree.Document

	doc, err := loadDocument(path)
	if err != nil {
		errs.AddCause("the file is not well-formed XML", err)
	}

	if errs.IsEmpty() {
		log.Info("Signing document")
		var err error
		signed, err = p.cfg.Signer.Sign(doc, p.cfg.Key, p.cfg.Certificate)
		if err != nil {
			errs.AddCause("failed to sign the document", err)
		}
	}

	if errs.IsEmpty() {
		log.Info("Validating created signature")
		p.selfVerify(signed, errs)
	}

	if errs.IsEmpty() {
		log.Info("Creating VerifyRequest")
		var err error
		artifact, err = p.cfg.Builder.Build(signed.Root, signed.Signature)
		if err != nil {
			errs.AddCause("failed to create the VerifyRequest", err)
		}
	}

	var signedDoc *etree.Document
	if signed != nil {
		signedDoc = etree.NewDocument()
		signedDoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		signedDoc.SetRoot(signed.Root)
	}

	routedOK := p.cfg.Router.Route(path, signedDoc, artifact, errs)
	if routedOK {
		log.Info("Routed to success destination")
	} else {
		log.Warnf("Routed to error destination: %s", errs.String())
	}
	return routedOK
}

// selfVerify runs both trust strategies over the created signature. Both
// always run: a failure of the first must not hide the second's diagnostic.
// Either judgment being invalid is fatal for the document and records the
// diagnostics of both strategies.
func (p *Pipeline) selfVerify(signed *services.SignedDocument, errs *ErrorList) {
	constant, _ := p.cfg.Validator.Validate(signed.Root, signed.Signature, p.cfg.ConstantKey)
	contained, _ := p.cfg.Validator.Validate(signed.Root, signed.Signature, p.cfg.ContainedKey)

	if constant.Invalidated() || contained.Invalidated() {
		errs.Add(fmt.Sprintf("signature self-test with constant provided key: %s: %s", constant.State, constant.Diagnostic))
		errs.Add(fmt.Sprintf("signature self-test with contained key: %s: %s", contained.State, contained.Diagnostic))
	}
}
