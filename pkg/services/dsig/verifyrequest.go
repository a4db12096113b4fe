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
	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/signclient/signclient/pkg/services"
)

// DSSNamespace is the OASIS DSS core schema namespace the VerifyRequest is
// expressed in.
const DSSNamespace = "urn:oasis:names:tc:dss:1.0:core:schema"

// RequestIDAttr carries the unique id of one verification request.
const RequestIDAttr = "RequestID"

// DSSRequestBuilder builds a dss:VerifyRequest from a signed document's root
// element and its signature element.
type DSSRequestBuilder struct{}

func NewVerifyRequestBuilder() *DSSRequestBuilder {
	return &DSSRequestBuilder{}
}

func (builder *DSSRequestBuilder) Build(docRoot *etree.Element, signature *etree.Element) (*etree.Document, error) {
	if docRoot == nil {
		return nil, errors.New("no document root element")
	}
	if signature == nil {
		return nil, errors.New("no signature element")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	request := doc.CreateElement("dss:VerifyRequest")
	request.CreateAttr("xmlns:dss", DSSNamespace)
	request.CreateAttr(RequestIDAttr, uuid.New().String())

	inputDocuments := request.CreateElement("dss:InputDocuments")
	document := inputDocuments.CreateElement("dss:Document")
	document.AddChild(docRoot.Copy())

	signatureObject := request.CreateElement("dss:SignatureObject")
	signatureObject.AddChild(signature.Copy())

	return doc, nil
}

var _ services.VerifyRequestBuilder = (*DSSRequestBuilder)(nil)
