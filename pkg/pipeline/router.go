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

package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Router takes the terminal decision for one processed document. It holds
// only the two destination directories resolved at startup; no state is
// carried across documents.
//
// Routing is write-then-remove: all output of a document is written before
// its source file is removed, so an interruption leaves the source in place
// for the next run and never a half-routed document without its source.
type Router struct {
	successDir string
	errorDir   string
	log        *logrus.Entry
}

func NewRouter(successDir, errorDir string, log *logrus.Entry) *Router {
	return &Router{successDir: successDir, errorDir: errorDir, log: log}
}

// Route places the document in exactly one destination and consumes the
// source file. An empty error list routes to success; anything else,
// including a failure while writing the success output, routes to error.
// The return value reports whether the document ended up in the success
// destination.
func (router *Router) Route(src string, signed *etree.Document, artifact *etree.Document, errs *ErrorList) bool {
	if errs.IsEmpty() {
		if err := router.routeSuccess(src, signed, artifact); err == nil {
			return true
		} else {
			errs.AddCause("failed to write the success output", err)
		}
	}
	if err := router.routeError(src, errs); err != nil {
		// The document still counts as routed to error; the source file is
		// left behind for the next run.
		router.log.WithError(err).Errorf("Failed to write the error report for %s", filepath.Base(src))
		return false
	}
	return false
}

func (router *Router) routeSuccess(src string, signed *etree.Document, artifact *etree.Document) error {
	base := filepath.Base(src)
	if signed == nil || artifact == nil {
		return errors.New("no signed document or artifact to place")
	}
	signedPath := filepath.Join(router.successDir, base)
	if err := signed.WriteToFile(signedPath); err != nil {
		return errors.Wrap(err, "failed to write the signed document")
	}
	if err := artifact.WriteToFile(filepath.Join(router.successDir, stem(base)+".verifyrequest.xml")); err != nil {
		// The document is about to be routed to error; a half-placed signed
		// file must not stay behind in the success destination.
		os.Remove(signedPath)
		return errors.Wrap(err, "failed to write the VerifyRequest artifact")
	}
	return os.Remove(src)
}

func (router *Router) routeError(src string, errs *ErrorList) error {
	base := filepath.Base(src)
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrap(err, "failed to read the source document")
	}
	if err := os.WriteFile(filepath.Join(router.errorDir, base), data, 0644); err != nil {
		return errors.Wrap(err, "failed to copy the source document")
	}
	report := errs.String() + "\n"
	if err := os.WriteFile(filepath.Join(router.errorDir, stem(base)+".error.txt"), []byte(report), 0644); err != nil {
		return errors.Wrap(err, "failed to write the error report")
	}
	return os.Remove(src)
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
