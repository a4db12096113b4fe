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
	"bytes"
	"encoding/xml"
	"io"
	"os"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// loadDocument parses one candidate file as XML. etree's reader tolerates
// unbalanced tags, so a strict token walk runs first; anything it rejects
// is recorded as a parse error rather than silently signed.
func loadDocument(path string) (*etree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the file")
	}
	if err := checkWellFormed(data); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("the file contains no root element")
	}
	return doc, nil
}

// checkWellFormed walks every token with the strict decoder, which enforces
// tag balance and entity correctness.
func checkWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
