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

package jobs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Source enumerates the candidate documents of one batch run. The directory
// is listed exactly once; files appearing after that listing belong to the
// next run.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Files returns the ordinary files inside the outgoing directory.
// Subdirectories and irregular entries are skipped. No ordering is
// guaranteed beyond what the platform provides.
func (source *Source) Files() ([]string, error) {
	entries, err := os.ReadDir(source.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list outgoing directory '%s'", source.dir)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(source.dir, entry.Name()))
	}
	return files, nil
}
