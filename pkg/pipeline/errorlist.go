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

import "strings"

// ErrorEntry is one recorded failure: a human-readable message and, when
// available, the underlying cause.
type ErrorEntry struct {
	Message string
	Cause   error
}

func (entry ErrorEntry) String() string {
	if entry.Cause != nil {
		return entry.Message + ": " + entry.Cause.Error()
	}
	return entry.Message
}

// ErrorList collects the failures of exactly one candidate document. It is
// append-only while the document is processed; its emptiness is the sole
// routing predicate.
type ErrorList struct {
	entries []ErrorEntry
}

func (list *ErrorList) Add(message string) {
	list.entries = append(list.entries, ErrorEntry{Message: message})
}

func (list *ErrorList) AddCause(message string, cause error) {
	list.entries = append(list.entries, ErrorEntry{Message: message, Cause: cause})
}

func (list *ErrorList) IsEmpty() bool {
	return len(list.entries) == 0
}

func (list *ErrorList) Entries() []ErrorEntry {
	return list.entries
}

// String renders one line per entry, for the operator-facing error report.
func (list *ErrorList) String() string {
	lines := make([]string, len(list.entries))
	for i, entry := range list.entries {
		lines[i] = entry.String()
	}
	return strings.Join(lines, "\n")
}
