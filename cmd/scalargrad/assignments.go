// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// assignment of a value to a named variable, as given in the command line with "name=value".
type assignment struct {
	name  string
	value float64
}

// parseAssignments parses a comma-separated list of "name=value" pairs, preserving their order.
// Names can't be repeated.
func parseAssignments(list string) ([]assignment, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var assignments []assignment
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		name, valueStr, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, errors.Errorf("invalid assignment %q, expected \"name=value\"", part)
		}
		if seen[name] {
			return nil, errors.Errorf("variable %q assigned more than once", name)
		}
		seen[name] = true
		value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for variable %q", name)
		}
		assignments = append(assignments, assignment{name: name, value: value})
	}
	return assignments, nil
}
