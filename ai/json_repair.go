// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON extracts the first JSON object from a model response and
// unmarshals it into v. Markdown code fences, surrounding prose, unquoted
// key openings and trailing commas are tolerated.
func DecodeJSON(response string, v any) error {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ErrNoJSON
	}
	text = text[start : end+1]

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	repaired := dropTrailingCommas(repairJSON(text))
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}
	return nil
}

// repairJSON inserts the opening quote of object keys that lost it,
// e.g. `, type":` becomes `, "type":`.
func repairJSON(s string) string {
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+100)

	i := 0
	for i < len(result) {
		ch := result[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++
		for i < len(result) && isSpace(result[i]) {
			fixed = append(fixed, result[i])
			i++
		}

		if i >= len(result) || result[i] == '"' || !isLetter(result[i]) {
			continue
		}

		keyStart := i
		for i < len(result) && (isLetter(result[i]) || result[i] == '_' || result[i] == ' ') {
			i++
		}

		if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
			fixed = append(fixed, '"')
			fixed = append(fixed, []rune(strings.TrimSpace(string(result[keyStart:i])))...)
			continue
		}
		fixed = append(fixed, result[keyStart:i]...)
	}

	return string(fixed)
}

// dropTrailingCommas removes commas that directly precede a closing bracket
// outside of string literals.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	runes := []rune(s)
	for i, r := range runes {
		if inString {
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		if r == '"' {
			inString = true
		}
		if r == ',' {
			j := i + 1
			for j < len(runes) && isSpace(runes[j]) {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
