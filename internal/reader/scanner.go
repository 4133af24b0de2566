package reader

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// splitFields parses one record of the SR text format: fields separated by
// '^', text fields wrapped in '~' with a doubled '~~' escaping a literal
// tilde. Blank fields (both `^^` and `~~`) are null, not empty strings.
func splitFields(line string) ([]sql.NullString, error) {
	var fields []sql.NullString
	i, n := 0, len(line)

	for {
		if i < n && line[i] == '~' {
			val, next, err := scanQuoted(line, i)
			if err != nil {
				return nil, err
			}
			i = next
			if i < n && line[i] != '^' {
				return nil, fmt.Errorf("unexpected %q after closing quote", line[i])
			}
			fields = append(fields, nullable(val))
		} else {
			start := i
			for i < n && line[i] != '^' {
				if line[i] == '~' {
					return nil, errors.New("quote character inside unquoted field")
				}
				i++
			}
			fields = append(fields, nullable(line[start:i]))
		}

		if i >= n {
			break
		}
		i++ // consume '^'
		if i >= n {
			// trailing delimiter: record ends with a blank field
			fields = append(fields, sql.NullString{})
			break
		}
	}
	return fields, nil
}

// scanQuoted consumes a '~'-quoted field starting at line[start] and
// returns its unescaped value plus the index just past the closing quote.
func scanQuoted(line string, start int) (string, int, error) {
	var b strings.Builder
	i, n := start+1, len(line)

	for i < n {
		if line[i] != '~' {
			b.WriteByte(line[i])
			i++
			continue
		}
		if i+1 < n && line[i+1] == '~' {
			b.WriteByte('~')
			i += 2
			continue
		}
		return b.String(), i + 1, nil
	}
	return "", 0, errors.New("unterminated quoted field")
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
