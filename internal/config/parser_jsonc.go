package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errUnterminatedComment = errors.New("unterminated block comment in JSONC")

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	payload, err := decodeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}
	return applyAndValidate(payload, base)
}

func decodeJSONC(content string) (filePayload, error) {
	plain, err := normalizeJSONC(content)
	if err != nil {
		return filePayload{}, err
	}

	dec := json.NewDecoder(strings.NewReader(plain))
	dec.DisallowUnknownFields()

	var payload filePayload
	if err := dec.Decode(&payload); err != nil {
		return filePayload{}, locateJSONError(plain, err)
	}
	if err := ensureSingleJSONValue(dec); err != nil {
		return filePayload{}, locateJSONError(plain, err)
	}
	return payload, nil
}

// normalizeJSONC blanks comments and trailing commas with spaces. The result
// has the same length and line structure as content, so decoder offsets
// point into the original file.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	if err := blankComments(buf); err != nil {
		return "", err
	}
	blankTrailingCommas(buf)
	return string(buf), nil
}

// skipString returns the index just past the JSON string starting at buf[i].
func skipString(buf []byte, i int) int {
	for i++; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(buf)
}

func blankComments(buf []byte) error {
	for i := 0; i < len(buf); {
		switch {
		case buf[i] == '"':
			i = skipString(buf, i)
		case buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '/':
			for i < len(buf) && buf[i] != '\n' && buf[i] != '\r' {
				buf[i] = ' '
				i++
			}
		case buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '*':
			end := strings.Index(string(buf[i+2:]), "*/")
			if end < 0 {
				return errUnterminatedComment
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if buf[i] != '\n' && buf[i] != '\r' && buf[i] != '\t' {
					buf[i] = ' '
				}
			}
		default:
			i++
		}
	}
	return nil
}

func blankTrailingCommas(buf []byte) {
	for i := 0; i < len(buf); {
		switch buf[i] {
		case '"':
			i = skipString(buf, i)
		case ',':
			j := i + 1
			for j < len(buf) && isJSONWhitespace(buf[j]) {
				j++
			}
			if j < len(buf) && (buf[j] == '}' || buf[j] == ']') {
				buf[i] = ' '
			}
			i++
		default:
			i++
		}
	}
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(dec *json.Decoder) error {
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("multiple JSON values are not allowed")
	}
}

func locateJSONError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol maps a decoder offset (one past the offending byte) to a
// 1-based line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	limit := max(min(int(offset), len(content))-1, 0)
	before := content[:limit]
	line := strings.Count(before, "\n") + 1
	col := limit - strings.LastIndexByte(before, '\n')
	return line, col
}
