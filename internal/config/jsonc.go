package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks out comments and drops trailing commas so encoding/json
// can decode the content. Byte offsets of surviving tokens are preserved except
// for removed commas, which keeps decode error positions close to the source.
func normalizeJSONC(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	var (
		inString     bool
		escape       bool
		lineComment  bool
		blockComment bool
		// pendingComma holds a comma (and the whitespace after it) until the next
		// significant byte shows whether it was trailing.
		pendingComma strings.Builder
	)

	flushComma := func(keep bool) {
		if pendingComma.Len() == 0 {
			return
		}
		s := pendingComma.String()
		if !keep {
			s = " " + s[1:]
		}
		out.WriteString(s)
		pendingComma.Reset()
	}
	write := func(ch byte) {
		if pendingComma.Len() > 0 {
			pendingComma.WriteByte(ch)
			return
		}
		out.WriteByte(ch)
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch {
		case lineComment:
			if ch == '\n' || ch == '\r' {
				lineComment = false
				write(ch)
			} else {
				write(' ')
			}
			continue
		case blockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				write(' ')
				write(' ')
				i++
				continue
			}
			if isJSONWhitespace(ch) {
				write(ch)
			} else {
				write(' ')
			}
			continue
		case inString:
			out.WriteByte(ch)
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		if ch == '/' && i+1 < len(content) && (content[i+1] == '/' || content[i+1] == '*') {
			lineComment = content[i+1] == '/'
			blockComment = !lineComment
			write(' ')
			write(' ')
			i++
			continue
		}

		if isJSONWhitespace(ch) {
			write(ch)
			continue
		}

		flushComma(ch != '}' && ch != ']')

		switch ch {
		case ',':
			pendingComma.WriteByte(ch)
		case '"':
			inString = true
			out.WriteByte(ch)
		default:
			out.WriteByte(ch)
		}
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	flushComma(true)
	return out.String(), nil
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))

	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
