package pdf

import (
	"strings"
)

// contentStreamText pulls the text-showing operators out of a raw PDF
// content stream. Literal strings shown with Tj, TJ, ' and " are decoded;
// hex strings are skipped because their bytes are font-encoded and cannot
// be mapped without the font's CMap. Line-positioning operators (Td, TD,
// T*, ' and ") become newlines so reading order survives.
func contentStreamText(content []byte) string {
	var out strings.Builder
	var pending []string

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out.WriteString(strings.Join(pending, ""))
		pending = pending[:0]
	}
	newline := func() {
		flush()
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
	}

	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch {
		case c == '(':
			text, next := decodeLiteralString(content, i)
			pending = append(pending, text)
			i = next
		case c == '<' && i+1 < n && content[i+1] != '<':
			// Hex string. Skip to the closing bracket.
			for i < n && content[i] != '>' {
				i++
			}
			i++
		case c == '%':
			for i < n && content[i] != '\n' {
				i++
			}
		default:
			// Operator tokens of interest
			if op, next := readToken(content, i); op != "" {
				switch op {
				case "Tj", "TJ":
					flush()
				case "Td", "TD", "T*", "'", "\"", "ET":
					newline()
				}
				i = next
			} else {
				i++
			}
		}
	}
	newline()
	return out.String()
}

// decodeLiteralString decodes a PDF literal string starting at the opening
// parenthesis and returns the decoded text plus the index after the
// closing parenthesis. Parentheses nest; backslash escapes follow the PDF
// string rules.
func decodeLiteralString(content []byte, start int) (string, int) {
	var out strings.Builder
	depth := 0
	i := start
	n := len(content)
	for i < n {
		c := content[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				out.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return out.String(), i + 1
			}
			out.WriteByte(c)
			i++
		case '\\':
			i++
			if i >= n {
				return out.String(), i
			}
			switch content[i] {
			case 'n':
				out.WriteByte('\n')
				i++
			case 'r':
				out.WriteByte('\r')
				i++
			case 't':
				out.WriteByte('\t')
				i++
			case 'b', 'f':
				i++
			case '\n':
				// Line continuation
				i++
			case '\\', '(', ')':
				out.WriteByte(content[i])
				i++
			default:
				if isOctal(content[i]) {
					value := 0
					for d := 0; d < 3 && i < n && isOctal(content[i]); d++ {
						value = value*8 + int(content[i]-'0')
						i++
					}
					out.WriteByte(byte(value))
				} else {
					out.WriteByte(content[i])
					i++
				}
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), i
}

// readToken reads an operator or operand token starting at i. Returns the
// token and the index after it, or "" when the byte at i does not start a
// token worth reading.
func readToken(content []byte, i int) (string, int) {
	n := len(content)
	c := content[i]
	if c == '\'' || c == '"' {
		return string(c), i + 1
	}
	if !isRegular(c) {
		return "", i + 1
	}
	start := i
	for i < n && isRegular(content[i]) {
		i++
	}
	return string(content[start:i]), i
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func isRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0,
		'(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
