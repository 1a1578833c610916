package tokenizer

import (
	"strings"

	"github.com/shapestone/shape-core/pkg/tokenizer"
)

// NewRequestLineTokenizer creates a tokenizer for an HTTP request line.
// A request line is a sequence of whitespace-delimited fields:
// 1. CRLF (line endings)
// 2. SP (space or tab separator)
// 3. Generic text (method, request-target, version)
//
// The request-target may contain colons, so unlike header tokenization the
// text matcher only stops at whitespace.
func NewRequestLineTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		CRLFMatcher(),
		SPMatcher(),
		FieldMatcher(),
	)
}

// NewParamTokenizer creates a tokenizer for header parameter lists such as
// `multipart/form-data; boundary=xyz` or `form-data; name="f"; filename="a b.txt"`.
func NewParamTokenizer() tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		CRLFMatcher(),
		SPMatcher(),
		tokenizer.StringMatcherFunc(TokenSemicolon, ";"),
		tokenizer.StringMatcherFunc(TokenEquals, "="),
		QuotedMatcher(),
		ParamTextMatcher(),
	)
}

// CRLFMatcher matches \r\n, bare \n or bare \r.
func CRLFMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		r, ok := stream.PeekChar()
		if !ok {
			return nil
		}

		if r == '\r' {
			value := []rune{'\r'}
			stream.NextChar()
			r2, ok := stream.PeekChar()
			if ok && r2 == '\n' {
				stream.NextChar()
				value = append(value, '\n')
			}
			return tokenizer.NewToken(TokenCRLF, value)
		}
		if r == '\n' {
			stream.NextChar()
			return tokenizer.NewToken(TokenCRLF, []rune{'\n'})
		}
		return nil
	}
}

// SPMatcher matches a run of spaces and horizontal tabs.
func SPMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune
		for {
			r, ok := stream.PeekChar()
			if !ok || (r != ' ' && r != '\t' && r != '\f') {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}
		if len(value) == 0 {
			return nil
		}
		return tokenizer.NewToken(TokenSP, value)
	}
}

// FieldMatcher matches any sequence of characters until whitespace or EOS.
func FieldMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune

		for {
			r, ok := stream.PeekChar()
			if !ok {
				break
			}
			if isSpace(r) {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}

		if len(value) == 0 {
			return nil
		}

		return tokenizer.NewToken(TokenText, value)
	}
}

// ParamTextMatcher matches a bare parameter token: everything up to
// whitespace, ';', '=', or a double quote.
func ParamTextMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		var value []rune

		for {
			r, ok := stream.PeekChar()
			if !ok {
				break
			}
			if isSpace(r) || r == ';' || r == '=' || r == '"' {
				break
			}
			stream.NextChar()
			value = append(value, r)
		}

		if len(value) == 0 {
			return nil
		}

		return tokenizer.NewToken(TokenText, value)
	}
}

// QuotedMatcher matches a double-quoted string, quotes included. A backslash
// escapes the next character. The token value is the raw text; use Unquote to
// get at the content. A quote with no closing quote does not match.
func QuotedMatcher() tokenizer.Matcher {
	return func(stream tokenizer.Stream) *tokenizer.Token {
		r, ok := stream.PeekChar()
		if !ok || r != '"' {
			return nil
		}
		stream.NextChar()

		value := []rune{'"'}
		escaped := false
		for {
			r, ok := stream.PeekChar()
			if !ok {
				return nil
			}
			stream.NextChar()
			value = append(value, r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				return tokenizer.NewToken(TokenQuoted, value)
			}
		}
	}
}

// Unquote strips the quotes from a TokenQuoted value and resolves backslash
// escapes. Anything that is not quoted is returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Fields splits a request line into its whitespace-delimited fields. ok is
// false when the line could not be tokenized to its end.
func Fields(line string) (fields []string, ok bool) {
	if line == "" {
		return nil, true
	}
	tok := NewRequestLineTokenizer()
	tok.Initialize(line)

	tokens, eos := tok.Tokenize()
	if !eos {
		return nil, false
	}
	for _, t := range tokens {
		if t.Kind() == TokenText {
			fields = append(fields, t.ValueString())
		}
	}
	return fields, true
}

// ParseParams parses a header value of the form `primary; key=value; ...`.
// Keys are lower-cased. Quoted values are unquoted. Unquoted values end at
// whitespace or ';' and may contain '='. Keys without '=' are skipped.
// ok is false when the value is malformed, such as an unterminated quote.
func ParseParams(value string) (primary string, params map[string]string, ok bool) {
	if value == "" {
		return "", map[string]string{}, true
	}
	tok := NewParamTokenizer()
	tok.Initialize(value)
	tokens, eos := tok.Tokenize()
	if !eos {
		return "", nil, false
	}

	const (
		statePrimary = iota
		stateKey
		stateValue
	)

	var (
		prim  strings.Builder
		key   strings.Builder
		val   strings.Builder
		state = statePrimary
	)
	params = make(map[string]string)

	flush := func() {
		if state == stateValue {
			if k := strings.ToLower(strings.TrimSpace(key.String())); k != "" {
				params[k] = val.String()
			}
		}
		key.Reset()
		val.Reset()
		state = stateKey
	}

	for _, t := range tokens {
		text := t.ValueString()
		switch t.Kind() {
		case TokenSP, TokenCRLF:
			if state == statePrimary && prim.Len() == 0 {
				continue
			}
			flush()
			continue
		case TokenSemicolon:
			flush()
			continue
		case TokenEquals:
			if state == stateKey {
				state = stateValue
				continue
			}
		case TokenQuoted:
			text = Unquote(text)
		}
		switch state {
		case statePrimary:
			prim.WriteString(text)
		case stateKey:
			key.WriteString(text)
		case stateValue:
			val.WriteString(text)
		}
	}
	if state != statePrimary {
		flush()
	}

	return prim.String(), params, true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\f' || r == '\r' || r == '\n'
}
