// Package tokenizer provides request-line and header-parameter tokenization
// using Shape's tokenizer framework.
package tokenizer

// Token type constants.
const (
	// Request-line tokens
	TokenText = "Text" // method, request-target, version
	TokenSP   = "SP"   // space or horizontal tab
	TokenCRLF = "CRLF" // Line ending \r\n, bare \n or bare \r

	// Parameter-list tokens (Content-Type, Content-Disposition)
	TokenSemicolon = "Semicolon" // ;
	TokenEquals    = "Equals"    // =
	TokenQuoted    = "Quoted"    // "quoted value", quotes stripped
)
