// Package textutil provides small string helpers shared by the API and CLI:
// filename sanitization for stored uploads and display truncation.
package textutil
