package models

import (
	"bytes"
	"encoding/json"
)

// ProductResult is the outcome of one scrape invocation. It is either the
// success variant (Title, Price, Image) or the failure variant (Error); the
// two never mix on the wire.
type ProductResult struct {
	Title string
	Price int // won
	Image string
	Error string
}

// Failure builds the failure variant.
func Failure(msg string) ProductResult {
	return ProductResult{Error: msg}
}

// Failed reports whether r is the failure variant.
func (r ProductResult) Failed() bool {
	return r.Error != ""
}

type productPayload struct {
	Title string `json:"title"`
	Price int    `json:"price"`
	Image string `json:"image"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// MarshalJSON emits {"error"} for failures and {"title","price","image"}
// otherwise. HTML characters are left unescaped; callers that want them
// escaped get that from the enclosing encoder.
func (r ProductResult) MarshalJSON() ([]byte, error) {
	var v any = productPayload{Title: r.Title, Price: r.Price, Image: r.Image}
	if r.Failed() {
		v = errorPayload{Error: r.Error}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
