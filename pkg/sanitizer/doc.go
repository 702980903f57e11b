// Package sanitizer normalizes customer and room input before validation and
// storage.
//
// All functions are idempotent. Invalid input yields an empty string rather
// than an error, so callers validate the normalized value.
//
// Normalization includes:
//   - Phone numbers: E.164 format (+[country][number]), invalid numbers become ""
//   - Emails: trimmed and lowercased, the key customers are looked up by
//   - Names: whitespace collapsed and trimmed
package sanitizer
