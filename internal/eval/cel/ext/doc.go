// Package ext holds optional function libraries that are not part of the
// built-ins. Strings adds receiver-style string helpers such as charAt,
// substring, split, join and format, plus the global strings.quote.
package ext
