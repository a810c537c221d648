// Package namespace resolves names relative to an expression container.
package namespace
