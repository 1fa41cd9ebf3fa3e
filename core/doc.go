// Package core defines the domain model shared by every layer: document
// and chunk rows, processing status, validation rules, and the binary
// row serializers.
package core
