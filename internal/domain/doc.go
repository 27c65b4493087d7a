// Package domain holds the segment stage types and the error taxonomy shared
// across the mashup engine. It has no infrastructure dependencies.
package domain
