// Package sigsmuggle holds module-wide metadata.
package sigsmuggle

// Version is the release version reported by the CLI and written into bundles.
const Version = "0.2.0"
