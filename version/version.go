// Package version defines the version of this project.
package version

// Version of this project.
const Version = "0.1.0"
