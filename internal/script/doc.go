// Package script finds the external contribution art generator on disk
// and interprets the summary it prints.
//
// The generator is an opaque program. Its only contract with this module is
// the command line built by service.Args and a final stdout line holding
// a JSON object.
package script
