// Package textutil provides small string helpers shared by the pipeline and the
// CLI.
//
// SanitizeFileName turns an identifier token or title into a single safe path
// component; SanitizeToken produces lowercase tokens suitable for log and lock
// file names.
package textutil
