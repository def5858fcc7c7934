// Package recordings stores uploaded voice recordings on disk.
//
// Files are named after the BLAKE3 digest of their contents, so uploading the
// same audio twice yields one file.
package recordings
