// Package protocol implements the Brother P-touch raster command protocol.
//
// It provides pure encoding of printer directives to their wire byte
// sequences, decoding of the fixed 32-byte status reply frame, the media
// capability model derived from status replies, and the TIFF-style
// run-length compression used for raster line transfer.
//
// Nothing in this package performs I/O. The session package sequences these
// commands over a transport.
package protocol
