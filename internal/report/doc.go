// Package report renders the canonical memory report and drives the
// snapshot -> render -> deliver cycle.
//
// The report text is a compatibility contract: line order, labels, column
// widths, MB formatting and the CRLF terminator are consumed by existing
// mail clients and log viewers and must not change.
package report
