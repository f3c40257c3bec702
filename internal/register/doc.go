// Package register encodes data rows into the fixed-width variable
// registers an oracle evaluates against.
//
// A register holds one slot per distinct column the oracle references,
// in the oracle's leaf-declared order. Columns the oracle never touches
// are dropped at encoding time: they cannot affect evaluation and
// excluding them bounds register width.
//
// Encoding failures are row-local. A row that cannot be encoded is
// excluded from its batch's output and reported in the run manifest;
// the rest of the batch proceeds.
package register
