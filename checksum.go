package sctp

import "hash/crc32"

// castagnoliTable is the CRC-32c polynomial table used by the SCTP
// checksum per RFC 4960 Appendix B.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CalculateChecksum computes the CRC-32c checksum over a fully
// serialized packet. The caller must zero the checksum field of the
// common header before computing; the resulting value is stored
// little-endian in that field (RFC 4960 Appendix B reflects the CRC).
//
// The checksum is a deterministic, non-cryptographic integrity code:
// it detects corruption, not tampering.
func CalculateChecksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}
