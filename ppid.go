package sctp

import "fmt"

// PayloadProtocolIdentifier is the 32-bit tag on DATA chunks
// classifying the application payload.
type PayloadProtocolIdentifier uint32

// WebRTC data-channel PPIDs per the IANA SCTP parameters registry.
const (
	PPIDWebRTCDCEP        PayloadProtocolIdentifier = 50
	PPIDWebRTCString      PayloadProtocolIdentifier = 51
	PPIDWebRTCBinary      PayloadProtocolIdentifier = 53
	PPIDWebRTCStringEmpty PayloadProtocolIdentifier = 56
	PPIDWebRTCBinaryEmpty PayloadProtocolIdentifier = 57
)

// String returns a human-readable name for the PPID.
func (p PayloadProtocolIdentifier) String() string {
	switch p {
	case PPIDWebRTCDCEP:
		return "WebRTC DCEP"
	case PPIDWebRTCString:
		return "WebRTC String"
	case PPIDWebRTCBinary:
		return "WebRTC Binary"
	case PPIDWebRTCStringEmpty:
		return "WebRTC String (Empty)"
	case PPIDWebRTCBinaryEmpty:
		return "WebRTC Binary (Empty)"
	default:
		return fmt.Sprintf("Unknown PPID: %d", uint32(p))
	}
}

// MessageType classifies a WebRTC data-channel user message.
type MessageType int

// Defined WebRTC data-channel message kinds.
const (
	MessageTypeDCEP MessageType = iota
	MessageTypeString
	MessageTypeBinary
	MessageTypeStringEmpty
	MessageTypeBinaryEmpty
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeDCEP:
		return "DCEP"
	case MessageTypeString:
		return "String"
	case MessageTypeBinary:
		return "Binary"
	case MessageTypeStringEmpty:
		return "StringEmpty"
	case MessageTypeBinaryEmpty:
		return "BinaryEmpty"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// PPID maps a message type to its payload protocol identifier. The
// mapping is total over the defined message types.
func (t MessageType) PPID() PayloadProtocolIdentifier {
	switch t {
	case MessageTypeDCEP:
		return PPIDWebRTCDCEP
	case MessageTypeString:
		return PPIDWebRTCString
	case MessageTypeBinary:
		return PPIDWebRTCBinary
	case MessageTypeStringEmpty:
		return PPIDWebRTCStringEmpty
	case MessageTypeBinaryEmpty:
		return PPIDWebRTCBinaryEmpty
	default:
		return PPIDWebRTCBinary
	}
}

// MessageTypeFromPPID is the inverse of MessageType.PPID. The second
// return value is false for any PPID outside the five defined kinds.
func MessageTypeFromPPID(p PayloadProtocolIdentifier) (MessageType, bool) {
	switch p {
	case PPIDWebRTCDCEP:
		return MessageTypeDCEP, true
	case PPIDWebRTCString:
		return MessageTypeString, true
	case PPIDWebRTCBinary:
		return MessageTypeBinary, true
	case PPIDWebRTCStringEmpty:
		return MessageTypeStringEmpty, true
	case PPIDWebRTCBinaryEmpty:
		return MessageTypeBinaryEmpty, true
	default:
		return 0, false
	}
}
