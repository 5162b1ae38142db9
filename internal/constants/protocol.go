package constants

// Game Service Protocol Constants
//
// Wire-level values shared by the TCP message stream, the NAT (SRP) datagram
// protocol and the auxiliary CD-key / chat services. They are fixed by the
// retail client and cannot be tuned.

// Message header layout
const (
	// MessageHeaderSize is the fixed header length; header.size always includes it.
	MessageHeaderSize = 6

	// MessageMaxSize is the largest value the 24-bit size field can hold.
	MessageMaxSize = 1<<24 - 1

	// PriorityMask selects the 6 priority bits of header byte 3.
	PriorityMask = 0x3F

	// PropertyShift is the bit offset of the 2-bit property tag in header byte 3.
	PropertyShift = 6

	// RoleMask selects one 4-bit sender/receiver nibble of header byte 5.
	RoleMask = 0x0F
)

// Tagged-value codec tags
const (
	TagString   = 's'  // 0x73
	TagBinary   = 'b'  // 0x62
	TagLong     = 'L'  // 0x4C
	TagListOpen = '['  // 0x5B
	TagListEnd  = ']'  // 0x5D
	TagTerm     = 0x00 // string terminator

	// BinaryLengthSize is the size of the big-endian length prefix of a binary value.
	BinaryLengthSize = 4
)

// Blowfish Cipher Constants
const (
	// BlowfishBlockSize is the Blowfish block size in bytes (64-bit)
	BlowfishBlockSize = 8

	// CipherTrailerSize is the little-endian plaintext length appended by the
	// legacy streaming mode.
	CipherTrailerSize = 2

	// SessionKeySize is the size of a negotiated session Blowfish key (128-bit)
	SessionKeySize = 16
)

// RSA Key Size Constants
const (
	// RSADefaultKeyBits is the modulus size used for KEY_EXCHANGE when not configured.
	RSADefaultKeyBits = 512

	// RSAPublicExponent is the RSA public exponent (F4 = 65537)
	RSAPublicExponent = 65537
)

// KEY_EXCHANGE sub-requests
const (
	KeyExchangeRequestPublicKey  = 1
	KeyExchangeRequestSessionKey = 2
	KeyExchangeRequestDisconnect = 3
)

// NAT (SRP) segment layout
const (
	// SRPHeaderSize is the fixed segment header size (6 little-endian uint16).
	SRPHeaderSize = 12

	// SRPWindowSize is the size of the connection-setup window block.
	SRPWindowSize = 8

	// SRPReplyTail, SRPReplySenderSig and SRPReplyWindowBufSize are the window
	// values the server announces in its SYN|ACK.
	SRPReplyTail          = 0x000A
	SRPReplySenderSig     = 0x0002
	SRPReplyChecksumInit  = 0x0000
	SRPReplyWindowBufSize = 0x0218
)

// CD-key service framing
const (
	// CDKeyHeaderSize is [type:1][size:4 BE].
	CDKeyHeaderSize = 5

	// CDKeyMinFields is the minimum number of top-level list elements in a CD-key request.
	CDKeyMinFields = 4
)

// Chat relay framing
const (
	// IRCHeaderSize is the 2-byte big-endian payload size.
	IRCHeaderSize = 2
)

// Buffer sizes
const (
	// DefaultReadBufSize matches the 4 KiB transport read of the retail services.
	DefaultReadBufSize = 4096

	// DefaultSendBufSize is the initial capacity of pooled send buffers.
	DefaultSendBufSize = 4096

	// DatagramBufSize is the UDP receive buffer size.
	DatagramBufSize = 1024
)

// Default service ports
const (
	PortRouter        = 7777
	PortIRC           = 7779
	PortCDKey         = 7780
	PortNAT           = 7781
	PortRouterWM      = 7782
	PortProxy         = 7783
	PortProxyWM       = 7784
	PortLobby         = 7785
	PortLadderProxy   = 7786
	PortLadderProxyWM = 7787
	PortDiscovery     = 80
)
