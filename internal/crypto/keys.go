package crypto

// GSStaticKey is the key compiled into the client for the CD-key service payloads.
var GSStaticKey = []byte("SKJDHF$0maoijfn4i8$aJdnv1jaldifar93-AS_dfo;hjhC4jhflasnF3fnd")

// IRCStaticKey is the key compiled into the client for chat relay payloads.
var IRCStaticKey = []byte{
	0x06, 0xE2, 0xC8, 0x46,
	0x01, 0x90, 0x55, 0x7C,
	0x3C, 0xA1, 0xCD, 0xA3,
	0xE3, 0xA1, 0x10, 0x6C,
}
