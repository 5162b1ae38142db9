// gsdecode prints captured Game Service traffic in readable form.
//
// Usage:
//
//	gsdecode [-kind bundle|nat|cdkey|irc] [-key HEX] [-obf none|xorchain] [-seed N] HEX...
//
// Without HEX arguments every non-empty stdin line is decoded.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/udisondev/gsgo/internal/crypto"
	"github.com/udisondev/gsgo/internal/protocol"
)

func main() {
	kind := flag.String("kind", kindBundle, "capture kind: bundle, nat, cdkey or irc")
	keyHex := flag.String("key", "", "session key in hex for GS_ENCRYPT payloads")
	obfName := flag.String("obf", crypto.ObfuscationNone, "GS payload obfuscation: none or xorchain")
	seed := flag.Uint("seed", 0, "xorchain seed")
	flag.Parse()

	obf, err := crypto.NewObfuscator(*obfName, byte(*seed))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}
	d := decoder{kind: *kind, codec: protocol.NewCodec(obf)}
	if *keyHex != "" {
		key, err := hex.DecodeString(*keyHex)
		if err != nil {
			pterm.Error.Println(fmt.Sprintf("session key: %v", err))
			os.Exit(2)
		}
		if d.session, err = crypto.NewCipher(key); err != nil {
			pterm.Error.Println(err)
			os.Exit(2)
		}
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				inputs = append(inputs, line)
			}
		}
	}

	failed := false
	for i, in := range inputs {
		pterm.DefaultSection.Println(fmt.Sprintf("capture %d", i+1))

		data, err := parseHex(in)
		if err != nil {
			pterm.Error.Println(err)
			failed = true
			continue
		}
		rows, err := d.decode(data)
		if err != nil {
			pterm.Error.Println(err)
			failed = true
			continue
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			pterm.Error.Println(err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
