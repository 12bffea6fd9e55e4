package data

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// addressPubKeyHex converts an SS58 or 0x-hex address to the lowercase hex of
// its raw 32-byte public key, the form the chain watcher sees signers in.
func addressPubKeyHex(addr string) (string, error) {
	if strings.HasPrefix(addr, "0x") {
		return strings.ToLower(addr[2:]), nil
	}

	raw, err := base58.Decode(addr)
	if err != nil || len(raw) < 35 {
		return "", fmt.Errorf("invalid ss58 address")
	}
	return hex.EncodeToString(raw[1:33]), nil // drop 1-byte prefix & 2-byte checksum
}

// sameAccount reports whether a signer public key (hex, with or without 0x)
// belongs to the given SS58 address.
func sameAccount(signerHex, addr string) bool {
	signerHex = strings.ToLower(strings.TrimPrefix(signerHex, "0x"))
	pk, err := addressPubKeyHex(addr)
	if err != nil {
		return false
	}
	return signerHex == pk
}
