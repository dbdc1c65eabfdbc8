package session

import (
	"encoding/base32"
	"errors"
	"hash/crc32"
	"strings"
)

// Session codes pack the server URL and a correlation token into one
// pasteable string: base32 over a small binary payload, four trailing
// check characters, dashes every four characters for readability.

const (
	codeVersion = 0x01
	groupLen    = 4
	checkLen    = 4

	// 32 characters, skipping the I/L/O/0/1 lookalikes.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var codec = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// EncodeCode builds a session code for a server URL and correlation
// token. The scheme is implied, so any https:// or http:// prefix is
// stripped before packing.
func EncodeCode(externalURL, token string) string {
	host := externalURL
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}

	payload := make([]byte, 0, len(host)+len(token)+2)
	payload = append(payload, codeVersion)
	payload = append(payload, host...)
	payload = append(payload, 0x00)
	payload = append(payload, token...)

	body := codec.EncodeToString(payload)
	return groupCode(body + checkChars(body))
}

// DecodeCode parses a session code back into server URL and token.
// Dashes and spaces are ignored and case is normalized, so codes
// survive retyping; any other corruption fails the check characters.
func DecodeCode(code string) (serverURL, token string, err error) {
	clean := normalizeCode(code)
	if len(clean) <= checkLen {
		return "", "", errors.New("code too short")
	}

	body, check := clean[:len(clean)-checkLen], clean[len(clean)-checkLen:]
	if check != checkChars(body) {
		return "", "", errors.New("checksum mismatch")
	}

	payload, err := codec.DecodeString(body)
	if err != nil {
		return "", "", errors.New("invalid character in code")
	}
	if len(payload) < 4 {
		return "", "", errors.New("payload too short")
	}
	if payload[0] != codeVersion {
		return "", "", errors.New("unsupported code version")
	}

	host, tok, found := strings.Cut(string(payload[1:]), "\x00")
	if !found || host == "" || tok == "" {
		return "", "", errors.New("malformed payload")
	}
	return "https://" + host, tok, nil
}

// checkChars digests the base32 body into four alphabet characters.
// Computed over the canonical string rather than the decoded bytes, so
// corruption hiding in unused trailing bits is still caught.
func checkChars(body string) string {
	sum := crc32.ChecksumIEEE([]byte(body))
	out := make([]byte, checkLen)
	for i := range out {
		out[i] = alphabet[sum&0x1F]
		sum >>= 5
	}
	return string(out)
}

func normalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func groupCode(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/groupLen)
	for i := 0; i < len(s); i++ {
		if i > 0 && i%groupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
