package visitor

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf16"
)

const unknownIdentifier = "unknown"

// ClientIdentifier returns the originating address of r: the first entry of
// X-Forwarded-For, else the peer address, else "unknown".
func ClientIdentifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return unknownIdentifier
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	if host == "" {
		return unknownIdentifier
	}
	return host
}

// HashIdentifier folds s into a short base-36 token with the 31-multiplier
// string hash over UTF-16 code units. It is stable and cheap, not secret.
func HashIdentifier(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 36)
}
