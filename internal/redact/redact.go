// Package redact masks sensitive substrings before they reach a log line:
// emails, the account segment of an ARN, URL userinfo, and the trailing
// segment of an opaque identifier (affinity keys, machine ids).
package redact

import "strings"

// Placeholder is the uniform redaction marker.
const Placeholder = "<redacted>"

// OptString reports presence without leaking the value: "" stays "", any
// non-empty string becomes Placeholder.
func OptString(s string) string {
	if s == "" {
		return ""
	}
	return Placeholder
}

// Email masks the local part of an address, keeping its first rune:
// "abc@example.com" -> "a***@example.com".
func Email(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return Placeholder
	}
	runes := []rune(local)
	return string(runes[:1]) + "***@" + domain
}

// AWSAccountInARN masks the account-id segment (the 5th colon-delimited
// field) of an ARN-shaped string: "arn:aws:svc:region:123456789012:res"
// becomes "arn:aws:svc:region:***:res". Strings that don't look like an ARN
// are returned unchanged.
func AWSAccountInARN(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return arn
	}
	if parts[4] != "" {
		parts[4] = "***"
	}
	return strings.Join(parts, ":")
}

// URLUserinfo masks the userinfo component of a URL ("user:pass@host" ->
// "user:***@host"; "user@host" -> "***@host"), leaving URLs without
// userinfo untouched.
func URLUserinfo(url string) string {
	schemeIdx := strings.Index(url, "://")
	if schemeIdx < 0 {
		return url
	}
	schemeEnd := schemeIdx + 3

	authorityEnd := len(url)
	if i := strings.IndexAny(url[schemeEnd:], "/?#"); i >= 0 {
		authorityEnd = schemeEnd + i
	}

	atIdx := strings.Index(url[schemeEnd:authorityEnd], "@")
	if atIdx < 0 {
		return url
	}
	atPos := schemeEnd + atIdx

	userinfo := url[schemeEnd:atPos]
	if userinfo == "" {
		return url
	}

	user, _, hasPass := strings.Cut(userinfo, ":")
	var masked string
	if hasPass && user != "" {
		masked = user + ":***"
	} else {
		masked = "***"
	}

	return url[:schemeEnd] + masked + url[atPos:]
}

// TrailingSegment masks everything after the last '-', used for opaque
// identifiers like "<prefix>-<machine-id>".
func TrailingSegment(value string) string {
	idx := strings.LastIndex(value, "-")
	if idx < 0 {
		return value
	}
	return value[:idx+1] + Placeholder
}
