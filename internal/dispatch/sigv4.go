package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	sigv4Algorithm   = "AWS4-HMAC-SHA256"
	sigv4RequestType = "aws4_request"
	sigv4TimeFormat  = "20060102T150405Z"
	sigv4DateFormat  = "20060102"
)

// SigV4Signer signs upstream requests with AWS Signature V4. The service
// name is configurable since the same signer shape covers every SigV4
// credential in the pool, not one fixed backend.
type SigV4Signer struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Service         string
}

// Sign signs req in place, setting Host, X-Amz-Date, X-Amz-Security-Token
// (when a session token is present) and Authorization.
func (s *SigV4Signer) Sign(req *http.Request, payload []byte) error {
	now := time.Now().UTC()

	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("X-Amz-Date", now.Format(sigv4TimeFormat))
	if s.SessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", s.SessionToken)
	}

	canonicalRequest := s.buildCanonicalRequest(req, payload)
	credentialScope := s.credentialScope(now)
	stringToSign := s.buildStringToSign(now, credentialScope, canonicalRequest)
	signature := s.calculateSignature(now, stringToSign)

	req.Header.Set("Authorization", s.buildAuthorizationHeader(credentialScope, req.Header, signature))
	return nil
}

func (s *SigV4Signer) buildCanonicalRequest(req *http.Request, payload []byte) string {
	canonicalURI := req.URL.Path
	if canonicalURI == "" {
		canonicalURI = "/"
	}
	canonicalQueryString := s.buildCanonicalQueryString(req)
	canonicalHeaders, signedHeaders := s.buildCanonicalHeaders(req)
	payloadHash := s.hashPayload(payload)

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		req.Method, canonicalURI, canonicalQueryString, canonicalHeaders, signedHeaders, payloadHash)
}

func (s *SigV4Signer) buildCanonicalQueryString(req *http.Request) string {
	if req.URL.RawQuery == "" {
		return ""
	}
	params := req.URL.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range params[k] {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(parts, "&")
}

func (s *SigV4Signer) buildCanonicalHeaders(req *http.Request) (string, string) {
	headers := make(map[string]string)
	for k, v := range req.Header {
		if len(v) == 0 {
			continue
		}
		headers[strings.ToLower(k)] = strings.TrimSpace(v[0])
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, headers[k]))
	}
	return strings.Join(parts, "\n") + "\n", strings.Join(keys, ";")
}

func (s *SigV4Signer) hashPayload(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

func (s *SigV4Signer) buildStringToSign(t time.Time, credentialScope, canonicalRequest string) string {
	hash := sha256.Sum256([]byte(canonicalRequest))
	return fmt.Sprintf("%s\n%s\n%s\n%s", sigv4Algorithm, t.Format(sigv4TimeFormat), credentialScope, hex.EncodeToString(hash[:]))
}

func (s *SigV4Signer) credentialScope(t time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Format(sigv4DateFormat), s.Region, s.Service, sigv4RequestType)
}

func (s *SigV4Signer) calculateSignature(t time.Time, stringToSign string) string {
	kDate := s.hmacSum([]byte("AWS4"+s.SecretAccessKey), []byte(t.Format(sigv4DateFormat)))
	kRegion := s.hmacSum(kDate, []byte(s.Region))
	kService := s.hmacSum(kRegion, []byte(s.Service))
	kSigning := s.hmacSum(kService, []byte(sigv4RequestType))
	return hex.EncodeToString(s.hmacSum(kSigning, []byte(stringToSign)))
}

func (s *SigV4Signer) hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func (s *SigV4Signer) buildAuthorizationHeader(credentialScope string, headers http.Header, signature string) string {
	credential := fmt.Sprintf("%s/%s", s.AccessKeyID, credentialScope)

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)

	return fmt.Sprintf("%s Credential=%s, SignedHeaders=%s, Signature=%s",
		sigv4Algorithm, credential, strings.Join(keys, ";"), signature)
}
