package scraper

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockLoginWall  BlockType = "login_wall"
)

// DetectBlock looks for signs that the page served is not the content that was asked
// for: an anti-bot challenge, a captcha or a sign-in form.
func DetectBlock(statusCode int, header http.Header, body []byte) BlockType {
	if statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || strings.EqualFold(header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}

	if strings.Contains(lower, "captcha") {
		return BlockCaptcha
	}

	if strings.Contains(lower, "authwall") ||
		strings.Contains(lower, "name=\"session_password\"") ||
		strings.Contains(lower, "join now to see") {
		return BlockLoginWall
	}

	return BlockNone
}
