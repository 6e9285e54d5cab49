package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// StrippedStrings returns every non-blank text node under the selection, in document
// order, with surrounding whitespace trimmed.
func StrippedStrings(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		collectStripped(n, &out)
	}
	return out
}

func collectStripped(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectStripped(child, out)
	}
}

// NextNonBlankSibling returns the text of the first sibling after the first node of sel
// whose text is not blank. It returns "" when there is none.
func NextNonBlankSibling(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for n := sel.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		text := strings.TrimSpace(GetText(n))
		if text != "" {
			return text
		}
	}
	return ""
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// Clean trims a string, drops non printable runes and collapses inner whitespace runs.
func Clean(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	out := strings.TrimSpace(newStr.String())
	return innerWhitespace.ReplaceAllString(out, " ")
}
