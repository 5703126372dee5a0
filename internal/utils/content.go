package utils

// Content inspection for fetched bodies. The fetcher writes bytes verbatim;
// these helpers only describe what arrived so it can be logged and recorded.

import (
	"net/http"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// sniffLen mirrors http.DetectContentType, which looks at most at 512 bytes.
const sniffLen = 512

// ContentInfo summarizes a response body.
type ContentInfo struct {
	// DeclaredType is the media type from the Content-Type header.
	DeclaredType string
	// SniffedType is the media type detected from the body bytes.
	SniffedType string
	// Kind is the file extension suggested by magic bytes ("zip", "png"),
	// empty when unknown.
	Kind string
	// SuggestedName is the Content-Disposition filename, if any.
	SuggestedName string
}

// DescribeContent inspects response headers and the leading body bytes.
func DescribeContent(h http.Header, body []byte) ContentInfo {
	var info ContentInfo

	info.DeclaredType, _ = httpheader.ContentType(h)
	_, info.SuggestedName, _ = httpheader.ContentDisposition(h)

	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) > 0 {
		info.SniffedType = http.DetectContentType(head)
	}

	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		info.Kind = kind.Extension
		if info.SniffedType == "" || info.SniffedType == "application/octet-stream" {
			info.SniffedType = kind.MIME.Value
		}
	}

	return info
}
