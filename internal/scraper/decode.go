package scraper

import (
	"compress/gzip"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readBody returns the UTF-8 body of resp and its media type.
func readBody(resp *http.Response) ([]byte, string, error) {
	reader, mediaType, err := decodedReader(resp)
	if err != nil {
		return nil, "", err
	}

	body, err := io.ReadAll(io.LimitReader(reader, MaxBodySize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, "", fmt.Errorf("body exceeds %d bytes", MaxBodySize)
	}
	return body, mediaType, nil
}

// decodedReader unwraps gzip transfer and converts the declared charset to UTF-8.
func decodedReader(resp *http.Response) (io.Reader, string, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decompress gzip: %w", err)
		}
		reader = gz
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return reader, "", nil
	}

	enc := lookupCharset(params["charset"])
	if enc != nil {
		reader = transform.NewReader(reader, enc.NewDecoder())
	}
	return reader, mediaType, nil
}

// lookupCharset returns the decoder for a WHATWG charset label, or nil when
// the body is already UTF-8 or the label is unknown.
func lookupCharset(label string) encoding.Encoding {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil || enc == unicode.UTF8 {
		return nil
	}
	return enc
}
