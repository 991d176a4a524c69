package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// gzipBody closes the gzip stream together with the underlying request body.
type gzipBody struct {
	*gzip.Reader
	raw interface{ Close() error }
}

func (b *gzipBody) Close() error {
	zerr := b.Reader.Close()
	if err := b.raw.Close(); err != nil {
		return err
	}
	return zerr
}

// DecompressRequest accepts checkout and stock payloads sent with
// Content-Encoding gzip or x-gzip. Other encodings pass through untouched.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isGzipEncoded(c.GetHeader("Content-Encoding")) || c.Request.Body == nil {
			c.Next()
			return
		}

		reader, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed gzip body"})
			return
		}
		c.Request.Body = &gzipBody{Reader: reader, raw: c.Request.Body}
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}

func isGzipEncoded(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		switch strings.ToLower(strings.TrimSpace(enc)) {
		case "gzip", "x-gzip":
			return true
		}
	}
	return false
}
