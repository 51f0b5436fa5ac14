package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"path"
	"sort"
	"strings"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// Fingerprint derives the deterministic cache key for a request from
// its method, normalized path, query string and the declared subset of
// headers. Two requests with the same fingerprint are served the same
// cached response.
func Fingerprint(req *event.Request, keyHeaders []string) string {
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	buf.WriteString(req.Method)
	buf.WriteByte('\n')
	buf.WriteString(normalizePath(req.Path))
	buf.WriteByte('\n')
	buf.WriteString(req.Query)

	names := make([]string, 0, len(keyHeaders))
	for _, name := range keyHeaders {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	for _, name := range names {
		values := req.Headers.Values(name)
		if len(values) == 0 {
			continue
		}
		buf.WriteByte('\n')
		buf.WriteString(name)
		buf.WriteByte(':')
		buf.WriteString(strings.Join(values, ","))
	}

	sum := md5.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}
