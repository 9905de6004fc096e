package utils

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// TextToMd5Hash returns the hex encoded md5 digest of text.
func TextToMd5Hash(text string) (string, error) {
	h := md5.New()
	if _, err := h.Write([]byte(text)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetUrlExtNameWithDot extracts the file extension (including the leading dot)
// from a url or file name. Query strings are stripped before parsing, returns
// empty string if there is no extension.
func GetUrlExtNameWithDot(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return path.Ext(strings.SplitN(rawUrl, "?", 2)[0])
	}
	return path.Ext(u.Path)
}
