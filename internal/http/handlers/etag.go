package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/gin-gonic/gin"
)

// preferencesETag versions saved preferences by their updatedAt, which moves
// on every write. Unsaved defaults carry no timestamp, so their tag is a
// strong hash of the body instead.
func preferencesETag(p preferences.Preferences) (string, error) {
	if p.UpdatedAt.IsZero() {
		return contentETag(p)
	}

	return `W/"` + p.UserID + "." + strconv.FormatInt(p.UpdatedAt.UnixNano(), 36) + `"`, nil
}

func contentETag(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)

	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func respondPreferences(ctx *gin.Context, status int, p preferences.Preferences) {
	etag, err := preferencesETag(p)
	if err != nil {
		ctx.JSON(status, p)
		return
	}

	ctx.Header("ETag", etag)
	if !p.UpdatedAt.IsZero() {
		ctx.Header("Last-Modified", p.UpdatedAt.UTC().Format(http.TimeFormat))
	}

	if ifNoneMatch(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, p)
}

// If-None-Match uses weak comparison: W/"x" and "x" name the same version.
func ifNoneMatch(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" || current == "" {
		return false
	}

	if header == "*" {
		return true
	}

	want := opaqueTag(current)

	for _, candidate := range strings.Split(header, ",") {
		if opaqueTag(candidate) == want {
			return true
		}
	}

	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
