package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// TimedID builds ids in the portal's historical format:
// {prefix}-{unix millis}-{short random suffix}, e.g. mda-1756720000000-a1b2c3d4.
// Stored records created by earlier releases use this shape, so it is kept.
func TimedID(prefix string) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// LogID builds audit log ids: log_{unix millis}_{short random suffix}.
func LogID() string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("log_%d_%s", time.Now().UnixMilli(), suffix)
}
