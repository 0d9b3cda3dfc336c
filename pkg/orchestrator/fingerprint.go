package orchestrator

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// fingerprintLen matches spec §4.4 step 4: the first 32 characters of the
// base64-encoded sha256 digest of the lowercased user turn.
const fingerprintLen = 32

// fingerprint returns the deterministic cache-key suffix for userTurn.
func fingerprint(userTurn string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(userTurn)))
	encoded := base64.URLEncoding.EncodeToString(sum[:])
	if len(encoded) > fingerprintLen {
		return encoded[:fingerprintLen]
	}
	return encoded
}

func summaryKey(sessionID, lastMessageID string) string {
	return "summary:" + sessionID + ":" + lastMessageID
}

func artifactsKey(projectID, userTurn string) string {
	return "artifacts:" + projectID + ":" + fingerprint(userTurn)
}

func artifactsPrefix(projectID string) string {
	return "artifacts:" + projectID + ":"
}

func artifactKey(projectID, artifactID string) string {
	return "artifact:" + projectID + ":" + artifactID
}
