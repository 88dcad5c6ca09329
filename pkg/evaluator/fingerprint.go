package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprint returns a stable sha256 hex digest of cfg. encoding/json
// marshals map keys in sorted order, so this is deterministic across
// calls with an equal (but differently-constructed) map.
func fingerprint(cfg map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
