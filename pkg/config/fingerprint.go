package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint hashes every setting that can change results. Runtime settings
// and the input directory location are excluded so that moving a project or
// changing the worker count keeps the same run identity.
func Fingerprint(c *ConfigData) (string, error) {
	cp := *c
	cp.Inputs.Dir = ""
	b, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
