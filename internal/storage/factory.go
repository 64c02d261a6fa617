package storage

import "strings"

// NewStorage builds the ObjectStorage for the configured endpoint. An
// empty Type is inferred from the endpoint host, so configs only need
// to spell it out for self-hosted gateways with custom domains.
func NewStorage(cfg *S3Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = kindFromEndpoint(cfg.Endpoint)
	}
	return NewS3Storage(cfg)
}

func kindFromEndpoint(endpoint string) StorageType {
	host := strings.ToLower(endpoint)
	if strings.Contains(host, "r2.cloudflarestorage.com") {
		return StorageTypeR2
	}
	if strings.Contains(host, "amazonaws.com") {
		return StorageTypeS3
	}
	return StorageTypeS3Compatible
}
