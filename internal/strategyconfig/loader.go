package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Load reads a YAML catalog and returns it with the raw bytes.
// An empty path loads the embedded default catalog.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Catalog, []byte, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cat, data, nil
}

// Default returns the embedded catalog
func Default() (*Catalog, []byte, error) {
	cat, err := Parse(defaultCatalogYAML)
	if err != nil {
		return nil, defaultCatalogYAML, err
	}
	return cat, defaultCatalogYAML, nil
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cat); err != nil {
		return nil, err
	}

	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Hash generates SHA256 hash from Catalog (canonical JSON)
// 주의: map 대신 struct/slice 사용으로 해시 재현성 보장
func Hash(cat *Catalog) (string, error) {
	jsonBytes, err := json.Marshal(cat)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot creates a provenance snapshot for a run
func NewSnapshot(cat *Catalog, yamlData []byte) (*CatalogSnapshot, error) {
	hash, err := Hash(cat)
	if err != nil {
		return nil, err
	}

	return &CatalogSnapshot{
		CatalogHash: hash,
		CatalogYAML: string(yamlData),
		CatalogID:   cat.Meta.CatalogID,
		Version:     cat.Meta.Version,
		CreatedAt:   time.Now(),
	}, nil
}
