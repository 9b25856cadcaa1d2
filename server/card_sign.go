package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gate4ai/a2a/schema"
)

const signaturePrefix = "hmac-sha256:"

// SignAgentCard computes the card's HMAC over its canonical serialization
// and returns a copy with the signature attached. Deterministic: same card
// and secret always produce the same signature.
func SignAgentCard(card *schema.AgentCard, secret []byte) (*schema.AgentCard, error) {
	canonical, err := canonicalizeCard(card)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	signature := signaturePrefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	signed := *card
	signed.Signature = &signature
	return &signed, nil
}

// VerifyAgentCardSignature recomputes the MAC and compares in constant time.
// A missing signature, unknown algorithm prefix, undecodable MAC or mismatch
// all yield false.
func VerifyAgentCardSignature(card *schema.AgentCard, secret []byte) bool {
	if card.Signature == nil {
		return false
	}
	encoded, ok := strings.CutPrefix(*card.Signature, signaturePrefix)
	if !ok {
		return false
	}
	claimed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}

	canonical, err := canonicalizeCard(card)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	return hmac.Equal(claimed, mac.Sum(nil))
}

// canonicalizeCard serializes the card as compact JSON with recursively
// sorted keys, omitting the signature field.
func canonicalizeCard(card *schema.AgentCard) ([]byte, error) {
	stripped := *card
	stripped.Signature = nil

	raw, err := json.Marshal(&stripped)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize agent card: %w", err)
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to reparse agent card: %w", err)
	}

	var sb strings.Builder
	if err := writeCanonical(&sb, tree); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeCanonical(sb *strings.Builder, value interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(keyJSON)
			sb.WriteByte(':')
			if err := writeCanonical(sb, v[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case []interface{}:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	default:
		leaf, err := json.Marshal(v)
		if err != nil {
			return err
		}
		sb.Write(leaf)
	}
	return nil
}
