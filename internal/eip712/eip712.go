// Package eip712 implements EIP-712 chainId-binding validation and
// dangerous-primary-type detection for typed-data signing requests.
package eip712

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TypedData is the internal representation of an EIP-712 payload. Fields
// are parsed leniently (anything can be missing) but decided strictly.
type TypedData struct {
	PrimaryType string          `json:"primaryType"`
	Domain      json.RawMessage `json:"domain"`
	Message     json.RawMessage `json:"message"`
}

type domainFields struct {
	ChainID            json.RawMessage `json:"chainId"`
	VerifyingContract  string          `json:"verifyingContract"`
}

type messageFields struct {
	Spender  *string         `json:"spender"`
	Operator *string         `json:"operator"`
	Taker    *string         `json:"taker"`
	Value    json.RawMessage `json:"value"`
	Amount   json.RawMessage `json:"amount"`
}

// dangerousPrimaryTypes enumerates the EIP-712 primary types that encode a
// spending or transfer authorization rather than a harmless message, keyed
// lower-case for ASCII-case-insensitive comparison.
var dangerousPrimaryTypes = map[string]struct{}{
	"permit":                    {},
	"permitsingle":              {},
	"permitbatch":               {},
	"permittransferfrom":        {},
	"permitwitnesstransferfrom": {},
	"order":                     {},
	"ordercomponents":           {},
	"metatransaction":           {},
	"forwardrequest":            {},
	"delegation":                {},
}

// Verdict is the outcome of analyzing a typed-data payload.
type Verdict struct {
	// Blocked is true if the dangerous primary-type check rejected the
	// payload. The chainId check (CheckChainID) reports its own result.
	Blocked bool
	// Reason is the full human-readable rejection reason, including
	// the primary type and synthetic on-chain action when applicable.
	Reason string
}

// ParseTypedData decodes raw into a TypedData, unwrapping a JSON-encoded
// string payload first if needed (some wallets double-encode the second
// signTypedData parameter as a string).
func ParseTypedData(raw json.RawMessage) (TypedData, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var td TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return TypedData{}, fmt.Errorf("unparseable EIP-712 payload: %w", err)
	}
	return td, nil
}

// CheckChainID validates that td's domain binds the signature to
// expectedChainID. expectedChainID == 0 disables the check entirely, even
// for dangerous primary types — the danger check still fires independently.
func CheckChainID(td TypedData, expectedChainID uint64) (blocked bool, reason string) {
	if expectedChainID == 0 {
		return false, ""
	}

	if len(td.Domain) == 0 {
		return true, "PATCH 3 (CROSS-CHAIN REPLAY): EIP-712 domain missing — cannot verify chainId binding"
	}

	var dom domainFields
	if err := json.Unmarshal(td.Domain, &dom); err != nil || len(dom.ChainID) == 0 {
		return true, "PATCH 3 (CROSS-CHAIN REPLAY): EIP-712 domain missing chainId — signature can be replayed on any chain"
	}

	chainID, ok := parseChainID(dom.ChainID)
	if !ok {
		return true, "PATCH 3 (CROSS-CHAIN REPLAY): EIP-712 domain chainId unparseable"
	}
	if chainID == 0 {
		return true, "PATCH 3 (CROSS-CHAIN REPLAY): EIP-712 domain chainId=0 (wildcard) — signature valid on ALL chains"
	}
	if chainID != expectedChainID {
		return true, fmt.Sprintf(
			"PATCH 3 (CROSS-CHAIN REPLAY): EIP-712 domain chainId=%d != expected %d — possible cross-chain replay attack",
			chainID, expectedChainID,
		)
	}
	return false, ""
}

// parseChainID accepts a JSON number, a 0x-prefixed hex string, or a
// decimal string — wallets encode domain.chainId inconsistently.
func parseChainID(raw json.RawMessage) (uint64, bool) {
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if n, err := asNumber.Int64(); err == nil && n >= 0 {
			return uint64(n), true
		}
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		s := asString
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, err := strconv.ParseUint(s[2:], 16, 64)
			return n, err == nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		return n, err == nil
	}

	return 0, false
}

// AnalyzeDanger inspects a typed-data payload's primary type and, for the
// closed set of dangerous types, synthesizes the plain-English on-chain
// action the signature actually authorizes. It is only meaningful for the
// signTypedData family; eth_sign/personal_sign are always blocked by the
// caller before reaching this function.
func AnalyzeDanger(td TypedData) Verdict {
	lower := strings.ToLower(td.PrimaryType)
	if _, dangerous := dangerousPrimaryTypes[lower]; !dangerous {
		return Verdict{Blocked: false}
	}

	var msg messageFields
	_ = json.Unmarshal(td.Message, &msg)

	spender := firstNonEmpty(msg.Spender, msg.Operator, msg.Taker)
	value := firstRawString(msg.Value, msg.Amount)

	var dom domainFields
	_ = json.Unmarshal(td.Domain, &dom)
	token := dom.VerifyingContract
	if token == "" {
		token = "unknown"
	}

	syntheticAction := synthesizeAction(td.PrimaryType, lower, spender, value, token)

	reason := fmt.Sprintf(
		"GOD-TIER 1 (EIP-712 Silent Dagger): Agent asked to sign '%s' — "+
			"this is NOT a login message. It is a cryptographic authorization "+
			"that translates to: %s. An attacker can extract this signature "+
			"and submit it on-chain to drain the vault.",
		td.PrimaryType, syntheticAction,
	)

	return Verdict{Blocked: true, Reason: reason}
}

func synthesizeAction(primaryType, lower, spender, value, token string) string {
	switch lower {
	case "permit", "permitsingle":
		return fmt.Sprintf("ERC20.approve(%s, %s) on token %s", spender, value, token)
	case "permitbatch":
		return fmt.Sprintf("BATCH ERC20.approve(%s, MULTIPLE_TOKENS)", spender)
	case "permittransferfrom", "permitwitnesstransferfrom":
		return fmt.Sprintf("Permit2.transferFrom(agent, %s, %s) on token %s", spender, value, token)
	case "order", "ordercomponents":
		return fmt.Sprintf("DEX Order: %s gains trading rights via signed order", spender)
	default:
		return fmt.Sprintf("DANGEROUS SIGNATURE: %s authorizes %s on %s", primaryType, spender, token)
	}
}

func firstNonEmpty(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return "unknown"
}

func firstRawString(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if len(c) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil && s != "" {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(c, &n); err == nil {
			return n.String()
		}
	}
	return "unknown"
}

// RawMessageSigningReason is the unconditional rejection reason for
// eth_sign / personal_sign.
func RawMessageSigningReason(method string) string {
	return fmt.Sprintf(
		"GOD-TIER 1: Raw message signing (%s) blocked. "+
			"AI agents must NEVER sign arbitrary messages — "+
			"they cannot distinguish login challenges from "+
			"cryptographic drain authorizations.",
		method,
	)
}
