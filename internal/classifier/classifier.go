// Package classifier is a pure, total, case-sensitive map from a
// JSON-RPC method name to its request class.
package classifier

// Class is the outcome of classifying a method name.
type Class int

const (
	// Read is anything not otherwise classified — forwarded unchanged,
	// optionally sanitized.
	Read Class = iota
	// Send is a transaction-broadcasting method — subject to revocation,
	// threat-feed, and simulation gating.
	Send
	// Sign is an off-chain signing method — subject to EIP-712 analysis.
	Sign
	// ReceiptPoll is eth_getTransactionReceipt — consulted against the
	// synthetic receipt store first.
	ReceiptPoll
)

func (c Class) String() string {
	switch c {
	case Send:
		return "SEND"
	case Sign:
		return "SIGN"
	case ReceiptPoll:
		return "RECEIPT_POLL"
	default:
		return "READ"
	}
}

var sendMethods = map[string]struct{}{
	"eth_sendTransaction":    {},
	"eth_sendRawTransaction": {},
}

var signMethods = map[string]struct{}{
	"eth_sign":             {},
	"personal_sign":        {},
	"eth_signTypedData":    {},
	"eth_signTypedData_v3": {},
	"eth_signTypedData_v4": {},
}

const receiptPollMethod = "eth_getTransactionReceipt"

// Classify is a pure function of method name. It is total (every string
// maps to exactly one Class) and deterministic.
func Classify(method string) Class {
	if method == receiptPollMethod {
		return ReceiptPoll
	}
	if _, ok := sendMethods[method]; ok {
		return Send
	}
	if _, ok := signMethods[method]; ok {
		return Sign
	}
	return Read
}

// IsTypedDataSign reports whether method is one of the eth_signTypedData
// variants, which carry an EIP-712 payload subject to domain and
// primary-type analysis rather than the unconditional block applied to
// raw message signing.
func IsTypedDataSign(method string) bool {
	switch method {
	case "eth_signTypedData", "eth_signTypedData_v3", "eth_signTypedData_v4":
		return true
	default:
		return false
	}
}
