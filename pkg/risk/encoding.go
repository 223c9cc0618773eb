package risk

// EncoderTable maps a categorical feature to the categories the model was
// trained on. A category's position is its trained encoding.
type EncoderTable map[string][]string

type EncodingKind int

const (
	// Found means the value was part of the trained category set.
	Found EncodingKind = iota
	// FellBackToToken means the value was unseen and a trained
	// "unknown"-style token was used instead.
	FellBackToToken
	// FellBackToFirst means neither the value nor a fallback token was
	// trained; the first trained category stands in. The result carries no
	// meaning beyond being stable.
	FellBackToFirst
)

func (k EncodingKind) String() string {
	switch k {
	case Found:
		return "found"
	case FellBackToToken:
		return "fallback_token"
	case FellBackToFirst:
		return "fallback_first"
	default:
		return "unknown"
	}
}

// FallbackTokens are tried in order, case-sensitively, for unseen values.
var FallbackTokens = []string{"Unknown", "unknown", "UNK"}

type Encoding struct {
	Index int
	Kind  EncodingKind
	// Value is the trained category the index refers to.
	Value string
}

func (e Encoding) Degraded() bool {
	return e.Kind != Found
}

// EncodeCategorical resolves value against the trained categories of
// feature. It never fails; unseen values walk the fallback chain.
func EncodeCategorical(feature, value string, known EncoderTable) Encoding {
	categories := known[feature]
	if idx := indexOf(categories, value); idx >= 0 {
		return Encoding{Index: idx, Kind: Found, Value: value}
	}
	for _, token := range FallbackTokens {
		if idx := indexOf(categories, token); idx >= 0 {
			return Encoding{Index: idx, Kind: FellBackToToken, Value: token}
		}
	}
	if len(categories) == 0 {
		return Encoding{Index: 0, Kind: FellBackToFirst}
	}
	return Encoding{Index: 0, Kind: FellBackToFirst, Value: categories[0]}
}

func indexOf(categories []string, value string) int {
	for i, c := range categories {
		if c == value {
			return i
		}
	}
	return -1
}
