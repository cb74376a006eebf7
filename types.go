package gomodel

// TypeCastingStrategy controls whether the decoder tries to convert values of
// the wrong primitive type.
type TypeCastingStrategy int

const (
	ExpectExactTypes TypeCastingStrategy = iota // Reject values of the wrong type.
	TryCasting                                  // Convert strings, numbers and booleans where possible.
)

// ErrorReportingStrategy controls how many errors are collected.
type ErrorReportingStrategy int

const (
	StopAtFirstError ErrorReportingStrategy = iota // Return as soon as one error is found.
	AllErrors                                      // Collect every error.
)

// FieldStrictness controls how unknown object fields are handled.
type FieldStrictness int

const (
	ExpectExactFields     FieldStrictness = iota // Unknown fields are errors.
	AllowAdditionalFields                        // Unknown fields are dropped.
)

// UnionDecodingStrategy controls how union inputs are recognised.
type UnionDecodingStrategy int

const (
	TaggedUnions   UnionDecodingStrategy = iota // Input is {variantName: payload}.
	UntaggedUnions                              // Each variant is tried in declaration order.
)

// SensitiveInformationStrategy controls how sensitive values are encoded.
type SensitiveInformationStrategy int

const (
	ShowSensitive SensitiveInformationStrategy = iota
	HideSensitive                              // Sensitive values are encoded as null.
)

// DecodeOpt bundles decoding options. The zero value is the default.
type DecodeOpt struct {
	TypeCasting     TypeCastingStrategy
	ErrorReporting  ErrorReportingStrategy
	FieldStrictness FieldStrictness
	UnionDecoding   UnionDecodingStrategy
}

// ValidateOpt bundles validation options; only error reporting applies.
type ValidateOpt struct {
	ErrorReporting ErrorReportingStrategy
}

// EncodeOpt bundles encoding options.
type EncodeOpt struct {
	SensitiveInformation SensitiveInformationStrategy
}

// ValidateOpt derives the validation options implied by d.
func (d DecodeOpt) ValidateOpt() ValidateOpt {
	return ValidateOpt{ErrorReporting: d.ErrorReporting}
}

func (d DecodeOpt) casting() bool  { return d.TypeCasting == TryCasting }
func (d DecodeOpt) stopFirst() bool { return d.ErrorReporting == StopAtFirstError }

func firstDecodeOpt(opts []DecodeOpt) DecodeOpt {
	if len(opts) == 0 {
		return DecodeOpt{}
	}
	return opts[0]
}

func firstValidateOpt(opts []ValidateOpt) ValidateOpt {
	if len(opts) == 0 {
		return ValidateOpt{}
	}
	return opts[0]
}

func firstEncodeOpt(opts []EncodeOpt) EncodeOpt {
	if len(opts) == 0 {
		return EncodeOpt{}
	}
	return opts[0]
}

// undefined is the type of Undefined.
type undefined struct{}

// Undefined marks an absent value, as opposed to an explicit null (nil).
// Object fields that decode to Undefined are omitted from the decoded map.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}
