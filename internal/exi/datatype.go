package exi

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ValueKind is the datatype tag carried alongside a decoded/encoded typed
// value (C2 §2 "Typed value codecs"). Grounded on the teacher's
// core.ValueType (core/values.go), trimmed to the representations this
// core actually round-trips: schema-informed datatypes beyond this set are
// out of scope (no schema-informed grammar, see grammar.go).
type ValueKind int

const (
	KindString ValueKind = iota
	KindBoolean
	KindDecimal
	KindFloat
	KindInteger
	KindDateTime
	KindBinaryBase64
	KindBinaryHex
)

// TypedValue is the decoded form of one CH/AT atom: the raw lexical string
// plus, lazily, its typed representation. Processors that only need the
// lexical form (the common case once DatatypeMap is off) never pay for
// parsing it.
type TypedValue struct {
	Kind ValueKind
	Lex  string
}

func StringValue(s string) TypedValue { return TypedValue{Kind: KindString, Lex: s} }

// Bool parses the canonical XSD boolean lexical space (§4.2 "boolean").
func (v TypedValue) Bool() (bool, error) {
	switch strings.TrimSpace(v.Lex) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("exi: invalid boolean lexical %q", v.Lex)
	}
}

// Decimal parses the lexical form as an arbitrary-precision decimal.
func (v TypedValue) Decimal() (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(v.Lex))
	return d, err
}

// Integer parses the lexical form as an arbitrary-precision integer.
func (v TypedValue) Integer() (*big.Int, error) {
	s := strings.TrimSpace(v.Lex)
	if s != "" && s[0] == '+' {
		s = s[1:]
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("exi: invalid integer lexical %q", v.Lex)
	}
	return n, nil
}

// Float64 parses the lexical form as an IEEE 754 double.
func (v TypedValue) Float64() (float64, error) {
	s := strings.TrimSpace(v.Lex)
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

// Binary decodes base64 or hex lexical binary content.
func (v TypedValue) Binary(kind ValueKind) ([]byte, error) {
	switch kind {
	case KindBinaryBase64:
		return base64.StdEncoding.DecodeString(strings.TrimSpace(v.Lex))
	case KindBinaryHex:
		return hex.DecodeString(strings.TrimSpace(v.Lex))
	default:
		return nil, fmt.Errorf("exi: %v is not a binary kind", kind)
	}
}

// --- decimal wire codec on top of channel.go's sign+integral+reversed-fraction atoms ---

// EncodeDecimal writes a decimal's lexical form using the three-part
// §4.2 encoding: sign bit, integral magnitude, and the fractional digits
// reversed (so leading fractional zeros, which are significant, land in
// the low-order end of the reversed integer and survive round-tripping;
// trailing fractional zeros are not significant and may be dropped).
func EncodeDecimal(ch *EncoderChannel, lex string) error {
	negative, integral, revFraction, err := splitDecimal(lex)
	if err != nil {
		return err
	}
	ch.WriteDecimalParts(negative, integral, revFraction)
	return nil
}

// DecodeDecimal reads the three parts back and reassembles the canonical
// lexical form "[-]integral.fraction".
func DecodeDecimal(ch *DecoderChannel) (string, error) {
	negative, integral, revFraction, err := ch.ReadDecimalParts()
	if err != nil {
		return "", err
	}
	return joinDecimal(negative, integral, revFraction), nil
}

func splitDecimal(lex string) (negative bool, integral uint64, revFraction uint64, err error) {
	s := strings.TrimSpace(lex)
	if s == "" {
		return false, 0, 0, fmt.Errorf("exi: empty decimal lexical")
	}
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	ip := new(big.Int)
	if _, ok := ip.SetString(intPart, 10); !ok {
		return false, 0, 0, fmt.Errorf("exi: invalid decimal integral part %q", intPart)
	}
	if !ip.IsUint64() {
		return false, 0, 0, fmt.Errorf("exi: decimal integral part overflows 64 bits")
	}
	integral = ip.Uint64()

	if !hasDot || fracPart == "" {
		return negative, integral, 0, nil
	}
	rev := reverseString(fracPart)
	fp := new(big.Int)
	if _, ok := fp.SetString(rev, 10); !ok {
		return false, 0, 0, fmt.Errorf("exi: invalid decimal fraction part %q", fracPart)
	}
	if !fp.IsUint64() {
		return false, 0, 0, fmt.Errorf("exi: decimal fraction part overflows 64 bits")
	}
	revFraction = fp.Uint64()
	return negative, integral, revFraction, nil
}

func joinDecimal(negative bool, integral, revFraction uint64) string {
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	fmt.Fprintf(&sb, "%d.", integral)
	if revFraction == 0 {
		sb.WriteByte('0')
		return sb.String()
	}
	sb.WriteString(reverseString(fmt.Sprintf("%d", revFraction)))
	return sb.String()
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// --- float wire codec: mantissa/exponent pair, §4.2 "float" ---

// floatSpecialExponent is the sentinel exponent (-(2^14)) marking one of
// the three IEEE special values, distinguished by mantissa (1/-1/other).
const floatSpecialExponent = -(1 << 14)

func EncodeFloat(ch *EncoderChannel, f float64) {
	if math.IsNaN(f) {
		ch.WriteSignedInteger(false, 0)
		ch.WriteSignedInteger(true, uint64(-floatSpecialExponent))
		return
	}
	if math.IsInf(f, 1) {
		ch.WriteSignedInteger(false, 1)
		ch.WriteSignedInteger(true, uint64(-floatSpecialExponent))
		return
	}
	if math.IsInf(f, -1) {
		ch.WriteSignedInteger(true, 1)
		ch.WriteSignedInteger(true, uint64(-floatSpecialExponent))
		return
	}

	mantissa, exponent := decomposeFloat(f)
	mNeg := mantissa < 0
	if mNeg {
		mantissa = -mantissa
	}
	ch.WriteSignedInteger(mNeg, uint64(mantissa))
	eNeg := exponent < 0
	if eNeg {
		exponent = -exponent
	}
	ch.WriteSignedInteger(eNeg, uint64(exponent))
}

func DecodeFloat(ch *DecoderChannel) (float64, error) {
	mNeg, mMag, err := ch.ReadSignedInteger()
	if err != nil {
		return 0, err
	}
	eNeg, eMag, err := ch.ReadSignedInteger()
	if err != nil {
		return 0, err
	}
	exponent := int64(eMag)
	if eNeg {
		exponent = -exponent
	}
	mantissa := int64(mMag)
	if mNeg {
		mantissa = -mantissa
	}

	if exponent == floatSpecialExponent {
		switch mantissa {
		case 1:
			return math.Inf(1), nil
		case -1:
			return math.Inf(-1), nil
		default:
			return math.NaN(), nil
		}
	}
	return float64(mantissa) * math.Pow(10, float64(exponent)), nil
}

// decomposeFloat finds an integer mantissa and base-10 exponent such that
// mantissa * 10^exponent == f, pushing the exponent down until the
// mantissa is integral (mirrors the teacher's FloatValueParseFloat64,
// core/values.go).
func decomposeFloat(f float64) (mantissa int64, exponent int64) {
	for f != math.Trunc(f) {
		f *= 10
		exponent--
	}
	return int64(f), exponent
}

// --- dateTime: only the subset this core exercises (xs:dateTime) ---

// EncodeDateTime writes a dateTime value as year, monthDay, time-of-day
// (seconds since midnight, as a 17-bit unsigned integer) and an optional
// timezone offset in minutes. Grounded on the teacher's DateTimeValue
// (core/values.go) wire layout, narrowed to the one XSD kind this
// processor's Serializer surface (xmlio) actually produces/consumes.
func EncodeDateTime(ch *EncoderChannel, t time.Time) {
	ch.WriteSignedInteger(t.Year() < 0, uint64(absInt(t.Year())))
	monthDay := int(t.Month())*32 + t.Day()
	ch.WriteNBitUnsignedInt(monthDay, 9)
	secOfDay := t.Hour()*3600 + t.Minute()*60 + t.Second()
	ch.WriteNBitUnsignedInt(secOfDay, 17)
	_, offset := t.Zone()
	hasZone := offset != 0 || t.Location() != time.UTC
	ch.WriteBoolean(hasZone)
	if hasZone {
		ch.WriteNBitUnsignedInt(offset/60+896, 11)
	}
}

func DecodeDateTime(ch *DecoderChannel) (time.Time, error) {
	neg, yMag, err := ch.ReadSignedInteger()
	if err != nil {
		return time.Time{}, err
	}
	year := int(yMag)
	if neg {
		year = -year
	}
	monthDay, err := ch.ReadNBitUnsignedInt(9)
	if err != nil {
		return time.Time{}, err
	}
	secOfDay, err := ch.ReadNBitUnsignedInt(17)
	if err != nil {
		return time.Time{}, err
	}
	hasZone, err := ch.ReadBoolean()
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if hasZone {
		tz, err := ch.ReadNBitUnsignedInt(11)
		if err != nil {
			return time.Time{}, err
		}
		offsetMin := tz - 896
		loc = time.FixedZone("", offsetMin*60)
	}
	month := monthDay / 32
	day := monthDay - month*32
	return time.Date(year, time.Month(month), day, secOfDay/3600, (secOfDay/60)%60, secOfDay%60, 0, loc), nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
