package xsd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueParser decodes the text content of a leaf element or an
// attribute value into a native Go value. It fails with a
// SchemaError of kind CoercionError on malformed input.
type ValueParser func(s string) (interface{}, error)

// builtinTypes is the closed enumeration of XML Schema primitive
// local names this package understands, each mapped to the parser
// that decodes it. Names are stored without the schema prefix: the
// compiler strips whatever prefix a schema document bound to the XML
// Schema namespace before looking names up here (see compiler.qn).
var builtinTypes = map[string]ValueParser{
	"string":           identityParser,
	"normalizedString": identityParser,
	"token":            identityParser,
	"language":         identityParser,
	"NMTOKEN":          identityParser,
	"Name":             identityParser,
	"NCName":           identityParser,
	"ID":               identityParser,
	"IDREF":            identityParser,
	"ENTITY":           identityParser,
	"anyURI":           identityParser,

	"NMTOKENS": listParser,
	"IDREFS":   listParser,
	"ENTITIES": listParser,

	"boolean": booleanParser,

	"integer":            integerParser,
	"int":                integerParser,
	"long":               integerParser,
	"short":              integerParser,
	"byte":               integerParser,
	"negativeInteger":    integerParser,
	"nonNegativeInteger": integerParser,
	"nonPositiveInteger": integerParser,
	"positiveInteger":    integerParser,
	"unsignedByte":       integerParser,
	"unsignedInt":        integerParser,
	"unsignedLong":       integerParser,
	"unsignedShort":      integerParser,

	"decimal": decimalParser,
	"double":  floatParser,
	"float":   floatParser,

	"dateTime": dateTimeParser,
	"date":     dateTimeParser,

	"hexBinary":    hexBinaryParser,
	"base64Binary": base64BinaryParser,

	"duration":   identityParser,
	"time":       identityParser,
	"gYear":      identityParser,
	"gYearMonth": identityParser,
	"gMonth":     identityParser,
	"gMonthDay":  identityParser,
	"gDay":       identityParser,
	"QName":      identityParser,
	"NOTATION":   identityParser,
}

// anySimpleTypeNames are base-type local names that the compiler
// records as an absent base (no further restriction chain) rather
// than resolving through builtinTypes.
var anySimpleTypeNames = map[string]bool{
	"anySimpleType": true,
	"anyType":       true,
}

// builtinParser looks up the parser for an XML Schema primitive by
// its local name. The second return value is false if local does not
// name a built-in type.
func builtinParser(local string) (ValueParser, bool) {
	p, ok := builtinTypes[local]
	return p, ok
}

func identityParser(s string) (interface{}, error) {
	return s, nil
}

func listParser(s string) (interface{}, error) {
	return strings.Fields(s), nil
}

// booleanParser implements the corrected XSD boolean contract: case
// insensitive membership in {"true","false","0","1"}, decoding to the
// corresponding value -- not membership-as-truth. See SPEC_FULL.md
// §8 property 7 and DESIGN.md for why this differs from a naive
// "is this a valid boolean" check.
func booleanParser(s string) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return nil, newError(CoercionError, "invalid boolean value %q", s)
}

func integerParser(s string) (interface{}, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid integer value %q", s), Cause: err}
	}
	return n, nil
}

func decimalParser(s string) (interface{}, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid decimal value %q", s), Cause: err}
	}
	return f, nil
}

func floatParser(s string) (interface{}, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "inf", "+inf", "infinity":
		return float64PosInf(), nil
	case "-inf", "-infinity":
		return float64NegInf(), nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid float value %q", s), Cause: err}
	}
	return f, nil
}

func float64PosInf() float64 { return posInf }
func float64NegInf() float64 { return -posInf }

var posInf = mustParseFloat("+Inf")

func mustParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return f
}

// dateTimeLayouts covers ISO-8601 date and dateTime, with and without
// a timezone offset or fractional seconds. xsd:date and xsd:dateTime
// are both routed through this parser, matching §4.A.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02Z07:00",
	"2006-01-02",
}

func dateTimeParser(s string) (interface{}, error) {
	trimmed := strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}
	return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid date/dateTime value %q", s), Cause: lastErr}
}

func hexBinaryParser(s string) (interface{}, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid hexBinary value %q", s), Cause: err}
	}
	return b, nil
}

func base64BinaryParser(s string) (interface{}, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &SchemaError{Kind: CoercionError, Message: fmt.Sprintf("invalid base64Binary value %q", s), Cause: err}
	}
	return b, nil
}
