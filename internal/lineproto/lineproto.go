// Package lineproto renders InfluxDB line protocol points.
//
// A point is written as
//
//	measurement[,tag=value...] field=value[,field=value...]
//
// Floats always carry three decimals, integers end in "i" and booleans are
// the literals true/false. Only tag values are escaped.
package lineproto

import (
	"strconv"
	"strings"
)

type Tag struct {
	Key   string
	Value string
}

type kind uint8

const (
	kindFloat kind = iota
	kindInt
	kindBool
)

// Field is a typed field value. Build one with Float, Int or Bool.
type Field struct {
	Key  string
	kind kind
	f    float64
	i    int64
	b    bool
}

func Float(key string, v float64) Field { return Field{Key: key, kind: kindFloat, f: v} }
func Int(key string, v int64) Field     { return Field{Key: key, kind: kindInt, i: v} }
func Bool(key string, v bool) Field     { return Field{Key: key, kind: kindBool, b: v} }

// String returns the wire form of the field value.
func (f Field) String() string {
	switch f.kind {
	case kindInt:
		return strconv.FormatInt(f.i, 10) + "i"
	case kindBool:
		return strconv.FormatBool(f.b)
	default:
		return strconv.FormatFloat(f.f, 'f', 3, 64)
	}
}

// One pass, so a backslash added for a space is never doubled again.
var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `\ `,
	`,`, `\,`,
	`=`, `\=`,
)

// EscapeTag escapes backslash, space, comma and equals in a tag value.
func EscapeTag(v string) string {
	return tagEscaper.Replace(v)
}

// Build renders one point. Tags and fields keep the order they are given in.
func Build(measurement string, tags []Tag, fields []Field) string {
	var b strings.Builder
	b.WriteString(measurement)
	for _, t := range tags {
		b.WriteByte(',')
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(EscapeTag(t.Value))
	}
	b.WriteByte(' ')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.String())
	}
	return b.String()
}
