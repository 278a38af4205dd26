// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// columnDefinition is the immutable metadata read once per result set, in
// ColumnDefinition41 order, widened with the fields readColumns already
// decodes (charSet, length) so the row value decoder below has everything
// it needs.
type columnDefinition struct {
	table     string
	name      string
	charSet   byte
	length    uint32
	fieldType fieldType
	flags     fieldFlag
	decimals  byte
}

func (c *columnDefinition) unsigned() bool { return c.flags&flagUnsigned != 0 }
func (c *columnDefinition) binary() bool   { return c.charSet == charSetBinary }

// columnNames renders the display names for a ColumnDefinition slice,
// qualifying with "table." when cfg.ColumnsWithAlias is set.
func columnNames(columns []columnDefinition, withAlias bool) []string {
	names := make([]string, len(columns))
	for i := range columns {
		if withAlias && columns[i].table != "" {
			names[i] = columns[i].table + "." + columns[i].name
		} else {
			names[i] = columns[i].name
		}
	}
	return names
}

// Null is the NULL sentinel returned by decodeValue for any column whose
// row offset was recorded as -1.
type Null struct{}

func (Null) String() string { return "NULL" }

// Time is the signed TIME-column interval: hours may exceed 24 and the
// whole value may be negative, so it cannot round-trip through
// time.Duration's documented range safely at display precision — it is
// kept as its own small value type instead.
type Time struct {
	Negative bool
	Hours    int
	Minutes  int
	Seconds  int
	Micros   int
}

// Decimal preserves a DECIMAL/NEWDECIMAL column's exact textual
// representation: a fixed-point decimal without lossy conversion, and
// without pulling in a bignum dependency just to hold a column value.
type Decimal string

// decodeValue maps one textual-protocol column value to a Go value based
// on its MySQL column type. raw is the exact byte slice recorded between a
// row's offset and offset+length; isNull true means the column's
// length-encoded integer was the NULL sentinel (0xFB).
func decodeValue(col *columnDefinition, raw []byte, isNull bool, loc *time.Location, convertZeroDateTime bool) (any, error) {
	if isNull {
		return Null{}, nil
	}

	switch col.fieldType {
	case fieldTypeTiny:
		if col.length == 1 {
			return raw[0] != '0', nil
		}
		if col.unsigned() {
			v, err := strconv.ParseUint(string(raw), 10, 8)
			return uint8(v), err
		}
		v, err := strconv.ParseInt(string(raw), 10, 8)
		return int8(v), err

	case fieldTypeShort:
		if col.unsigned() {
			v, err := strconv.ParseUint(string(raw), 10, 16)
			return uint16(v), err
		}
		v, err := strconv.ParseInt(string(raw), 10, 16)
		return int16(v), err

	case fieldTypeInt24, fieldTypeLong:
		if col.unsigned() {
			v, err := strconv.ParseUint(string(raw), 10, 32)
			return uint32(v), err
		}
		v, err := strconv.ParseInt(string(raw), 10, 32)
		return int32(v), err

	case fieldTypeLongLong:
		if col.unsigned() {
			v, err := strconv.ParseUint(string(raw), 10, 64)
			return v, err
		}
		v, err := strconv.ParseInt(string(raw), 10, 64)
		return v, err

	case fieldTypeBit:
		var v uint64
		for _, b := range raw {
			v = v*256 + uint64(b)
		}
		return v, nil

	case fieldTypeYear:
		v, err := strconv.ParseInt(string(raw), 10, 32)
		return int32(v), err

	case fieldTypeFloat:
		v, err := strconv.ParseFloat(string(raw), 32)
		return float32(v), err

	case fieldTypeDouble:
		return strconv.ParseFloat(string(raw), 64)

	case fieldTypeDecimal, fieldTypeNewDecimal:
		return Decimal(raw), nil

	case fieldTypeDate, fieldTypeNewDate, fieldTypeDateTime, fieldTypeTimestamp:
		return parseDateTime(raw, loc, convertZeroDateTime)

	case fieldTypeTime:
		return parseTime(raw)

	case fieldTypeJSON:
		return string(raw), nil

	case fieldTypeString:
		if col.length/4 == 36 && !col.binary() {
			// 36 chars at up to 4 bytes/char: a CHAR(36) UUID column. The
			// OldGuids form (fixed BINARY(16)) is handled below alongside the
			// rest of the binary-charset branch.
			id, err := uuid.Parse(string(raw))
			if err != nil {
				return nil, &ProtocolError{Msg: "malformed UUID column", Err: err}
			}
			return id, nil
		}
		fallthrough
	case fieldTypeVarChar, fieldTypeVarString,
		fieldTypeBLOB, fieldTypeTinyBLOB, fieldTypeMediumBLOB, fieldTypeLongBLOB:
		if col.binary() {
			if len(raw) == 16 {
				var id uuid.UUID
				copy(id[:], raw)
				return id, nil
			}
			out := make([]byte, len(raw))
			copy(out, raw)
			return out, nil
		}
		return decodeColumnText(col.charSet, raw)

	default:
		return nil, &UnsupportedError{Feature: fmt.Sprintf("column type 0x%x", byte(col.fieldType))}
	}
}

// parseDateTime parses the "YYYY-MM-DD[ HH:MM:SS[.ffffff]]" textual
// format, right-padding a short fractional part to microseconds.
func parseDateTime(raw []byte, loc *time.Location, convertZeroDateTime bool) (any, error) {
	s := string(raw)
	if isZeroDateTime(s) {
		if convertZeroDateTime {
			return time.Time{}, nil
		}
		return nil, &ProtocolError{Msg: "invalid zero date/time " + s}
	}

	datePart, timePart, hasTime := strings.Cut(s, " ")
	var year, month, day int
	if _, err := fmt.Sscanf(datePart, "%04d-%02d-%02d", &year, &month, &day); err != nil {
		return nil, &ProtocolError{Msg: "malformed date " + s, Err: err}
	}
	if !hasTime {
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), nil
	}

	var hour, min, sec int
	secPart, fracPart, hasFrac := strings.Cut(timePart, ".")
	if _, err := fmt.Sscanf(secPart, "%02d:%02d:%02d", &hour, &min, &sec); err != nil {
		return nil, &ProtocolError{Msg: "malformed time-of-day " + s, Err: err}
	}

	nsec := 0
	if hasFrac {
		micros, err := padFraction(fracPart)
		if err != nil {
			return nil, &ProtocolError{Msg: "malformed fractional seconds " + s, Err: err}
		}
		nsec = micros * 1000
	}

	return time.Date(year, time.Month(month), day, hour, min, sec, nsec, loc), nil
}

func isZeroDateTime(s string) bool {
	return strings.HasPrefix(s, "0000-00-00")
}

// padFraction right-pads or truncates a fractional-seconds string to 6
// digits and returns it as whole microseconds.
func padFraction(frac string) (int, error) {
	if len(frac) > 6 {
		frac = frac[:6]
	} else {
		frac += strings.Repeat("0", 6-len(frac))
	}
	return strconv.Atoi(frac)
}

// parseTime parses the "[-]HHH:MM:SS[.ffffff]" TIME textual format: the
// sign on hours propagates to minutes, seconds, and microseconds.
func parseTime(raw []byte) (Time, error) {
	s := string(raw)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	secPart, fracPart, hasFrac := strings.Cut(s, ".")
	var hours, minutes, seconds int
	if _, err := fmt.Sscanf(secPart, "%d:%d:%d", &hours, &minutes, &seconds); err != nil {
		return Time{}, &ProtocolError{Msg: "malformed TIME value " + s, Err: err}
	}

	micros := 0
	if hasFrac {
		m, err := padFraction(fracPart)
		if err != nil {
			return Time{}, &ProtocolError{Msg: "malformed TIME fraction " + s, Err: err}
		}
		micros = m
	}

	return Time{Negative: neg, Hours: hours, Minutes: minutes, Seconds: seconds, Micros: micros}, nil
}
