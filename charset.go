// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// charsetEncodings maps the handful of non-UTF8mb4 MySQL charset ids a
// server might still tag a column with (legacy schemas, per-column
// CHARACTER SET overrides) to a golang.org/x/text/encoding.Encoding, so
// those columns decode correctly instead of mojibake-ing through as raw
// UTF-8. Charsets not listed here (including every UTF-8 family id) pass
// through unchanged.
var charsetEncodings = map[byte]encoding.Encoding{
	8:  charmap.ISO8859_1,        // latin1
	9:  charmap.ISO8859_2,        // latin2
	13: japanese.ShiftJIS,        // sjis
	28: simplifiedchinese.GBK,    // gbk
	51: charmap.Windows1251,      // cp1251
}

// decodeColumnText converts raw column bytes tagged with charset id cs
// into a UTF-8 Go string, passing UTF8/UTF8MB4/binary-ish charsets
// straight through and only invoking x/text for charsets this core knows
// aren't already UTF-8.
func decodeColumnText(cs byte, raw []byte) (string, error) {
	enc, ok := charsetEncodings[cs]
	if !ok {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &ProtocolError{Msg: "could not decode column text for charset", Err: err}
	}
	return string(out), nil
}
