// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// collations maps a subset of MySQL's collation names to their numeric ids,
// as referenced in HandshakeResponse41's Collation ID byte.
// Trimmed to the collations a client is actually likely to negotiate with;
// an unrecognized name falls back to defaultCollation in charsetID.
var collations = map[string]byte{
	"big5_chinese_ci":        1,
	"latin1_swedish_ci":      8,
	"ascii_general_ci":       11,
	"utf8_general_ci":        33,
	"latin1_general_ci":      48,
	"utf8_unicode_ci":        192,
	"utf8mb4_general_ci":     45,
	"utf8mb4_unicode_ci":     224,
	"utf8mb4_0900_ai_ci":     255,
	"binary":                 63,
	"gbk_chinese_ci":         28,
	"utf16_general_ci":       54,
	"utf32_general_ci":       60,
	"cp1251_general_ci":      51,
	"koi8r_general_ci":       7,
}
