// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2016 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"crypto/tls"
	"time"
)

// SSLMode selects whether and how the session wraps its byte handler in
// TLS after the handshake. Certificate *policy* (which CAs to trust, which
// client cert to present) lives outside this core — callers hand in an
// already-built *tls.Config via CertProvider.
type SSLMode int

const (
	SSLModeNone SSLMode = iota
	SSLModePreferred
	SSLModeRequired
	SSLModeVerifyCA
	SSLModeVerifyFull
)

// CertProvider returns a ready-to-use *tls.Config for the given server
// name. The core never loads certificates itself; it only decides *when*
// to ask for one, driven by SSLMode.
type CertProvider func(serverName string) (*tls.Config, error)

// Config carries everything Connect needs. It intentionally has no
// "DSN string" constructor: textual connection-string parsing is an
// external collaborator.
type Config struct {
	Hosts    []string
	Port     int
	User     string
	Password string
	DBName   string

	SSLMode SSLMode
	Cert    CertProvider

	Collation        string
	Loc              *time.Location
	MaxAllowedPacket int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// Compress negotiates CLIENT_COMPRESS during the handshake. Packets
	// below minCompressSize bytes are still sent uncompressed — see
	// compress.go.
	Compress bool

	// ColumnsWithAlias, when set, qualifies Columns() with "table.column"
	// for aliased joins.
	ColumnsWithAlias bool

	// ConvertZeroDateTime controls how an all-zero DATE/DATETIME/TIMESTAMP
	// column decodes.
	ConvertZeroDateTime bool

	// RejectReadOnly closes the session when the server answers with
	// ER_CANT_EXECUTE_IN_READ_ONLY_TRANSACTION / ER_OPTION_PREVENTS_STATEMENT,
	// so a pool can redial a writable primary.
	RejectReadOnly bool

	Logger Logger

	// Pool and PoolGeneration are an opaque, non-owning back-reference —
	// a weak, non-owning reference: the core never dereferences Pool; it
	// only threads the value through so a caller's pool package can
	// identify which pool a session came from.
	Pool           any
	PoolGeneration uint64
}

func (c *Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return defaultLogger
}

func (c *Config) loc() *time.Location {
	if c.Loc != nil {
		return c.Loc
	}
	return time.UTC
}

func (c *Config) collation() string {
	if c.Collation != "" {
		return c.Collation
	}
	return defaultCollation
}

func (c *Config) maxAllowedPacket() int {
	if c.MaxAllowedPacket > 0 {
		return c.MaxAllowedPacket
	}
	return maxPacketSize
}
