// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"bytes"
	"crypto/tls"
	"encoding/binary"
	"fmt"
)

// readHandshakePacket parses the server's initial Handshake payload,
// recording the connection id, server version, and capability flags on the
// Session, and returning the 20-byte auth-data nonce and the plugin name
// the server proposes — the "fail fast unless mysql_native_password" gate
// lives in handshake(), one level up.
func (mc *Session) readHandshakePacket() (authData []byte, plugin string, err error) {
	data, err := mc.readPacket()
	if err != nil {
		return nil, "", err
	}

	if data[0] == iERR {
		return nil, "", mc.handleErrorPacket(data)
	}

	if data[0] < minProtocolVersion {
		return nil, "", &ProtocolError{Msg: fmt.Sprintf(
			"unsupported protocol version %d, version %d or higher is required",
			data[0], minProtocolVersion)}
	}

	serverEnd := 1 + bytes.IndexByte(data[1:], 0x00)
	mc.serverVersion = string(data[1:serverEnd])
	pos := serverEnd + 1

	mc.connectionID = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	nonce := append([]byte(nil), data[pos:pos+8]...)
	pos += 8 + 1 // first auth-data part, filler

	mc.flags = clientFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
	if mc.flags&clientProtocol41 == 0 {
		return nil, "", ErrOldProtocol
	}
	pos += 2

	if len(data) <= pos {
		var b [20]byte
		copy(b[:], nonce)
		return b[:8], plugin, nil
	}

	// charset[1] status[2] capability-upper[2] auth-data-len[1] reserved[10]
	pos += 1 + 2 + 2 + 1 + 10

	nonce = append(nonce, data[pos:pos+12]...)
	pos += 13 // 12 bytes of second nonce part plus its trailing NUL

	if end := bytes.IndexByte(data[pos:], 0x00); end != -1 {
		plugin = string(data[pos : pos+end])
	} else {
		plugin = string(data[pos:])
	}

	var b [20]byte
	copy(b[:], nonce)
	return b[:], plugin, nil
}

// upgradeTLS sends an SSL-request packet and performs the TLS handshake in
// place over the raw socket: the byte handler is wrapped in TLS once the
// SSL-request packet has been flushed. Since this core never loads
// certificate material itself, cfg.Cert supplies the ready-to-use
// *tls.Config.
func (mc *Session) upgradeTLS(cfg *Config) error {
	if mc.flags&clientSSL == 0 {
		return ErrNoTLS
	}
	if cfg.Cert == nil {
		return &ProtocolError{Msg: "SSLMode requires a CertProvider but none was configured"}
	}

	tlsConfig, err := cfg.Cert(cfg.Hosts[0])
	if err != nil {
		return err
	}

	clientFlags := mc.baseClientFlags(cfg) | clientSSL
	data, err := mc.buf.takeSmallBuffer(4 + 4 + 4 + 1 + 23)
	if err != nil {
		return errBadConnNoWrite
	}
	writeUint32(data[4:8], uint32(clientFlags))
	writeUint32(data[8:12], 0)
	data[12] = mc.charsetID()
	for i := 13; i < 13+23; i++ {
		data[i] = 0
	}
	if err := mc.writePacket(data); err != nil {
		return err
	}

	tlsConn := tls.Client(mc.netConn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	mc.rawConn = mc.netConn
	mc.netConn = tlsConn
	mc.buf.setConn(tlsConn)
	return nil
}

// baseClientFlags is the capability set this core always asks for,
// independent of TLS/compression, trimmed to the surface this core
// actually implements (no FoundRows/MultiStatements/ConnAttrs — those are
// database/sql-layer concerns this core does not implement).
func (mc *Session) baseClientFlags(cfg *Config) clientFlag {
	flags := clientProtocol41 |
		clientSecureConn |
		clientLongPassword |
		clientTransactions |
		clientPluginAuth |
		clientMultiResults |
		mc.flags&clientLongFlag

	if cfg.Compress {
		flags |= clientCompress
	}
	return flags
}

// writeHandshakeResponsePacket sends HandshakeResponse41, the connect
// operation's final step before authentication resolves.
func (mc *Session) writeHandshakeResponsePacket(authResp []byte, plugin string) error {
	clientFlags := mc.baseClientFlags(mc.cfg)
	if len(mc.cfg.DBName) > 0 {
		clientFlags |= clientConnectWithDB
	}

	var authRespLEIBuf [9]byte
	authRespLEI := appendLengthEncodedInteger(authRespLEIBuf[:0], uint64(len(authResp)))
	if len(authRespLEI) > 1 {
		clientFlags |= clientPluginAuthLenEncClientData
	}

	pktLen := 4 + 4 + 1 + 23 + len(mc.cfg.User) + 1 + len(authRespLEI) + len(authResp) + len(plugin) + 1
	if n := len(mc.cfg.DBName); n > 0 {
		pktLen += n + 1
	}

	data, err := mc.buf.takeSmallBuffer(pktLen + 4)
	if err != nil {
		return errBadConnNoWrite
	}

	writeUint32(data[4:8], uint32(clientFlags))
	writeUint32(data[8:12], 0)
	data[12] = mc.charsetID()

	pos := 13
	for ; pos < 13+23; pos++ {
		data[pos] = 0
	}

	if len(mc.cfg.User) > 0 {
		pos += copy(data[pos:], mc.cfg.User)
	}
	data[pos] = 0x00
	pos++

	pos += copy(data[pos:], authRespLEI)
	pos += copy(data[pos:], authResp)

	if len(mc.cfg.DBName) > 0 {
		pos += copy(data[pos:], mc.cfg.DBName)
		data[pos] = 0x00
		pos++
	}

	pos += copy(data[pos:], plugin)
	data[pos] = 0x00
	pos++

	return mc.writePacket(data[:pos])
}

// writeAuthSwitchPacket answers an AuthSwitchRequest with the rehashed
// scramble.
func (mc *Session) writeAuthSwitchPacket(authData []byte) error {
	data, err := mc.buf.takeSmallBuffer(4 + len(authData))
	if err != nil {
		return errBadConnNoWrite
	}
	copy(data[4:], authData)
	return mc.writePacket(data)
}

func writeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
