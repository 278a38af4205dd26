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
	"context"
	"crypto/sha1"
)

// scrambleSHA1Password computes the mysql_native_password response:
// SHA1(password) XOR SHA1(nonce || SHA1(SHA1(password))).
func scrambleSHA1Password(nonce []byte, password string) []byte {
	if len(password) == 0 {
		return nil
	}

	// stage1 = SHA1(password)
	h := sha1.New()
	h.Write([]byte(password))
	stage1 := h.Sum(nil)

	// stage2 = SHA1(stage1)
	h.Reset()
	h.Write(stage1)
	stage2 := h.Sum(nil)

	// result = SHA1(nonce || stage2) XOR stage1
	h.Reset()
	h.Write(nonce)
	h.Write(stage2)
	scramble := h.Sum(nil)

	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

/******************************************************************************
*                                  Handshake                                  *
******************************************************************************/

// handshake reads the server's initial Handshake packet, optionally
// upgrades to TLS, sends HandshakeResponse41, and resolves any AuthSwitch
// exchange — failing fast unless the negotiated plugin is
// mysql_native_password.
func (mc *Session) handshake(cfg *Config) error {
	authData, plugin, err := mc.readHandshakePacket()
	if err != nil {
		return err
	}
	if plugin != authPluginNativePassword {
		return &AuthenticationError{Msg: "unsupported auth plugin: " + plugin}
	}
	copy(mc.authData[:], authData)

	if cfg.SSLMode != SSLModeNone {
		if err := mc.upgradeTLS(cfg); err != nil {
			return err
		}
	}

	authResp := scrambleSHA1Password(mc.authData[:], cfg.Password)
	if err := mc.writeHandshakeResponsePacket(authResp, plugin); err != nil {
		return err
	}

	if err := mc.finishAuth(authResp); err != nil {
		return err
	}

	// Negotiated, not merely requested: CLIENT_COMPRESS only takes effect
	// once the server's own capability bits (read off the handshake
	// packet into mc.flags) confirm it supports the compressed protocol
	// too.
	if cfg.Compress && mc.flags&clientCompress != 0 {
		mc.stream = newCompressor(mc.buf)
		mc.compressed = true
	}
	return nil
}

// finishAuth resolves whatever the server sends back after
// HandshakeResponse41: OK, an AuthSwitchRequest (rehash against the new
// nonce — only honored for mysql_native_password, fail-fast otherwise), or
// ERR.
func (mc *Session) finishAuth(authResp []byte) error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	switch data[0] {
	case iOK:
		return mc.handleOKPacket(data)
	case iERR:
		return mc.handleErrorPacket(data)
	case iEOF:
		// AuthSwitchRequest: 0xFE, plugin name (NUL-terminated), auth data.
		rest := data[1:]
		end := bytes.IndexByte(rest, 0x00)
		if end < 0 {
			return ErrMalformPkt
		}
		plugin := string(rest[:end])
		newNonce := rest[end+1:]

		if plugin != authPluginNativePassword {
			return &AuthenticationError{Msg: "auth switch requested unsupported plugin: " + plugin}
		}
		copy(mc.authData[:], newNonce)
		resp := scrambleSHA1Password(newNonce, mc.cfg.Password)
		if err := mc.writeAuthSwitchPacket(resp); err != nil {
			return err
		}
		return mc.readResultOK()
	default:
		return &ProtocolError{Msg: "unexpected handshake response header"}
	}
}

/******************************************************************************
*                            Reset / Change user                              *
******************************************************************************/

// serverSupportsResetConnection reports whether the handshake's reported
// server_version is new enough to support COM_RESET_CONNECTION (>= 5.7.3);
// the version string itself is free-form, so the comparison lives in
// versionAtLeast below rather than a capability bit.
func (mc *Session) serverSupportsResetConnection() bool {
	return versionAtLeast(mc.serverVersion, 5, 7, 3)
}

// Reset restores a session to a fresh-connection state for reuse:
// COM_RESET_CONNECTION + SET NAMES on servers that support it, otherwise
// COM_CHANGE_USER against the original handshake nonce (rehashing on
// AuthSwitch).
func (mc *Session) Reset(ctx context.Context, user, password, dbname string) error {
	if err := mc.checkUsable("reset"); err != nil {
		return err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	if mc.serverSupportsResetConnection() {
		if err := mc.writeCommandPacket(comResetConnection); err != nil {
			return err
		}
		if err := mc.readResultOK(); err != nil {
			return err
		}
		return mc.sendSetNames()
	}
	return mc.changeUser(user, password, dbname)
}

// ChangeUser switches the session's authenticated user directly via
// COM_CHANGE_USER, independent of Reset's version gate — some callers want
// this unconditionally (e.g. returning a pooled session to a different
// user).
func (mc *Session) ChangeUser(ctx context.Context, user, password, dbname string) error {
	if err := mc.checkUsable("change_user"); err != nil {
		return err
	}
	done, err := mc.watchCancel(ctx)
	if err != nil {
		return err
	}
	defer close(done)

	return mc.changeUser(user, password, dbname)
}

func (mc *Session) sendSetNames() error {
	if err := mc.writeCommandPacketStr(comQuery, "SET NAMES utf8mb4"); err != nil {
		return err
	}
	return mc.readResultOK()
}

// changeUser sends COM_CHANGE_USER hashed against the original handshake
// nonce, rehashing against a fresh nonce if the server answers with
// AuthSwitch.
func (mc *Session) changeUser(user, password, dbname string) error {
	authResp := scrambleSHA1Password(mc.authData[:], password)

	mc.startConversation()
	pktLen := 1 + len(user) + 1 + 1 + len(authResp) + len(dbname) + 1 + 2 + 1 + len(authPluginNativePassword) + 1
	data, err := mc.buf.takeBuffer(pktLen + 4)
	if err != nil {
		return errBadConnNoWrite
	}

	pos := 4
	data[pos] = comChangeUser
	pos++

	pos += copy(data[pos:], user)
	data[pos] = 0x00
	pos++

	data[pos] = byte(len(authResp))
	pos++
	pos += copy(data[pos:], authResp)

	pos += copy(data[pos:], dbname)
	data[pos] = 0x00
	pos++

	data[pos] = byte(mc.charsetID())
	data[pos+1] = 0x00
	pos += 2

	pos += copy(data[pos:], authPluginNativePassword)
	data[pos] = 0x00
	pos++

	if err := mc.writePacket(data[:pos]); err != nil {
		return err
	}
	return mc.finishAuth(authResp)
}

func (mc *Session) charsetID() byte {
	id, ok := collations[mc.cfg.collation()]
	if !ok {
		return collations[defaultCollation]
	}
	return id
}

// versionAtLeast parses a server_version string of the form "X.Y.Z[-suffix]"
// and checks it against major.minor.patch, defaulting to "supported" on a
// version string it can't parse (a permissive posture toward vendor forks
// like MariaDB).
func versionAtLeast(version string, major, minor, patch int) bool {
	var v [3]int
	i, field := 0, 0
	for field < 3 && i < len(version) {
		n := 0
		start := i
		for i < len(version) && version[i] >= '0' && version[i] <= '9' {
			n = n*10 + int(version[i]-'0')
			i++
		}
		if i == start {
			return true
		}
		v[field] = n
		field++
		if i < len(version) && version[i] == '.' {
			i++
		} else {
			break
		}
	}
	want := [3]int{major, minor, patch}
	for k := 0; k < 3; k++ {
		if v[k] != want[k] {
			return v[k] > want[k]
		}
	}
	return true
}
