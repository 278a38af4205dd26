// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

const (
	minProtocolVersion byte = 10

	// maxPacketSize is the maximum payload size of a single physical packet
	// before fragmentation (2^24 - 1).
	maxPacketSize = 1<<24 - 1

	// the auth-plugin this core supports exclusively; any other plugin name
	// returned during handshake is a fail-fast AuthenticationError.
	authPluginNativePassword = "mysql_native_password"

	defaultCollation = "utf8mb4_general_ci"
)

// Command bytes (COM_*). Only the commands the core layer emits.
const (
	comQuit             byte = 0x01
	comQuery            byte = 0x03
	comPing             byte = 0x0e
	comChangeUser       byte = 0x11
	comResetConnection  byte = 0x1f
)

// Response header bytes.
const (
	iOK          byte = 0x00
	iAuthMoreData byte = 0x01
	iLocalInFile byte = 0xfb
	iEOF         byte = 0xfe
	iERR         byte = 0xff
)

// clientFlag is the set of CLIENT_* capability bits exchanged during the
// handshake. Every bit up to CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA is named,
// so the iota values line up with the protocol's bit positions.
type clientFlag uint32

const (
	clientLongPassword clientFlag = 1 << iota
	clientFoundRows
	clientLongFlag
	clientConnectWithDB
	clientNoSchema
	clientCompress
	clientODBC
	clientLocalFiles
	clientIgnoreSpace
	clientProtocol41
	clientInteractive
	clientSSL
	clientIgnoreSIGPIPE
	clientTransactions
	clientReserved
	clientSecureConn
	clientMultiStatements
	clientMultiResults
	clientPSMultiResults
	clientPluginAuth
	clientConnectAttrs
	clientPluginAuthLenEncClientData
)

// statusFlag is the server_status bitfield carried on OK/EOF packets.
type statusFlag uint16

const (
	statusInTrans statusFlag = 1 << iota
	statusInAutocommit
	_
	statusMoreResultsExists
	statusNoGoodIndexUsed
	statusNoIndexUsed
	statusCursorExists
	statusLastRowSent
	statusDbDropped
	statusNoBackslashEscapes
	statusMetadataChanged
	statusQueryWasSlow
	statusPSOutParams
	statusInTransReadonly
	statusSessionStateChanged
)

// fieldType is the ColumnType tag transmitted in a ColumnDefinition41 packet.
type fieldType byte

const (
	fieldTypeDecimal fieldType = iota
	fieldTypeTiny
	fieldTypeShort
	fieldTypeLong
	fieldTypeFloat
	fieldTypeDouble
	fieldTypeNULL
	fieldTypeTimestamp
	fieldTypeLongLong
	fieldTypeInt24
	fieldTypeDate
	fieldTypeTime
	fieldTypeDateTime
	fieldTypeYear
	fieldTypeNewDate
	fieldTypeVarChar
	fieldTypeBit
)

const (
	fieldTypeJSON fieldType = iota + 0xf5
	fieldTypeNewDecimal
	fieldTypeEnum
	fieldTypeSet
	fieldTypeTinyBLOB
	fieldTypeMediumBLOB
	fieldTypeLongBLOB
	fieldTypeBLOB
	fieldTypeVarString
	fieldTypeString
	fieldTypeGeometry
)

// fieldFlag mirrors the flags bitset on a ColumnDefinition.
type fieldFlag uint16

const (
	flagNotNULL fieldFlag = 1 << iota
	flagPriKey
	flagUniqueKey
	flagMultipleKey
	flagBLOB
	flagUnsigned
	flagZeroFill
	flagBinary
	flagEnum
	flagAutoIncrement
	flagTimestamp
	flagSet
	_
	_
	_
	flagNum
)

// charSetBinary is the MySQL charset id used for raw/binary string columns.
const charSetBinary byte = 63
