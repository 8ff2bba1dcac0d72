// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package payload

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/aviate-labs/leb128"
	"github.com/btcsuite/btcd/txscript"

	"bridge/internal/sequencereader"
)

// Version defines the current deposit payload version.
const Version byte = 1

// protocolTag defines the op code after OP_RETURN that marks the bridge
// deposit protocol, to disambiguate deposit payloads from other OP_RETURN uses.
const protocolTag = txscript.OP_16

// maxPayloadLen defines maximum payload size in bytes that fits the standard
// OP_RETURN data carrier limit.
const maxPayloadLen = 80

// maxReceiverLen defines maximum receiver principal size in bytes.
const maxReceiverLen = 48

// ErrMalformedPayload defines that deposit payload failed to parse.
var ErrMalformedPayload = errors.New("deposit payload is malformed")

// ErrUnsupportedVersion defines that payload version is not supported.
var ErrUnsupportedVersion = errors.New("unsupported payload version")

// ErrPayloadOverflow defines too large size of the payload.
var ErrPayloadOverflow = errors.New("payload overflow")

// Payload holds the data embedded into a deposit transaction's OP_RETURN
// output. The receiver principal is the only channel carrying the intended
// second-chain credit recipient once the transaction is broadcast, so the
// encoding is deterministic and self-describing: a LEB128 integer sequence of
// version, receiver byte length, and the receiver bytes as one integer.
type Payload struct {
	Version  byte
	Receiver string // second-chain principal.
}

// New constructs a current-version Payload for the given receiver principal.
func New(receiver string) Payload {
	return Payload{Version: Version, Receiver: receiver}
}

// IntoScript returns the payload as a full OP_RETURN script.
func (p Payload) IntoScript() ([]byte, error) {
	data, err := p.encode()
	if err != nil {
		return nil, err
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddOp(protocolTag).
		AddData(data).
		Script()
}

// encode returns the payload as LEB128-encoded integer sequence.
func (p Payload) encode() ([]byte, error) {
	receiver := []byte(p.Receiver)
	if len(receiver) == 0 || len(receiver) > maxReceiverLen {
		return nil, ErrPayloadOverflow
	}

	sequence := []*big.Int{
		big.NewInt(int64(p.Version)),
		big.NewInt(int64(len(receiver))),
		new(big.Int).SetBytes(receiver),
	}

	data, err := intSequenceIntoPayload(sequence)
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayloadLen {
		return nil, ErrPayloadOverflow
	}

	return data, nil
}

// IsPossibleDepositScript returns true if the script starts with the bridge
// deposit protocol bytes sequence.
func IsPossibleDepositScript(script []byte) bool {
	switch {
	case len(script) < 4: // OP_RETURN + protocol tag + OP_PUSH_<num> + data(at least 1 byte).
		return false
	case script[0] != txscript.OP_RETURN:
		return false
	case script[1] != protocolTag:
		return false
	case script[2] < txscript.OP_DATA_1 || script[2] > txscript.OP_DATA_75:
		return false
	}

	return true
}

// ParseScript parses a Payload from an OP_RETURN script.
func ParseScript(script []byte) (*Payload, error) {
	if !IsPossibleDepositScript(script) {
		return nil, ErrMalformedPayload
	}

	pushed, err := txscript.PushedData(script)
	if err != nil || len(pushed) != 1 {
		return nil, ErrMalformedPayload
	}

	sequence, err := payloadIntoIntSequence(pushed[0])
	if err != nil {
		return nil, ErrMalformedPayload
	}

	return parse(sequencereader.New(sequence))
}

// parse parses payload fields from integer sequence.
func parse(sr *sequencereader.SequenceReader[*big.Int]) (*Payload, error) {
	version, err := sr.Next()
	if err != nil {
		return nil, ErrMalformedPayload
	}
	if !version.IsInt64() || version.Int64() != int64(Version) {
		return nil, ErrUnsupportedVersion
	}

	length, err := sr.Next()
	if err != nil {
		return nil, ErrMalformedPayload
	}
	if !length.IsInt64() || length.Int64() <= 0 || length.Int64() > maxReceiverLen {
		return nil, ErrMalformedPayload
	}

	receiverInt, err := sr.Next()
	if err != nil {
		return nil, ErrMalformedPayload
	}
	if sr.HasNext() {
		return nil, ErrMalformedPayload
	}

	receiver := receiverInt.Bytes()
	if len(receiver) > int(length.Int64()) {
		return nil, ErrMalformedPayload
	}

	// restore leading zero bytes dropped by the integer form.
	padded := make([]byte, length.Int64())
	copy(padded[int(length.Int64())-len(receiver):], receiver)

	return &Payload{Version: byte(version.Int64()), Receiver: string(padded)}, nil
}

// payloadIntoIntSequence decodes payload in LEB128 into integer sequence.
func payloadIntoIntSequence(data []byte) ([]*big.Int, error) {
	sequence := make([]*big.Int, 0, 3)
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		num, err := leb128.DecodeUnsigned(r)
		if err != nil {
			return nil, err
		}

		sequence = append(sequence, num)
	}

	return sequence, nil
}

// intSequenceIntoPayload encodes integer sequence into payload in LEB128.
func intSequenceIntoPayload(sequence []*big.Int) ([]byte, error) {
	data := make([]byte, 0)
	for _, num := range sequence {
		b, err := leb128.EncodeUnsigned(num)
		if err != nil {
			return nil, err
		}

		data = append(data, b...)
	}

	return data, nil
}
